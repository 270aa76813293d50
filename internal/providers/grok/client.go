// Package grok calls the xAI image API. Unlike Replicate this provider is
// synchronous: the POST response body already carries the result payload, so
// a successful call maps straight onto a terminal RemoteJob.
package grok

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"funmoji/internal/domain"
	"funmoji/internal/infra"
	"funmoji/internal/infra/metrics"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("grok: api key is required")

const (
	defaultBaseURL    = "https://api.x.ai"
	defaultModel      = "grok-imagine-image"
	editsEndpoint     = "/v1/images/edits"
	generateEndpoint  = "/v1/images/generations"
	defaultRetryAfter = 12 * time.Second
	maxRetryAfter     = 30 * time.Second
)

// Options configures the xAI client.
type Options struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls against the xAI image endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name identifies the provider for policy and metrics labels.
func (c *Client) Name() domain.Provider {
	return domain.ProviderGrok
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiKey != ""
}

// AuthHeader returns the authorization value attached to API calls and to
// authenticated result downloads.
func (c *Client) AuthHeader() string {
	if !c.HasCredentials() {
		return ""
	}
	return "Bearer " + c.apiKey
}

// BuildStickerPrompt wraps the user prompt so the model keeps the output a
// clean, square, messaging-ready sticker.
func BuildStickerPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "Turn this face into a clean, cute sticker suitable for messaging apps. Simple background."
	}
	return fmt.Sprintf("Turn this face into a sticker. %s Keep it as a clean, square sticker suitable for messaging apps.", prompt)
}

// Generate edits an image with a text prompt, or generates one from the
// prompt alone when imageURL is empty. It posts to the edits endpoint first
// and falls back once to generations when the route is missing. The decoded
// body becomes the RawOutput of a synthetic succeeded job.
func (c *Client) Generate(ctx context.Context, prompt, imageURL string) (domain.RemoteJob, error) {
	if !c.HasCredentials() {
		return domain.RemoteJob{}, fmt.Errorf("%w: %s", domain.ErrAuth, ErrMissingAPIKey)
	}
	payload := map[string]any{
		"model":        c.model,
		"prompt":       prompt,
		"aspect_ratio": "1:1",
	}
	if imageURL = strings.TrimSpace(imageURL); imageURL != "" {
		payload["image_url"] = imageURL
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return domain.RemoteJob{}, fmt.Errorf("grok: encode request: %w", err)
	}

	raw, status, err := c.post(ctx, c.baseURL+editsEndpoint, body)
	if err != nil {
		return domain.RemoteJob{}, err
	}
	if status == http.StatusTooManyRequests {
		metrics.IncRateLimitRetry(string(c.Name()))
		if err := sleep(ctx, retryAfter(raw)); err != nil {
			return domain.RemoteJob{}, err
		}
		raw, status, err = c.post(ctx, c.baseURL+editsEndpoint, body)
		if err != nil {
			return domain.RemoteJob{}, err
		}
		if status == http.StatusTooManyRequests {
			return domain.RemoteJob{}, fmt.Errorf("%w: grok throttled twice", domain.ErrRateLimited)
		}
	}
	if routeMissing(status, raw) {
		c.logger.Debug().Msg("grok: edits endpoint missing, falling back to generations")
		raw, status, err = c.post(ctx, c.baseURL+generateEndpoint, body)
		if err != nil {
			return domain.RemoteJob{}, err
		}
	}
	if err := classifyStatus(status, raw); err != nil {
		return domain.RemoteJob{}, err
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return domain.RemoteJob{}, fmt.Errorf("grok: decode response: %w", err)
	}
	return domain.RemoteJob{
		ProviderModel: c.model,
		Status:        domain.JobStatusSucceeded,
		RawOutput:     decoded,
	}, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("grok: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.AuthHeader())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("grok: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("grok: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func routeMissing(status int, raw []byte) bool {
	if status < 300 {
		return false
	}
	return status == http.StatusNotFound || strings.Contains(strings.ToLower(string(raw)), "not found")
}

func classifyStatus(status int, raw []byte) error {
	msg := errorMessage(raw)
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: grok rejected credentials: %s", domain.ErrAuth, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("%w: grok status %d: %s", domain.ErrProvider, status, msg)
	}
}

func errorMessage(raw []byte) string {
	var detail struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail.Error.Message != "" {
			return detail.Error.Message
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	return strings.TrimSpace(string(raw))
}

func retryAfter(raw []byte) time.Duration {
	var body struct {
		RetryAfter float64 `json:"retry_after"`
	}
	_ = json.Unmarshal(raw, &body)
	wait := time.Duration(body.RetryAfter * float64(time.Second))
	if wait <= 0 {
		return defaultRetryAfter
	}
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
