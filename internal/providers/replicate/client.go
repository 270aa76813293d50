// Package replicate drives asynchronous prediction jobs against the
// Replicate API: submission with a single bounded throttling retry, and
// fixed-interval polling to a terminal state.
package replicate

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

// ErrMissingAPIToken indicates the client was configured without credentials.
var ErrMissingAPIToken = errors.New("replicate: api token is required")

const (
	defaultBaseURL      = "https://api.replicate.com/v1"
	defaultPollInterval = 1500 * time.Millisecond
	defaultPollAttempts = 60
	defaultRetryAfter   = 12 * time.Second
	maxRetryAfter       = 30 * time.Second
)

// Options configures the Replicate client.
type Options struct {
	APIToken        string
	BaseURL         string
	HTTPClient      *http.Client
	Logger          *infra.Logger
	PollInterval    time.Duration
	PollMaxAttempts int
	RequestTimeout  time.Duration
}

// Client performs HTTP calls against the Replicate predictions API.
type Client struct {
	apiToken     string
	baseURL      string
	httpClient   *http.Client
	logger       *infra.Logger
	pollInterval time.Duration
	pollAttempts int
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	attempts := opts.PollMaxAttempts
	if attempts <= 0 {
		attempts = defaultPollAttempts
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiToken:     strings.TrimSpace(opts.APIToken),
		baseURL:      baseURL,
		httpClient:   httpClient,
		logger:       logger,
		pollInterval: interval,
		pollAttempts: attempts,
	}
}

// Name identifies the provider for policy and metrics labels.
func (c *Client) Name() domain.Provider {
	return domain.ProviderReplicate
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c != nil && c.apiToken != ""
}

// AuthHeader returns the authorization value attached to API calls and to
// authenticated result downloads.
func (c *Client) AuthHeader() string {
	if !c.HasCredentials() {
		return ""
	}
	return "Token " + c.apiToken
}

type prediction struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"`
	Output     any     `json:"output"`
	Error      string  `json:"error"`
	Detail     string  `json:"detail"`
	RetryAfter float64 `json:"retry_after"`
}

// Submit creates a prediction for the given model version and returns the
// job id. On a throttling response it reads the provider-suggested wait,
// sleeps, and retries exactly once; a second 429 surfaces as
// domain.ErrRateLimited.
func (c *Client) Submit(ctx context.Context, version string, input map[string]any) (string, error) {
	if !c.HasCredentials() {
		return "", fmt.Errorf("%w: %s", domain.ErrAuth, ErrMissingAPIToken)
	}
	body, err := json.Marshal(map[string]any{"version": version, "input": input})
	if err != nil {
		return "", fmt.Errorf("replicate: encode request: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		pred, status, reqErr := c.do(ctx, http.MethodPost, c.baseURL+"/predictions", body)
		if reqErr != nil {
			return "", reqErr
		}
		if status == http.StatusTooManyRequests {
			if attempt > 0 {
				return "", fmt.Errorf("%w: replicate throttled twice for %s", domain.ErrRateLimited, version)
			}
			wait := retryAfter(pred)
			c.logger.Warn().
				Str("version", version).
				Dur("wait", wait).
				Msg("replicate: throttled, retrying once")
			metrics.IncRateLimitRetry(string(c.Name()))
			if err := sleep(ctx, wait); err != nil {
				return "", err
			}
			continue
		}
		if err := classifyStatus(status, pred); err != nil {
			return "", err
		}
		if pred.ID == "" {
			return "", fmt.Errorf("%w: replicate returned no prediction id", domain.ErrProvider)
		}
		c.logger.Debug().Str("id", pred.ID).Str("version", version).Msg("replicate: prediction created")
		return pred.ID, nil
	}
	return "", fmt.Errorf("%w: replicate submission retries exhausted", domain.ErrRateLimited)
}

// Fetch retrieves the current state of a prediction.
func (c *Client) Fetch(ctx context.Context, jobID string) (domain.RemoteJob, error) {
	if !c.HasCredentials() {
		return domain.RemoteJob{}, fmt.Errorf("%w: %s", domain.ErrAuth, ErrMissingAPIToken)
	}
	pred, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+jobID, nil)
	if err != nil {
		return domain.RemoteJob{}, err
	}
	if err := classifyStatus(status, pred); err != nil {
		return domain.RemoteJob{}, err
	}
	job := domain.RemoteJob{
		ID:           pred.ID,
		Status:       mapStatus(pred.Status),
		ErrorMessage: pred.Error,
	}
	if job.ID == "" {
		job.ID = jobID
	}
	if job.Status == domain.JobStatusSucceeded {
		job.RawOutput = pred.Output
	}
	return job, nil
}

// Wait polls a prediction at a fixed interval until it reaches a terminal
// state. Failure carries the provider-supplied reason; exceeding the attempt
// cap fails with domain.ErrJobTimeout.
func (c *Client) Wait(ctx context.Context, jobID string) (domain.RemoteJob, error) {
	job, _, err := c.wait(ctx, jobID)
	return job, err
}

func (c *Client) wait(ctx context.Context, jobID string) (domain.RemoteJob, int, error) {
	for attempt := 1; attempt <= c.pollAttempts; attempt++ {
		job, err := c.Fetch(ctx, jobID)
		if err != nil {
			return domain.RemoteJob{}, attempt, err
		}
		switch job.Status {
		case domain.JobStatusSucceeded:
			return job, attempt, nil
		case domain.JobStatusFailed:
			reason := strings.TrimSpace(job.ErrorMessage)
			if reason == "" {
				reason = "prediction failed"
			}
			return job, attempt, fmt.Errorf("%w: %s", domain.ErrJobFailed, reason)
		}
		if err := sleep(ctx, c.pollInterval); err != nil {
			return domain.RemoteJob{}, attempt, err
		}
	}
	return domain.RemoteJob{}, c.pollAttempts, fmt.Errorf("%w: prediction %s still pending after %d attempts", domain.ErrJobTimeout, jobID, c.pollAttempts)
}

// Run submits a prediction and blocks until it is terminal.
func (c *Client) Run(ctx context.Context, version string, input map[string]any) (domain.RemoteJob, error) {
	id, err := c.Submit(ctx, version, input)
	if err != nil {
		return domain.RemoteJob{}, err
	}
	job, attempts, err := c.wait(ctx, id)
	metrics.ObservePoll(string(c.Name()), modelName(version), attempts)
	if err != nil {
		return job, err
	}
	job.ProviderModel = version
	return job, nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (prediction, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return prediction{}, 0, fmt.Errorf("replicate: build request: %w", err)
	}
	req.Header.Set("Authorization", c.AuthHeader())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return prediction{}, 0, fmt.Errorf("replicate: http request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return prediction{}, 0, fmt.Errorf("replicate: read response: %w", err)
	}
	var pred prediction
	if len(raw) > 0 {
		// Tolerate non-JSON error bodies; classifyStatus falls back to the
		// HTTP status when the decode yields nothing.
		if err := json.Unmarshal(raw, &pred); err != nil && resp.StatusCode < 300 {
			return prediction{}, 0, fmt.Errorf("replicate: decode response: %w", err)
		}
		if pred.Error == "" && pred.Detail != "" {
			pred.Error = pred.Detail
		}
		if pred.Error == "" && resp.StatusCode >= 300 {
			pred.Error = strings.TrimSpace(string(raw))
		}
	}
	return pred, resp.StatusCode, nil
}

func classifyStatus(status int, pred prediction) error {
	switch {
	case status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: replicate rejected credentials: %s", domain.ErrAuth, pred.Error)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, pred.Error)
	default:
		return fmt.Errorf("%w: replicate status %d: %s", domain.ErrProvider, status, pred.Error)
	}
}

func retryAfter(pred prediction) time.Duration {
	wait := time.Duration(pred.RetryAfter * float64(time.Second))
	if wait <= 0 {
		return defaultRetryAfter
	}
	if wait > maxRetryAfter {
		return maxRetryAfter
	}
	return wait
}

func mapStatus(s string) domain.JobStatus {
	switch s {
	case "starting":
		return domain.JobStatusPending
	case "processing":
		return domain.JobStatusRunning
	case "succeeded":
		return domain.JobStatusSucceeded
	case "failed", "canceled":
		return domain.JobStatusFailed
	default:
		return domain.JobStatusPending
	}
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
