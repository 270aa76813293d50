// Package sticker turns a normalized result URL into an export-ready local
// file: download (or inline decode), then re-encode to the fixed sticker
// size for the destination chat app.
package sticker

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"funmoji/internal/domain"
	"funmoji/internal/imaging"
	"funmoji/internal/infra"
	"funmoji/internal/storage"
)

const filePrefix = "funmoji"

// Options configures the materializer.
type Options struct {
	Store      *storage.FileStore
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Materializer downloads remote results and formats them for export.
type Materializer struct {
	store      *storage.FileStore
	httpClient *http.Client
	logger     *infra.Logger
	seq        atomic.Int64
}

// NewMaterializer wires a materializer around a file store.
func NewMaterializer(opts Options) (*Materializer, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("sticker: file store is required")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	return &Materializer{store: opts.Store, httpClient: httpClient, logger: logger}, nil
}

// Download fetches one normalized result URL into a local file and returns
// its path. Embedded-data URIs are decoded directly without a network call.
// authHeader, when non-empty, is attached for providers whose result URLs
// are not publicly fetchable.
func (m *Materializer) Download(ctx context.Context, url, authHeader string) (string, error) {
	data, err := m.fetch(ctx, url, authHeader)
	if err != nil {
		return "", err
	}
	key := m.nextKey("")
	path, err := m.store.Write(ctx, key, data)
	if err != nil {
		return "", err
	}
	m.logger.Debug().Str("url", truncate(url, 96)).Str("file", path).Msg("sticker: downloaded result")
	return path, nil
}

// Format re-encodes a downloaded file to the fixed square sticker size for
// the destination and returns the final artifact. Both destinations
// currently share the 512px PNG encoding.
func (m *Materializer) Format(ctx context.Context, path string, dest domain.Destination) (domain.StickerArtifact, error) {
	dest = dest.Normalize()
	data, err := m.store.Read(path)
	if err != nil {
		return domain.StickerArtifact{}, err
	}
	rendered, err := imaging.RenderSticker(data)
	if err != nil {
		return domain.StickerArtifact{}, err
	}
	out, err := m.store.Write(ctx, m.nextKey(string(dest)), rendered)
	if err != nil {
		return domain.StickerArtifact{}, err
	}
	return domain.StickerArtifact{
		LocalFileURI: out,
		PixelSize:    imaging.StickerSize,
		ExportFormat: "png",
		Destination:  dest,
		CreatedAt:    time.Now(),
	}, nil
}

func (m *Materializer) fetch(ctx context.Context, url, authHeader string) ([]byte, error) {
	url = strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(url, "data:"):
		return decodeDataURI(url)
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSource, truncate(url, 96))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrInvalidSource, err)
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", domain.ErrDownloadFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrDownloadFailed, err)
	}
	return data, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, fmt.Errorf("%w: malformed data uri", domain.ErrInvalidSource)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: decode data uri: %v", domain.ErrInvalidSource, err)
	}
	return data, nil
}

// nextKey builds the `funmoji_<epoch-ms>.png` filename. The stamp is kept
// strictly monotonic so two results in the same millisecond never collide.
func (m *Materializer) nextKey(dest string) string {
	ms := m.nextStamp()
	if dest == "" {
		return fmt.Sprintf("%s_%d.png", filePrefix, ms)
	}
	return fmt.Sprintf("%s_%s_%d.png", filePrefix, dest, ms)
}

func (m *Materializer) nextStamp() int64 {
	now := time.Now().UnixMilli()
	for {
		last := m.seq.Load()
		if now <= last {
			now = last + 1
		}
		if m.seq.CompareAndSwap(last, now) {
			return now
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
