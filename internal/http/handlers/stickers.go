package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"funmoji/internal/domain"
	"funmoji/internal/generator"
	"funmoji/internal/middleware"
)

type generateRequest struct {
	PhotoData   string `json:"photo_data"`
	PhotoURI    string `json:"photo_uri"`
	Prompt      string `json:"prompt"`
	Style       string `json:"style"`
	Provider    string `json:"provider"`
	Destination string `json:"destination"`
}

type stickerResponse struct {
	File   string `json:"file"`
	Format string `json:"format"`
	Size   int    `json:"size"`
}

type generateResponse struct {
	Provider string            `json:"provider"`
	Stickers []stickerResponse `json:"stickers"`
}

// StickersGenerate runs one generation request synchronously. The route's
// server write timeout is sized for the worst-case polling window.
func (a *App) StickersGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	var photo []byte
	if s := strings.TrimSpace(req.PhotoData); s != "" {
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "photo_data must be base64")
			return
		}
		photo = decoded
	}
	locale := middleware.LocaleFromContext(r.Context())
	result, err := a.Orchestrator.Generate(r.Context(), domain.GenerationRequest{
		PhotoData:   photo,
		PhotoURI:    req.PhotoURI,
		Prompt:      req.Prompt,
		Style:       req.Style,
		Provider:    domain.Provider(req.Provider),
		Destination: domain.Destination(req.Destination),
		RequestID:   middleware.RequestIDFromContext(r.Context()),
		Locale:      locale,
	})
	if err != nil {
		status, code := classify(err)
		a.error(w, status, code, generator.FriendlyMessage(err, locale))
		return
	}
	resp := generateResponse{Provider: string(result.Provider)}
	for _, s := range result.Stickers {
		resp.Stickers = append(resp.Stickers, stickerResponse{
			File:   s.LocalFileURI,
			Format: s.ExportFormat,
			Size:   s.PixelSize,
		})
	}
	a.json(w, http.StatusOK, resp)
}

type recentResponse struct {
	ID        string    `json:"id"`
	File      string    `json:"file"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

// StickersRecent lists the capped recents feed, newest first.
func (a *App) StickersRecent(w http.ResponseWriter, r *http.Request) {
	if a.Recents == nil {
		a.json(w, http.StatusOK, map[string]any{"stickers": []recentResponse{}})
		return
	}
	items, err := a.Recents.List(r.Context(), domain.MaxRecentStickers)
	if err != nil {
		if a.Logger != nil {
			a.Logger.Error().Err(err).Msg("failed to list recent stickers")
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load recent stickers")
		return
	}
	out := make([]recentResponse, 0, len(items))
	for _, it := range items {
		out = append(out, recentResponse{
			ID:        it.ID,
			File:      it.FileURI,
			Provider:  string(it.Provider),
			CreatedAt: it.CreatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"stickers": out})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidSource):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, domain.ErrNoProvider):
		return http.StatusServiceUnavailable, "no_provider"
	case errors.Is(err, domain.ErrAuth):
		return http.StatusBadGateway, "provider_auth"
	case errors.Is(err, domain.ErrJobTimeout):
		return http.StatusGatewayTimeout, "job_timeout"
	case errors.Is(err, domain.ErrJobFailed),
		errors.Is(err, domain.ErrProvider),
		errors.Is(err, domain.ErrEmptyOutput),
		errors.Is(err, domain.ErrDownloadFailed):
		return http.StatusBadGateway, "provider_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
