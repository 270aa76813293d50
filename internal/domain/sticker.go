package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxPromptLength bounds user prompt text.
const MaxPromptLength = 500

// StickerSize is the fixed square pixel size required by sticker surfaces.
const StickerSize = 512

// Destination enumerates supported export targets. Both currently require
// the same 512px PNG encoding; the distinction is kept so the contract can
// diverge later without touching callers.
type Destination string

const (
	DestinationWhatsApp Destination = "whatsapp"
	DestinationTelegram Destination = "telegram"
)

// Normalize maps free-form input onto a supported destination.
func (d Destination) Normalize() Destination {
	switch Destination(strings.ToLower(strings.TrimSpace(string(d)))) {
	case DestinationTelegram:
		return DestinationTelegram
	default:
		return DestinationWhatsApp
	}
}

// GenerationRequest is one user-initiated sticker generation. At least one
// of PhotoData/PhotoURI and Prompt must be present.
type GenerationRequest struct {
	PhotoURI    string
	PhotoData   []byte
	Prompt      string
	Style       string
	Provider    Provider
	Destination Destination
	RequestID   string
	Locale      string
}

// HasPhoto reports whether any photo input was supplied.
func (r GenerationRequest) HasPhoto() bool {
	return len(r.PhotoData) > 0 || strings.TrimSpace(r.PhotoURI) != ""
}

// Validate rejects unusable requests before any network call.
func (r GenerationRequest) Validate() error {
	if !r.HasPhoto() && strings.TrimSpace(r.Prompt) == "" {
		return fmt.Errorf("%w: photo or prompt is required", ErrInvalidRequest)
	}
	if len(r.Prompt) > MaxPromptLength {
		return fmt.Errorf("%w: prompt exceeds %d characters", ErrInvalidRequest, MaxPromptLength)
	}
	return nil
}

// StickerArtifact is the final export-ready image file.
type StickerArtifact struct {
	LocalFileURI string
	PixelSize    int
	ExportFormat string
	Destination  Destination
	Provider     Provider
	CreatedAt    time.Time
}

// MaxRecentStickers caps the append-only recents list.
const MaxRecentStickers = 24

// RecentSticker is one entry in the capped recents list, recorded only
// after materialization succeeds.
type RecentSticker struct {
	ID        string
	FileURI   string
	Provider  Provider
	CreatedAt time.Time
}
