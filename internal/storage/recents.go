package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"funmoji/internal/domain"
)

// RecentsFile is a small JSON-backed implementation of the recents
// repository for single-process deployments without a database. Entries are
// newest-first and capped at domain.MaxRecentStickers.
type RecentsFile struct {
	path string

	mu      sync.Mutex
	entries []domain.RecentSticker
	loaded  bool
}

// NewRecentsFile builds a store persisting to the given JSON file.
func NewRecentsFile(path string) (*RecentsFile, error) {
	if path == "" {
		return nil, errors.New("storage: recents path is required")
	}
	return &RecentsFile{path: path}, nil
}

// Append records a sticker at the head of the list, dropping duplicates of
// the same file and anything past the cap, then persists the file.
func (s *RecentsFile) Append(ctx context.Context, sticker domain.RecentSticker) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	next := make([]domain.RecentSticker, 0, len(s.entries)+1)
	next = append(next, sticker)
	for _, e := range s.entries {
		if e.FileURI == sticker.FileURI {
			continue
		}
		next = append(next, e)
	}
	if len(next) > domain.MaxRecentStickers {
		next = next[:domain.MaxRecentStickers]
	}
	s.entries = next
	return s.save()
}

// List returns up to limit entries, newest first.
func (s *RecentsFile) List(ctx context.Context, limit int) ([]domain.RecentSticker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]domain.RecentSticker, limit)
	copy(out, s.entries[:limit])
	return out, nil
}

func (s *RecentsFile) load() error {
	if s.loaded {
		return nil
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("storage: read recents: %w", err)
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		// A corrupt recents file is not worth failing generation over.
		s.entries = nil
	}
	s.loaded = true
	return nil
}

func (s *RecentsFile) save() error {
	raw, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode recents: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("storage: ensure recents directory: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return fmt.Errorf("storage: write recents: %w", err)
	}
	return nil
}

var _ domain.RecentStickerRepository = (*RecentsFile)(nil)
