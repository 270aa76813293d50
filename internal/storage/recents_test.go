package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"funmoji/internal/domain"
)

func entry(name string, at time.Time) domain.RecentSticker {
	return domain.RecentSticker{
		ID:        name,
		FileURI:   "/stickers/" + name,
		Provider:  domain.ProviderReplicate,
		CreatedAt: at,
	}
}

func TestRecentsAppendNewestFirstAndCapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recents.json")
	store, err := NewRecentsFile(path)
	if err != nil {
		t.Fatalf("NewRecentsFile: %v", err)
	}
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < domain.MaxRecentStickers+5; i++ {
		name := fmt.Sprintf("s%02d.png", i)
		if err := store.Append(ctx, entry(name, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Append %s: %v", name, err)
		}
	}
	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != domain.MaxRecentStickers {
		t.Fatalf("len = %d, want %d", len(got), domain.MaxRecentStickers)
	}
	if got[0].ID != fmt.Sprintf("s%02d.png", domain.MaxRecentStickers+4) {
		t.Fatalf("head = %s", got[0].ID)
	}
}

func TestRecentsAppendDeduplicatesByFile(t *testing.T) {
	store, err := NewRecentsFile(filepath.Join(t.TempDir(), "recents.json"))
	if err != nil {
		t.Fatalf("NewRecentsFile: %v", err)
	}
	ctx := context.Background()
	now := time.Now()
	if err := store.Append(ctx, entry("same.png", now)); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, entry("other.png", now.Add(time.Second))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := store.Append(ctx, entry("same.png", now.Add(2*time.Second))); err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "same.png" || got[1].ID != "other.png" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestRecentsSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recents.json")
	first, err := NewRecentsFile(path)
	if err != nil {
		t.Fatalf("NewRecentsFile: %v", err)
	}
	ctx := context.Background()
	if err := first.Append(ctx, entry("persisted.png", time.Now())); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second, err := NewRecentsFile(path)
	if err != nil {
		t.Fatalf("NewRecentsFile: %v", err)
	}
	got, err := second.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "persisted.png" {
		t.Fatalf("entries = %+v", got)
	}
}

func TestRecentsToleratesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recents.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	store, err := NewRecentsFile(path)
	if err != nil {
		t.Fatalf("NewRecentsFile: %v", err)
	}
	got, err := store.List(context.Background(), 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("entries = %+v", got)
	}
}

func TestFileStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"", "..", "../escape.png", "a/../../b.png"} {
		if _, err := store.Write(context.Background(), key, []byte("x")); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

func TestFileStoreWriteThenRead(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, err := store.Write(context.Background(), "sub/sticker.png", []byte("payload"))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !filepath.IsAbs(path) {
		t.Fatalf("path %q not absolute", path)
	}
	data, err := store.Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
	byKey, err := store.Read("sub/sticker.png")
	if err != nil {
		t.Fatalf("Read by key: %v", err)
	}
	if string(byKey) != "payload" {
		t.Fatalf("data = %q", byKey)
	}
}
