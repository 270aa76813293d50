package domain

import "context"

// RecentStickerRepository persists the capped recents list. Implementations
// must keep entries ordered newest-first and enforce MaxRecentStickers.
type RecentStickerRepository interface {
	Append(ctx context.Context, sticker RecentSticker) error
	List(ctx context.Context, limit int) ([]RecentSticker, error)
}
