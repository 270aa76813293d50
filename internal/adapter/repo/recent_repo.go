// Package repo holds database-backed repositories. Only the recents list is
// persisted server-side; everything else in a generation request lives for
// the duration of one call.
package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"funmoji/internal/domain"
)

// RecentStickerRepositoryPG implements domain.RecentStickerRepository using
// PostgreSQL, for deployments where the API node is not the only consumer.
type RecentStickerRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewRecentStickerRepository constructs a Postgres-backed recents repository.
func NewRecentStickerRepository(pool *pgxpool.Pool) *RecentStickerRepositoryPG {
	return &RecentStickerRepositoryPG{pool: pool}
}

// EnsureSchema creates the backing table when it does not exist yet.
func (r *RecentStickerRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS recent_stickers (
    id         TEXT PRIMARY KEY,
    file_uri   TEXT NOT NULL,
    provider   TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`)
	if err != nil {
		return fmt.Errorf("repo: ensure recent_stickers schema: %w", err)
	}
	return nil
}

// Append inserts a sticker and prunes everything past the cap, oldest first.
func (r *RecentStickerRepositoryPG) Append(ctx context.Context, sticker domain.RecentSticker) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO recent_stickers (id, file_uri, provider, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO NOTHING;
`, sticker.ID, sticker.FileURI, string(sticker.Provider), sticker.CreatedAt)
	if err != nil {
		return fmt.Errorf("repo: insert recent sticker: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
DELETE FROM recent_stickers
WHERE id NOT IN (
    SELECT id FROM recent_stickers ORDER BY created_at DESC LIMIT $1
);
`, domain.MaxRecentStickers)
	if err != nil {
		return fmt.Errorf("repo: prune recent stickers: %w", err)
	}
	return nil
}

// List returns up to limit stickers, newest first.
func (r *RecentStickerRepositoryPG) List(ctx context.Context, limit int) ([]domain.RecentSticker, error) {
	if limit <= 0 || limit > domain.MaxRecentStickers {
		limit = domain.MaxRecentStickers
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, file_uri, provider, created_at
FROM recent_stickers
ORDER BY created_at DESC
LIMIT $1;
`, limit)
	if err != nil {
		return nil, fmt.Errorf("repo: list recent stickers: %w", err)
	}
	defer rows.Close()

	var stickers []domain.RecentSticker
	for rows.Next() {
		var s domain.RecentSticker
		var provider string
		if err := rows.Scan(&s.ID, &s.FileURI, &provider, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo: scan recent sticker: %w", err)
		}
		s.Provider = domain.Provider(provider)
		stickers = append(stickers, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stickers, nil
}

var _ domain.RecentStickerRepository = (*RecentStickerRepositoryPG)(nil)
