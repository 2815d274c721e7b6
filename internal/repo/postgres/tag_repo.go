package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

// TagStatus upserts the hashtag and links it to the status.
func (r *TagRepo) TagStatus(ctx context.Context, statusID int64, name string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	var tagID int64
	err := r.pool.QueryRow(ctx, `
INSERT INTO tags (name, created_at)
VALUES (lower($1), NOW())
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id
`, name).Scan(&tagID)
	if err != nil {
		return fmt.Errorf("upsert tag: %w", err)
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO statuses_tags (status_id, tag_id)
VALUES ($1, $2)
ON CONFLICT DO NOTHING
`, statusID, tagID); err != nil {
		return fmt.Errorf("link tag to status: %w", err)
	}

	return nil
}
