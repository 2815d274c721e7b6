package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

type MediaRepo struct {
	pool *pgxpool.Pool
}

func NewMediaRepo(pool *pgxpool.Pool) *MediaRepo {
	return &MediaRepo{pool: pool}
}

func (r *MediaRepo) Create(ctx context.Context, m model.MediaAttachment) (model.MediaAttachment, error) {
	if r.pool == nil {
		return model.MediaAttachment{}, fmt.Errorf("postgres pool is nil")
	}

	err := r.pool.QueryRow(ctx, `
INSERT INTO media_attachments (account_id, kind, object_key, content_type, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
RETURNING id, created_at
`, m.AccountID, m.Kind, m.ObjectKey, m.ContentType, m.Description).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return model.MediaAttachment{}, wrapConstraint("insert media attachment", err)
	}

	return m, nil
}

// ListUnattachedOlderThan returns attachments no status or scheduled
// status has claimed, uploaded before the cutoff.
func (r *MediaRepo) ListUnattachedOlderThan(ctx context.Context, cutoff time.Time) ([]model.MediaAttachment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, status_id, kind, object_key, content_type, description, created_at
FROM media_attachments
WHERE status_id IS NULL AND scheduled_status_id IS NULL AND created_at < $1
ORDER BY created_at
`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale media: %w", err)
	}
	defer rows.Close()

	var media []model.MediaAttachment
	for rows.Next() {
		var m model.MediaAttachment
		if err := rows.Scan(&m.ID, &m.AccountID, &m.StatusID, &m.Kind, &m.ObjectKey, &m.ContentType, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stale media: %w", err)
		}
		media = append(media, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate stale media: %w", rows.Err())
	}

	return media, nil
}

func (r *MediaRepo) Delete(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `DELETE FROM media_attachments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete media attachment: %w", err)
	}

	return nil
}

// FindUnattached resolves the given ids to attachments owned by the account
// that no status has claimed and no scheduled status has reserved. Ids that
// do not resolve are simply missing from the result.
func (r *MediaRepo) FindUnattached(ctx context.Context, accountID int64, ids []int64) ([]model.MediaAttachment, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, status_id, scheduled_status_id, kind, object_key, content_type, description, created_at
FROM media_attachments
WHERE id = ANY($1) AND account_id = $2 AND status_id IS NULL AND scheduled_status_id IS NULL
ORDER BY array_position($1, id)
`, ids, accountID)
	if err != nil {
		return nil, fmt.Errorf("find unattached media: %w", err)
	}
	defer rows.Close()

	media := make([]model.MediaAttachment, 0, len(ids))
	for rows.Next() {
		var m model.MediaAttachment
		if err := rows.Scan(&m.ID, &m.AccountID, &m.StatusID, &m.ScheduledStatusID, &m.Kind, &m.ObjectKey, &m.ContentType, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan unattached media: %w", err)
		}
		media = append(media, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate unattached media: %w", rows.Err())
	}

	return media, nil
}
