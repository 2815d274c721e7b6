package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MentionRepo struct {
	pool *pgxpool.Pool
}

func NewMentionRepo(pool *pgxpool.Pool) *MentionRepo {
	return &MentionRepo{pool: pool}
}

func (r *MentionRepo) CreateMention(ctx context.Context, statusID, accountID int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
INSERT INTO mentions (status_id, account_id, created_at)
VALUES ($1, $2, NOW())
ON CONFLICT DO NOTHING
`, statusID, accountID); err != nil {
		return fmt.Errorf("insert mention: %w", err)
	}

	return nil
}
