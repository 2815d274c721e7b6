package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type FollowRepo struct {
	pool *pgxpool.Pool
}

func NewFollowRepo(pool *pgxpool.Pool) *FollowRepo {
	return &FollowRepo{pool: pool}
}

func (r *FollowRepo) IsFollowing(ctx context.Context, fromID, toID int64) (bool, error) {
	if r.pool == nil {
		return false, fmt.Errorf("postgres pool is nil")
	}

	var exists bool
	err := r.pool.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM follows WHERE account_id = $1 AND target_account_id = $2)
`, fromID, toID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow edge: %w", err)
	}

	return exists, nil
}
