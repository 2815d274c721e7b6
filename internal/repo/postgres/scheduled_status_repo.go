package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

var ErrScheduledStatusNotFound = errors.New("scheduled status not found")

type ScheduledStatusRepo struct {
	pool *pgxpool.Pool
}

func NewScheduledStatusRepo(pool *pgxpool.Pool) *ScheduledStatusRepo {
	return &ScheduledStatusRepo{pool: pool}
}

// Create persists the scheduled status and reserves its media in one
// transaction. Reserved media stays unattached (status_id null) but cannot
// be reserved by another scheduled status.
func (r *ScheduledStatusRepo) Create(ctx context.Context, accountID int64, scheduledAt time.Time, params model.StatusParams) (model.ScheduledStatus, error) {
	if r.pool == nil {
		return model.ScheduledStatus{}, fmt.Errorf("postgres pool is nil")
	}

	scheduled := model.ScheduledStatus{
		AccountID:   accountID,
		ScheduledAt: scheduledAt,
		Params:      params,
	}

	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(txCtx, `
INSERT INTO scheduled_statuses (account_id, scheduled_at, params, created_at)
VALUES ($1, $2, $3, NOW())
RETURNING id, created_at
`, accountID, scheduledAt, params).Scan(&scheduled.ID, &scheduled.CreatedAt)
		if err != nil {
			return wrapConstraint("insert scheduled status", err)
		}

		if len(params.MediaIDs) > 0 {
			tag, err := tx.Exec(txCtx, `
UPDATE media_attachments
SET scheduled_status_id = $1, updated_at = NOW()
WHERE id = ANY($2) AND account_id = $3 AND status_id IS NULL AND scheduled_status_id IS NULL
`, scheduled.ID, params.MediaIDs, accountID)
			if err != nil {
				return wrapConstraint("reserve media attachments", err)
			}
			if tag.RowsAffected() != int64(len(params.MediaIDs)) {
				return ErrMediaClaim
			}
		}

		return nil
	})
	if err != nil {
		return model.ScheduledStatus{}, err
	}

	return scheduled, nil
}

func (r *ScheduledStatusRepo) GetByID(ctx context.Context, id int64) (model.ScheduledStatus, error) {
	if r.pool == nil {
		return model.ScheduledStatus{}, fmt.Errorf("postgres pool is nil")
	}

	var scheduled model.ScheduledStatus
	err := r.pool.QueryRow(ctx, `
SELECT id, account_id, scheduled_at, params, created_at
FROM scheduled_statuses
WHERE id = $1
`, id).Scan(&scheduled.ID, &scheduled.AccountID, &scheduled.ScheduledAt, &scheduled.Params, &scheduled.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ScheduledStatus{}, ErrScheduledStatusNotFound
		}
		return model.ScheduledStatus{}, fmt.Errorf("select scheduled status: %w", err)
	}

	return scheduled, nil
}
