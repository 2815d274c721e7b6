package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

var (
	ErrStatusNotFound = errors.New("status not found")
	ErrMediaClaim     = errors.New("media attachment already claimed or not owned")
	ErrScheduledGone  = errors.New("scheduled status no longer exists")
	ErrConstraint     = errors.New("constraint violation")
)

type StatusRepo struct {
	pool *pgxpool.Pool
}

type CreateStatusRecord struct {
	AccountID     int64
	Text          string
	InReplyToID   *int64
	Sensitive     bool
	SpoilerText   string
	Visibility    string
	Language      string
	ApplicationID *int64
	MediaIDs      []int64
	Poll          *model.PollSpec

	// FromScheduledID consumes a scheduled status row in the same
	// transaction, so a materialization raced by two workers publishes
	// at most once.
	FromScheduledID *int64
}

func NewStatusRepo(pool *pgxpool.Pool) *StatusRepo {
	return &StatusRepo{pool: pool}
}

// Create inserts the status row together with its media claims and poll
// inside one transaction. Any failure rolls everything back.
func (r *StatusRepo) Create(ctx context.Context, rec CreateStatusRecord) (model.Status, error) {
	if r.pool == nil {
		return model.Status{}, fmt.Errorf("postgres pool is nil")
	}

	var status model.Status
	err := WithTx(ctx, r.pool, func(txCtx context.Context, tx pgx.Tx) error {
		if rec.FromScheduledID != nil {
			tag, err := tx.Exec(txCtx, `DELETE FROM scheduled_statuses WHERE id = $1`, *rec.FromScheduledID)
			if err != nil {
				return fmt.Errorf("consume scheduled status: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return ErrScheduledGone
			}
		}

		err := tx.QueryRow(txCtx, `
INSERT INTO statuses (account_id, text, in_reply_to_id, sensitive, spoiler_text, visibility, language, application_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
RETURNING id, created_at
`, rec.AccountID, rec.Text, rec.InReplyToID, rec.Sensitive, rec.SpoilerText, rec.Visibility, rec.Language, rec.ApplicationID).
			Scan(&status.ID, &status.CreatedAt)
		if err != nil {
			return wrapConstraint("insert status", err)
		}

		if len(rec.MediaIDs) > 0 {
			// A reservation held by a scheduled status converts only
			// through that status's own materialization ($4); any other
			// publication sees the attachment as taken.
			tag, err := tx.Exec(txCtx, `
UPDATE media_attachments
SET status_id = $1, scheduled_status_id = NULL, updated_at = NOW()
WHERE id = ANY($2) AND account_id = $3 AND status_id IS NULL
  AND (scheduled_status_id IS NULL OR scheduled_status_id = $4)
`, status.ID, rec.MediaIDs, rec.AccountID, rec.FromScheduledID)
			if err != nil {
				return wrapConstraint("claim media attachments", err)
			}
			if tag.RowsAffected() != int64(len(rec.MediaIDs)) {
				return ErrMediaClaim
			}
		}

		if rec.Poll != nil {
			poll := &model.Poll{
				StatusID:  status.ID,
				AccountID: rec.AccountID,
				Options:   rec.Poll.Options,
				ExpiresAt: rec.Poll.ExpiresAt,
				Multiple:  rec.Poll.Multiple,
			}
			err := tx.QueryRow(txCtx, `
INSERT INTO polls (status_id, account_id, options, expires_at, multiple, voters_count, created_at)
VALUES ($1, $2, $3, $4, $5, 0, NOW())
RETURNING id, created_at
`, poll.StatusID, poll.AccountID, poll.Options, poll.ExpiresAt, poll.Multiple).
				Scan(&poll.ID, &poll.CreatedAt)
			if err != nil {
				return wrapConstraint("insert poll", err)
			}
			status.Poll = poll
		}

		return nil
	})
	if err != nil {
		return model.Status{}, err
	}

	status.AccountID = rec.AccountID
	status.Text = rec.Text
	status.InReplyToID = rec.InReplyToID
	status.Sensitive = rec.Sensitive
	status.SpoilerText = rec.SpoilerText
	status.Visibility = enums.Visibility(rec.Visibility)
	status.Language = rec.Language
	status.ApplicationID = rec.ApplicationID

	media, err := r.listStatusMedia(ctx, status.ID)
	if err != nil {
		return model.Status{}, err
	}
	status.Media = media

	return status, nil
}

func (r *StatusRepo) GetByID(ctx context.Context, id int64) (model.Status, error) {
	if r.pool == nil {
		return model.Status{}, fmt.Errorf("postgres pool is nil")
	}

	var status model.Status
	err := r.pool.QueryRow(ctx, `
SELECT id, account_id, text, in_reply_to_id, sensitive, spoiler_text, visibility, language, application_id, created_at
FROM statuses
WHERE id = $1
`, id).Scan(&status.ID, &status.AccountID, &status.Text, &status.InReplyToID, &status.Sensitive,
		&status.SpoilerText, &status.Visibility, &status.Language, &status.ApplicationID, &status.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Status{}, ErrStatusNotFound
		}
		return model.Status{}, fmt.Errorf("select status: %w", err)
	}

	media, err := r.listStatusMedia(ctx, status.ID)
	if err != nil {
		return model.Status{}, err
	}
	status.Media = media

	poll, err := r.getStatusPoll(ctx, status.ID)
	if err != nil {
		return model.Status{}, err
	}
	status.Poll = poll

	return status, nil
}

func (r *StatusRepo) listStatusMedia(ctx context.Context, statusID int64) ([]model.MediaAttachment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, account_id, status_id, kind, object_key, content_type, description, created_at
FROM media_attachments
WHERE status_id = $1
ORDER BY id
`, statusID)
	if err != nil {
		return nil, fmt.Errorf("list status media: %w", err)
	}
	defer rows.Close()

	media := make([]model.MediaAttachment, 0)
	for rows.Next() {
		var m model.MediaAttachment
		if err := rows.Scan(&m.ID, &m.AccountID, &m.StatusID, &m.Kind, &m.ObjectKey, &m.ContentType, &m.Description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan status media: %w", err)
		}
		media = append(media, m)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate status media: %w", rows.Err())
	}

	return media, nil
}

func (r *StatusRepo) getStatusPoll(ctx context.Context, statusID int64) (*model.Poll, error) {
	var poll model.Poll
	err := r.pool.QueryRow(ctx, `
SELECT id, status_id, account_id, options, expires_at, multiple, voters_count, created_at
FROM polls
WHERE status_id = $1
`, statusID).Scan(&poll.ID, &poll.StatusID, &poll.AccountID, &poll.Options, &poll.ExpiresAt, &poll.Multiple, &poll.VotersCount, &poll.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select status poll: %w", err)
	}
	return &poll, nil
}

func wrapConstraint(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23" {
		return fmt.Errorf("%s: %w: %s", op, ErrConstraint, pgErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
