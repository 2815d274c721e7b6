package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

func (r *AccountRepo) GetByID(ctx context.Context, id int64) (model.Account, error) {
	if r.pool == nil {
		return model.Account{}, fmt.Errorf("postgres pool is nil")
	}

	return r.scanAccount(r.pool.QueryRow(ctx, `
SELECT id, username, display_name, silenced, default_visibility, default_sensitive, default_language, created_at, updated_at
FROM accounts
WHERE id = $1
`, id))
}

func (r *AccountRepo) FindLocalByUsername(ctx context.Context, username string) (model.Account, error) {
	if r.pool == nil {
		return model.Account{}, fmt.Errorf("postgres pool is nil")
	}

	return r.scanAccount(r.pool.QueryRow(ctx, `
SELECT id, username, display_name, silenced, default_visibility, default_sensitive, default_language, created_at, updated_at
FROM accounts
WHERE lower(username) = lower($1) AND domain IS NULL
`, username))
}

func (r *AccountRepo) UpdateDisplayName(ctx context.Context, accountID int64, displayName string) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE accounts SET display_name = $2, updated_at = NOW() WHERE id = $1
`, accountID, displayName)
	if err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}

	return nil
}

func (r *AccountRepo) scanAccount(row pgx.Row) (model.Account, error) {
	var account model.Account
	err := row.Scan(&account.ID, &account.Username, &account.DisplayName, &account.Silenced,
		&account.DefaultVisibility, &account.DefaultSensitive, &account.DefaultLanguage,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Account{}, ErrAccountNotFound
		}
		return model.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return account, nil
}
