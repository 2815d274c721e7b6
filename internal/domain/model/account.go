package model

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
)

type Account struct {
	ID                int64            `json:"id"`
	Username          string           `json:"username"`
	DisplayName       string           `json:"display_name"`
	Silenced          bool             `json:"silenced"`
	DefaultVisibility enums.Visibility `json:"default_visibility"`
	DefaultSensitive  bool             `json:"default_sensitive"`
	DefaultLanguage   string           `json:"default_language"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

// Acct is the local handle used when one account addresses another in text.
func (a Account) Acct() string {
	return a.Username
}
