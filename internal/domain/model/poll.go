package model

import "time"

type Poll struct {
	ID          int64     `json:"id"`
	StatusID    int64     `json:"status_id"`
	AccountID   int64     `json:"account_id"`
	Options     []string  `json:"options"`
	ExpiresAt   time.Time `json:"expires_at"`
	Multiple    bool      `json:"multiple"`
	VotersCount int64     `json:"voters_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// PollSpec is the caller-supplied shape of a poll before it is persisted.
// Scheduled statuses store it as-is and materialize the poll on publish.
type PollSpec struct {
	Options   []string  `json:"options"`
	ExpiresAt time.Time `json:"expires_at"`
	Multiple  bool      `json:"multiple"`
}
