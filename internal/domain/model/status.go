package model

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
)

type Status struct {
	ID            int64             `json:"id"`
	AccountID     int64             `json:"account_id"`
	Text          string            `json:"text"`
	InReplyToID   *int64            `json:"in_reply_to_id"`
	Sensitive     bool              `json:"sensitive"`
	SpoilerText   string            `json:"spoiler_text"`
	Visibility    enums.Visibility  `json:"visibility"`
	Language      string            `json:"language"`
	ApplicationID *int64            `json:"application_id"`
	Media         []MediaAttachment `json:"media_attachments"`
	Poll          *Poll             `json:"poll"`
	CreatedAt     time.Time         `json:"created_at"`
}

func (s Status) Reply() bool {
	return s.InReplyToID != nil
}

// EntityRef identifies either a published or a scheduled status, so an
// idempotent replay can be answered with the same kind of entity the
// original request produced.
type EntityRef struct {
	Scheduled bool  `json:"scheduled"`
	ID        int64 `json:"id"`
}
