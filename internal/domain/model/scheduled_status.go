package model

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
)

// StatusParams is the serialized copy of publication parameters a
// scheduled status carries until it is materialized.
type StatusParams struct {
	Text          string           `json:"text"`
	InReplyToID   *int64           `json:"in_reply_to_id"`
	Sensitive     bool             `json:"sensitive"`
	SpoilerText   string           `json:"spoiler_text"`
	Visibility    enums.Visibility `json:"visibility"`
	Language      string           `json:"language"`
	ApplicationID *int64           `json:"application_id"`
	MediaIDs      []int64          `json:"media_ids"`
	Poll          *PollSpec        `json:"poll"`
}

type ScheduledStatus struct {
	ID          int64        `json:"id"`
	AccountID   int64        `json:"account_id"`
	ScheduledAt time.Time    `json:"scheduled_at"`
	Params      StatusParams `json:"params"`
	CreatedAt   time.Time    `json:"created_at"`
}
