package model

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
)

// MediaAttachment stays unattached (StatusID nil) from upload until a
// status claims it or a scheduled status reserves it. Both are exclusive:
// reserved media is invisible to other publications until the owning
// scheduled status materializes or is deleted.
type MediaAttachment struct {
	ID                int64           `json:"id"`
	AccountID         int64           `json:"account_id"`
	StatusID          *int64          `json:"status_id"`
	ScheduledStatusID *int64          `json:"scheduled_status_id"`
	Kind              enums.MediaKind `json:"kind"`
	ObjectKey         string          `json:"object_key"`
	ContentType       string          `json:"content_type"`
	Description       string          `json:"description"`
	CreatedAt         time.Time       `json:"created_at"`
}
