package dto

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

type CreateStatusRequest struct {
	Status      string          `json:"status"`
	InReplyToID *int64          `json:"in_reply_to_id"`
	Sensitive   *bool           `json:"sensitive"`
	Visibility  string          `json:"visibility"`
	SpoilerText *string         `json:"spoiler_text"`
	Language    string          `json:"language"`
	ScheduledAt string          `json:"scheduled_at"`
	Poll        *PollRequest    `json:"poll"`
	MediaIDs    []int64         `json:"media_ids"`
	Application *ApplicationRef `json:"application"`
}

type PollRequest struct {
	Options   []string  `json:"options"`
	ExpiresAt time.Time `json:"expires_at"`
	Multiple  bool      `json:"multiple"`
}

type ApplicationRef struct {
	ID int64 `json:"id"`
}

type StatusResponse struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Text        string          `json:"text"`
	InReplyToID *int64          `json:"in_reply_to_id"`
	Sensitive   bool            `json:"sensitive"`
	SpoilerText string          `json:"spoiler_text"`
	Visibility  string          `json:"visibility"`
	Language    string          `json:"language"`
	Media       []MediaResponse `json:"media_attachments"`
	Poll        *PollResponse   `json:"poll,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ScheduledStatusResponse struct {
	ID          int64     `json:"id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type PollResponse struct {
	ID          int64     `json:"id"`
	Options     []string  `json:"options"`
	ExpiresAt   time.Time `json:"expires_at"`
	Multiple    bool      `json:"multiple"`
	VotersCount int64     `json:"voters_count"`
}

type MediaResponse struct {
	ID          int64  `json:"id"`
	Kind        string `json:"type"`
	Description string `json:"description"`
}

func StatusFromModel(status model.Status) StatusResponse {
	out := StatusResponse{
		ID:          status.ID,
		AccountID:   status.AccountID,
		Text:        status.Text,
		InReplyToID: status.InReplyToID,
		Sensitive:   status.Sensitive,
		SpoilerText: status.SpoilerText,
		Visibility:  string(status.Visibility),
		Language:    status.Language,
		Media:       make([]MediaResponse, 0, len(status.Media)),
		CreatedAt:   status.CreatedAt,
	}

	for _, m := range status.Media {
		out.Media = append(out.Media, MediaResponse{
			ID:          m.ID,
			Kind:        string(m.Kind),
			Description: m.Description,
		})
	}

	if status.Poll != nil {
		out.Poll = &PollResponse{
			ID:          status.Poll.ID,
			Options:     status.Poll.Options,
			ExpiresAt:   status.Poll.ExpiresAt,
			Multiple:    status.Poll.Multiple,
			VotersCount: status.Poll.VotersCount,
		}
	}

	return out
}

func ScheduledFromModel(scheduled model.ScheduledStatus) ScheduledStatusResponse {
	return ScheduledStatusResponse{
		ID:          scheduled.ID,
		ScheduledAt: scheduled.ScheduledAt,
	}
}
