package dto

import (
	"time"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

type MediaUploadResponse struct {
	ID          int64     `json:"id"`
	Kind        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func MediaUploadFromModel(m model.MediaAttachment) MediaUploadResponse {
	return MediaUploadResponse{
		ID:          m.ID,
		Kind:        string(m.Kind),
		Description: m.Description,
		CreatedAt:   m.CreatedAt,
	}
}
