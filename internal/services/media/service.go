package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrUnsupportedType = errors.New("unsupported media content type")
)

type Store interface {
	Create(ctx context.Context, m model.MediaAttachment) (model.MediaAttachment, error)
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store   Store
	storage ObjectStorage
}

func NewService(store Store, storage ObjectStorage) *Service {
	return &Service{store: store, storage: storage}
}

// Upload stores the file and records an unattached media attachment. The
// attachment stays unclaimed until a status (or scheduled status) takes it.
func (s *Service) Upload(ctx context.Context, accountID int64, fileName, contentType, description string, body io.Reader, size int64) (model.MediaAttachment, error) {
	if accountID <= 0 || body == nil || size <= 0 {
		return model.MediaAttachment{}, ErrValidation
	}
	if s.store == nil || s.storage == nil {
		return model.MediaAttachment{}, fmt.Errorf("media dependencies are not configured")
	}

	kind, err := kindFromContentType(contentType)
	if err != nil {
		return model.MediaAttachment{}, err
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return model.MediaAttachment{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey := buildObjectKey(accountID, fileName)
	if err := s.storage.Put(ctx, objectKey, body, size, contentType); err != nil {
		return model.MediaAttachment{}, fmt.Errorf("put object: %w", err)
	}

	attachment, err := s.store.Create(ctx, model.MediaAttachment{
		AccountID:   accountID,
		Kind:        kind,
		ObjectKey:   objectKey,
		ContentType: contentType,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return model.MediaAttachment{}, fmt.Errorf("create media record: %w", err)
	}

	return attachment, nil
}

func kindFromContentType(contentType string) (enums.MediaKind, error) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return enums.MediaKindImage, nil
	case strings.HasPrefix(contentType, "video/"):
		return enums.MediaKindVideo, nil
	case strings.HasPrefix(contentType, "audio/"):
		return enums.MediaKindAudio, nil
	default:
		return "", ErrUnsupportedType
	}
}

func buildObjectKey(accountID int64, fileName string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("accounts/%d/media/%s%s", accountID, uuid.NewString(), ext)
}
