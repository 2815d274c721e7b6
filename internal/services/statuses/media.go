package statuses

import (
	"context"
	"fmt"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

const maxMediaAttachments = 4

// resolveMedia validates the caller-supplied media ids and resolves them to
// attachments owned by the account and not yet claimed by any status. Ids
// that do not resolve are dropped silently; everything else that is wrong
// with the set is a hard validation failure before any write happens.
func (s *Service) resolveMedia(ctx context.Context, accountID int64, mediaIDs []int64, pollRequested bool) ([]model.MediaAttachment, error) {
	if len(mediaIDs) == 0 {
		return nil, nil
	}
	if len(mediaIDs) > maxMediaAttachments {
		return nil, ErrTooManyMedia
	}
	if pollRequested {
		return nil, ErrPollWithMedia
	}

	media, err := s.media.FindUnattached(ctx, accountID, mediaIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve media attachments: %w", err)
	}

	if len(media) > 1 {
		for _, m := range media {
			if m.Kind.Playable() {
				return nil, ErrMixedMediaTypes
			}
		}
	}

	return media, nil
}

func mediaAttachmentIDs(media []model.MediaAttachment) []int64 {
	if len(media) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(media))
	for _, m := range media {
		ids = append(ids, m.ID)
	}
	return ids
}
