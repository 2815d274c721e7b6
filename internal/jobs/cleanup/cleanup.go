package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

type MediaStore interface {
	ListUnattachedOlderThan(ctx context.Context, cutoff time.Time) ([]model.MediaAttachment, error)
	Delete(ctx context.Context, id int64) error
}

type ObjectStorage interface {
	Delete(ctx context.Context, key string) error
}

// Job purges media attachments that were uploaded but never claimed by a
// status or scheduled status within the retention window.
type Job struct {
	media     MediaStore
	storage   ObjectStorage
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

func NewUnattachedMediaJob(media MediaStore, storage ObjectStorage, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		media:     media,
		storage:   storage,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.media == nil || j.storage == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	stale, err := j.media.ListUnattachedOlderThan(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale media attachments: %w", err)
	}
	if len(stale) == 0 {
		return nil
	}

	for _, attachment := range stale {
		if err := j.storage.Delete(ctx, attachment.ObjectKey); err != nil {
			j.logger.Warn("failed to delete media object from storage",
				zap.Error(err),
				zap.String("object_key", attachment.ObjectKey))
		}
		if err := j.media.Delete(ctx, attachment.ID); err != nil {
			return fmt.Errorf("delete stale media attachment: %w", err)
		}
	}

	j.logger.Info("cleanup stale media attachments completed", zap.Int("deleted", len(stale)))
	return nil
}

// Start runs the job on the given interval until ctx is cancelled.
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("media cleanup run failed", zap.Error(err))
			}
		}
	}
}
