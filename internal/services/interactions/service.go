package interactions

import (
	"context"
	"errors"
	"fmt"
)

var ErrDependenciesNil = errors.New("interactions dependencies are not configured")

// replyWeight is the contribution of a single reply toward the potential
// friendship heuristic.
const replyWeight = 1.0

// MetricsSink is the injected interaction counter; nothing in this package
// reaches for a process-wide singleton.
type MetricsSink interface {
	IncrementReplies(ctx context.Context) (int64, error)
}

type FriendshipStore interface {
	RecordPotentialFriendship(ctx context.Context, fromID, toID int64, weight float64) error
}

type FollowStore interface {
	IsFollowing(ctx context.Context, fromID, toID int64) (bool, error)
}

type Service struct {
	metrics     MetricsSink
	friendships FriendshipStore
	follows     FollowStore
}

func NewService(metrics MetricsSink, friendships FriendshipStore, follows FollowStore) *Service {
	return &Service{
		metrics:     metrics,
		friendships: friendships,
		follows:     follows,
	}
}

// RecordReply counts the interaction and, when the author does not already
// follow the target, leaves a directed potential-friendship signal for the
// recommendation system.
func (s *Service) RecordReply(ctx context.Context, fromID, toID int64) error {
	if fromID <= 0 || toID <= 0 || fromID == toID {
		return nil
	}
	if s.metrics == nil || s.friendships == nil || s.follows == nil {
		return ErrDependenciesNil
	}

	if _, err := s.metrics.IncrementReplies(ctx); err != nil {
		return fmt.Errorf("count reply interaction: %w", err)
	}

	following, err := s.follows.IsFollowing(ctx, fromID, toID)
	if err != nil {
		return fmt.Errorf("check follow edge: %w", err)
	}
	if following {
		return nil
	}

	if err := s.friendships.RecordPotentialFriendship(ctx, fromID, toID, replyWeight); err != nil {
		return fmt.Errorf("record potential friendship: %w", err)
	}

	return nil
}
