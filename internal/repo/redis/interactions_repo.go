package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"
)

const (
	replyCounterKey           = "interactions:replies"
	potentialFriendshipPrefix = "potential_friendship:"
)

type InteractionsRepo struct {
	client *goredis.Client
}

func NewInteractionsRepo(client *goredis.Client) *InteractionsRepo {
	return &InteractionsRepo{client: client}
}

func (r *InteractionsRepo) IncrementReplies(ctx context.Context) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}

	count, err := r.client.Incr(ctx, replyCounterKey).Result()
	if err != nil {
		return 0, fmt.Errorf("increment reply counter: %w", err)
	}

	return count, nil
}

// RecordPotentialFriendship accumulates interaction weight from one account
// toward another. The recommendation system reads the sorted set later.
func (r *InteractionsRepo) RecordPotentialFriendship(ctx context.Context, fromID, toID int64, weight float64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if fromID <= 0 || toID <= 0 || weight <= 0 {
		return fmt.Errorf("invalid potential friendship record")
	}

	key := potentialFriendshipPrefix + strconv.FormatInt(toID, 10)
	if err := r.client.ZIncrBy(ctx, key, weight, strconv.FormatInt(fromID, 10)).Err(); err != nil {
		return fmt.Errorf("record potential friendship: %w", err)
	}

	return nil
}
