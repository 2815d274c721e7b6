package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

const (
	idempotencyKeyPrefix = "idempotency:status:"

	// IdempotencyTTL bounds how long a caller key maps to the entity it
	// produced. A replay outside the window creates a new entity.
	IdempotencyTTL = 3600 * time.Second
)

type IdempotencyRepo struct {
	client *goredis.Client
}

func NewIdempotencyRepo(client *goredis.Client) *IdempotencyRepo {
	return &IdempotencyRepo{client: client}
}

// Lookup is advisory: absence only means no dedup record exists, never
// that the entity does not.
func (r *IdempotencyRepo) Lookup(ctx context.Context, accountID int64, key string) (model.EntityRef, bool, error) {
	if r.client == nil {
		return model.EntityRef{}, false, fmt.Errorf("redis client is nil")
	}
	if accountID <= 0 || strings.TrimSpace(key) == "" {
		return model.EntityRef{}, false, nil
	}

	value, err := r.client.Get(ctx, idempotencyKey(accountID, key)).Result()
	if err == goredis.Nil {
		return model.EntityRef{}, false, nil
	}
	if err != nil {
		return model.EntityRef{}, false, fmt.Errorf("get idempotency record: %w", err)
	}

	ref, err := parseEntityRef(value)
	if err != nil {
		return model.EntityRef{}, false, err
	}

	return ref, true, nil
}

func (r *IdempotencyRepo) Store(ctx context.Context, accountID int64, key string, ref model.EntityRef) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if accountID <= 0 || strings.TrimSpace(key) == "" || ref.ID <= 0 {
		return fmt.Errorf("invalid idempotency record")
	}

	if err := r.client.SetEx(ctx, idempotencyKey(accountID, key), formatEntityRef(ref), IdempotencyTTL).Err(); err != nil {
		return fmt.Errorf("set idempotency record: %w", err)
	}

	return nil
}

func idempotencyKey(accountID int64, key string) string {
	return idempotencyKeyPrefix + strconv.FormatInt(accountID, 10) + ":" + key
}

func formatEntityRef(ref model.EntityRef) string {
	if ref.Scheduled {
		return "scheduled:" + strconv.FormatInt(ref.ID, 10)
	}
	return "status:" + strconv.FormatInt(ref.ID, 10)
}

func parseEntityRef(value string) (model.EntityRef, error) {
	kind, raw, ok := strings.Cut(value, ":")
	if !ok {
		return model.EntityRef{}, fmt.Errorf("malformed idempotency value %q", value)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return model.EntityRef{}, fmt.Errorf("malformed idempotency value %q", value)
	}

	switch kind {
	case "status":
		return model.EntityRef{ID: id}, nil
	case "scheduled":
		return model.EntityRef{Scheduled: true, ID: id}, nil
	default:
		return model.EntityRef{}, fmt.Errorf("malformed idempotency value %q", value)
	}
}
