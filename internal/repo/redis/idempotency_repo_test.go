package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

func newTestRepo(t *testing.T) (*miniredis.Miniredis, *IdempotencyRepo) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, NewIdempotencyRepo(client)
}

func TestIdempotencyRoundTripKeepsEntityKind(t *testing.T) {
	_, repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Store(ctx, 1, "key-a", model.EntityRef{ID: 10}); err != nil {
		t.Fatalf("store status ref: %v", err)
	}
	if err := repo.Store(ctx, 1, "key-b", model.EntityRef{Scheduled: true, ID: 20}); err != nil {
		t.Fatalf("store scheduled ref: %v", err)
	}

	ref, found, err := repo.Lookup(ctx, 1, "key-a")
	if err != nil || !found {
		t.Fatalf("lookup status ref: found=%v err=%v", found, err)
	}
	if ref.Scheduled || ref.ID != 10 {
		t.Fatalf("unexpected status ref: %+v", ref)
	}

	ref, found, err = repo.Lookup(ctx, 1, "key-b")
	if err != nil || !found {
		t.Fatalf("lookup scheduled ref: found=%v err=%v", found, err)
	}
	if !ref.Scheduled || ref.ID != 20 {
		t.Fatalf("unexpected scheduled ref: %+v", ref)
	}

	// Same key, different account.
	if _, found, _ := repo.Lookup(ctx, 2, "key-a"); found {
		t.Fatalf("keys must be scoped per account")
	}
}

func TestIdempotencyRecordExpires(t *testing.T) {
	mr, repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Store(ctx, 1, "key-a", model.EntityRef{ID: 10}); err != nil {
		t.Fatalf("store ref: %v", err)
	}

	mr.FastForward(IdempotencyTTL - time.Second)
	if _, found, err := repo.Lookup(ctx, 1, "key-a"); err != nil || !found {
		t.Fatalf("record must survive inside the window: found=%v err=%v", found, err)
	}

	mr.FastForward(2 * time.Second)
	if _, found, err := repo.Lookup(ctx, 1, "key-a"); err != nil || found {
		t.Fatalf("record must expire after the window: found=%v err=%v", found, err)
	}
}

func TestIdempotencyLookupRejectsMalformedValue(t *testing.T) {
	mr, repo := newTestRepo(t)

	if err := mr.Set("idempotency:status:1:key-a", "not-a-ref"); err != nil {
		t.Fatalf("seed malformed value: %v", err)
	}

	if _, _, err := repo.Lookup(context.Background(), 1, "key-a"); err == nil {
		t.Fatalf("expected error for malformed cache value")
	}
}
