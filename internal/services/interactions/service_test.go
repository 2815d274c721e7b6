package interactions

import (
	"context"
	"fmt"
	"strconv"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	redrepo "github.com/MakeNowJust/mastodon/internal/repo/redis"
)

type fakeFollows struct {
	edges map[[2]int64]bool
}

func (s *fakeFollows) IsFollowing(_ context.Context, fromID, toID int64) (bool, error) {
	return s.edges[[2]int64{fromID, toID}], nil
}

func newRedisBackedService(t *testing.T) (*Service, *goredis.Client, *fakeFollows) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := redrepo.NewInteractionsRepo(client)
	follows := &fakeFollows{edges: make(map[[2]int64]bool)}

	return NewService(repo, repo, follows), client, follows
}

// friendshipScore reads the sorted set the recommendation system consumes.
func friendshipScore(t *testing.T, client *goredis.Client, fromID, toID int64) float64 {
	t.Helper()

	key := fmt.Sprintf("potential_friendship:%d", toID)
	score, err := client.ZScore(context.Background(), key, strconv.FormatInt(fromID, 10)).Result()
	if err == goredis.Nil {
		return 0
	}
	if err != nil {
		t.Fatalf("read friendship score: %v", err)
	}
	return score
}

func replyCounter(t *testing.T, client *goredis.Client) int64 {
	t.Helper()

	count, err := client.Get(context.Background(), "interactions:replies").Int64()
	if err == goredis.Nil {
		return 0
	}
	if err != nil {
		t.Fatalf("read reply counter: %v", err)
	}
	return count
}

func TestRecordReplyAccumulatesPotentialFriendship(t *testing.T) {
	service, client, _ := newRedisBackedService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := service.RecordReply(ctx, 1, 2); err != nil {
			t.Fatalf("record reply #%d: %v", i+1, err)
		}
	}

	if score := friendshipScore(t, client, 1, 2); score != 3*replyWeight {
		t.Fatalf("unexpected score: got %v want %v", score, 3*replyWeight)
	}

	// The signal is directed; the reverse edge is untouched.
	if reverse := friendshipScore(t, client, 2, 1); reverse != 0 {
		t.Fatalf("unexpected reverse score: got %v want 0", reverse)
	}
}

func TestRecordReplySkipsExistingFollows(t *testing.T) {
	service, client, follows := newRedisBackedService(t)
	follows.edges[[2]int64{1, 2}] = true
	ctx := context.Background()

	if err := service.RecordReply(ctx, 1, 2); err != nil {
		t.Fatalf("record reply: %v", err)
	}

	if count := replyCounter(t, client); count != 1 {
		t.Fatalf("reply counter not incremented for follow: got %d want 1", count)
	}
	if score := friendshipScore(t, client, 1, 2); score != 0 {
		t.Fatalf("existing follow must not leave a friendship signal, got %v", score)
	}
}

func TestRecordReplyIgnoresSelfReplies(t *testing.T) {
	service, client, _ := newRedisBackedService(t)
	ctx := context.Background()

	if err := service.RecordReply(ctx, 5, 5); err != nil {
		t.Fatalf("record self reply: %v", err)
	}

	if count := replyCounter(t, client); count != 0 {
		t.Fatalf("self reply must not count: got %d want 0", count)
	}
}
