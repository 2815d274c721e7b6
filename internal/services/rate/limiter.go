package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const (
	publishWindow      = 5 * time.Minute
	publishBurstWindow = 30 * time.Second
)

type WindowStore interface {
	IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	WindowState(ctx context.Context, key string) (int64, time.Duration, error)
}

// Limiter throttles status publication per account over two fixed windows:
// a sustained 5-minute budget and a short burst budget. A zero budget
// disables the corresponding window.
type Limiter struct {
	store     WindowStore
	perWindow int
	burst     int
}

func NewLimiter(store WindowStore, perWindow, burst int) *Limiter {
	if perWindow < 0 {
		perWindow = 0
	}
	if burst < 0 {
		burst = 0
	}

	return &Limiter{
		store:     store,
		perWindow: perWindow,
		burst:     burst,
	}
}

// AllowPublish consumes one publication slot. When blocked it reports how
// many seconds the caller should wait before retrying.
func (l *Limiter) AllowPublish(ctx context.Context, accountID int64) (int64, bool, error) {
	if accountID <= 0 {
		return 0, false, fmt.Errorf("invalid account id")
	}
	if l.store == nil {
		return 0, false, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perWindow > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, windowKey(accountID), publishWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.perWindow) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.burst > 0 {
		count, ttl, err := l.store.IncrementWindow(ctx, burstKey(accountID), publishBurstWindow)
		if err != nil {
			return 0, false, err
		}
		if count > int64(l.burst) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if retryAfterSec > 0 {
		return retryAfterSec, false, nil
	}

	return 0, true, nil
}

// retryAfterPublish reports the current wait without consuming a slot.
func (l *Limiter) retryAfterPublish(ctx context.Context, accountID int64) (int64, error) {
	if accountID <= 0 {
		return 0, fmt.Errorf("invalid account id")
	}
	if l.store == nil {
		return 0, fmt.Errorf("rate limiter store is nil")
	}

	retryAfterSec := int64(0)

	if l.perWindow > 0 {
		count, ttl, err := l.store.WindowState(ctx, windowKey(accountID))
		if err != nil {
			return 0, err
		}
		if count >= int64(l.perWindow) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	if l.burst > 0 {
		count, ttl, err := l.store.WindowState(ctx, burstKey(accountID))
		if err != nil {
			return 0, err
		}
		if count >= int64(l.burst) {
			retryAfterSec = maxInt64(retryAfterSec, ceilSeconds(ttl))
		}
	}

	return retryAfterSec, nil
}

func windowKey(accountID int64) string {
	return "rate:publish:5m:" + strconv.FormatInt(accountID, 10)
}

func burstKey(accountID int64) string {
	return "rate:publish:30s:" + strconv.FormatInt(accountID, 10)
}

func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	if d%time.Second != 0 {
		sec++
	}
	if sec <= 0 {
		sec = 1
	}
	return sec
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
