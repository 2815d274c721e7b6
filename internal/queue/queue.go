package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer is the fire-and-forget side of the job queue. The publication
// pipeline never waits on, or retries for, the consumers.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func NewClient(redisAddr, redisPassword string, redisDB int) *asynq.Client {
	return asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})
}

func (e *Enqueuer) Enqueue(ctx context.Context, taskType string, payload any) error {
	return e.enqueue(ctx, taskType, payload)
}

func (e *Enqueuer) EnqueueAt(ctx context.Context, taskType string, payload any, when time.Time) error {
	return e.enqueue(ctx, taskType, payload, asynq.ProcessAt(when))
}

func (e *Enqueuer) enqueue(ctx context.Context, taskType string, payload any, opts ...asynq.Option) error {
	if e.client == nil {
		return fmt.Errorf("asynq client is nil")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", taskType, err)
	}

	if _, err := e.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), opts...); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	return nil
}
