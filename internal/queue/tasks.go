package queue

// Task types consumed by cmd/worker. Every consumer is responsible for its
// own idempotency; delivery is at-least-once.
const (
	TaskCrawlLinks           = "status:crawl_links"
	TaskDistribute           = "status:distribute"
	TaskDistributeFederation = "status:distribute_federation"
	TaskPollExpireNotify     = "poll:expire_notify"
	TaskPublishScheduled     = "status:publish_scheduled"
)

type StatusPayload struct {
	StatusID int64 `json:"status_id"`
}

type PollExpirePayload struct {
	PollID   int64 `json:"poll_id"`
	StatusID int64 `json:"status_id"`
}

type PublishScheduledPayload struct {
	ScheduledStatusID int64 `json:"scheduled_status_id"`
}
