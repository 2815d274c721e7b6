package workerapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
	"github.com/MakeNowJust/mastodon/internal/queue"
	statussvc "github.com/MakeNowJust/mastodon/internal/services/statuses"
)

var (
	linkPattern  = regexp.MustCompile(`https?://[^\s<>"']+`)
	titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
)

const (
	maxCrawledLinks = 3
	maxCrawlBody    = 256 << 10
)

type StatusReader interface {
	GetByID(ctx context.Context, id int64) (model.Status, error)
}

// Handler implements the queue consumers. Distribution and notification
// delivery are interface boundaries here; this service's own real work is
// the scheduled status materialization.
type Handler struct {
	statuses *statussvc.Service
	reader   StatusReader
	client   *http.Client
	log      *zap.Logger
}

func NewHandler(statuses *statussvc.Service, reader StatusReader, client *http.Client, log *zap.Logger) *Handler {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{statuses: statuses, reader: reader, client: client, log: log}
}

func (h *Handler) HandleCrawlLinks(ctx context.Context, task *asynq.Task) error {
	var payload queue.StatusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal crawl payload: %w", err)
	}

	status, err := h.reader.GetByID(ctx, payload.StatusID)
	if err != nil {
		return fmt.Errorf("load status for crawl: %w", err)
	}

	links := linkPattern.FindAllString(status.Text, maxCrawledLinks)
	for _, link := range links {
		title, err := h.fetchTitle(ctx, link)
		if err != nil {
			// A dead link is not worth a redelivery.
			h.log.Warn("crawl link failed",
				zap.Int64("status_id", status.ID),
				zap.String("url", link),
				zap.Error(err))
			continue
		}
		h.log.Info("crawled link preview",
			zap.Int64("status_id", status.ID),
			zap.String("url", link),
			zap.String("title", title))
	}

	return nil
}

func (h *Handler) fetchTitle(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build crawl request: %w", err)
	}
	req.Header.Set("User-Agent", "statuses-crawler/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected response status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCrawlBody))
	if err != nil {
		return "", fmt.Errorf("read page body: %w", err)
	}

	m := titlePattern.FindSubmatch(body)
	if m == nil {
		return "", nil
	}
	return strings.TrimSpace(string(m[1])), nil
}

func (h *Handler) HandleDistribute(ctx context.Context, task *asynq.Task) error {
	var payload queue.StatusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal distribute payload: %w", err)
	}

	h.log.Info("distribute to local timelines", zap.Int64("status_id", payload.StatusID))
	return nil
}

func (h *Handler) HandleDistributeFederation(ctx context.Context, task *asynq.Task) error {
	var payload queue.StatusPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal federation payload: %w", err)
	}

	h.log.Info("distribute to federation peers", zap.Int64("status_id", payload.StatusID))
	return nil
}

func (h *Handler) HandlePollExpireNotify(ctx context.Context, task *asynq.Task) error {
	var payload queue.PollExpirePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal poll expiry payload: %w", err)
	}

	h.log.Info("poll expired, notify voters",
		zap.Int64("poll_id", payload.PollID),
		zap.Int64("status_id", payload.StatusID))
	return nil
}

func (h *Handler) HandlePublishScheduled(ctx context.Context, task *asynq.Task) error {
	var payload queue.PublishScheduledPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal publish scheduled payload: %w", err)
	}

	status, err := h.statuses.PublishScheduled(ctx, payload.ScheduledStatusID)
	if err != nil {
		// A redelivered task finds the row already consumed.
		if errors.Is(err, statussvc.ErrNotFound) {
			h.log.Info("scheduled status already published",
				zap.Int64("scheduled_status_id", payload.ScheduledStatusID))
			return nil
		}
		return fmt.Errorf("publish scheduled status %d: %w", payload.ScheduledStatusID, err)
	}

	h.log.Info("scheduled status published",
		zap.Int64("scheduled_status_id", payload.ScheduledStatusID),
		zap.Int64("status_id", status.ID))
	return nil
}
