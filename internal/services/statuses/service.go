package statuses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
	"github.com/MakeNowJust/mastodon/internal/queue"
	pgrepo "github.com/MakeNowJust/mastodon/internal/repo/postgres"
	renamesvc "github.com/MakeNowJust/mastodon/internal/services/rename"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrDependenciesNil     = errors.New("statuses dependencies are not configured")
	ErrTooManyMedia        = errors.New("too many media attachments")
	ErrMixedMediaTypes     = errors.New("cannot attach a video or audio file together with other attachments")
	ErrPollWithMedia       = errors.New("poll cannot be combined with media attachments")
	ErrInvalidScheduleTime = errors.New("scheduled time is malformed")
	ErrStatusValidation    = errors.New("status validation failed")
	ErrNotFound            = errors.New("status not found")
)

type AccountStore interface {
	GetByID(ctx context.Context, id int64) (model.Account, error)
}

type StatusStore interface {
	Create(ctx context.Context, rec pgrepo.CreateStatusRecord) (model.Status, error)
	GetByID(ctx context.Context, id int64) (model.Status, error)
}

type ScheduledStore interface {
	Create(ctx context.Context, accountID int64, scheduledAt time.Time, params model.StatusParams) (model.ScheduledStatus, error)
	GetByID(ctx context.Context, id int64) (model.ScheduledStatus, error)
}

type MediaStore interface {
	FindUnattached(ctx context.Context, accountID int64, ids []int64) ([]model.MediaAttachment, error)
}

type IdempotencyStore interface {
	Lookup(ctx context.Context, accountID int64, key string) (model.EntityRef, bool, error)
	Store(ctx context.Context, accountID int64, key string, ref model.EntityRef) error
}

type LanguageResolver interface {
	ResolveCode(nameOrCode string) (string, bool)
	Detect(ctx context.Context, text string, account model.Account) string
}

type JobQueue interface {
	Enqueue(ctx context.Context, taskType string, payload any) error
	EnqueueAt(ctx context.Context, taskType string, payload any, when time.Time) error
}

type ReplySignaler interface {
	RecordReply(ctx context.Context, fromID, toID int64) error
}

// StatusProcessor is the post-commit hook shape shared by the mention and
// hashtag collaborators.
type StatusProcessor interface {
	Process(ctx context.Context, status model.Status) error
}

type Dependencies struct {
	Accounts     AccountStore
	Statuses     StatusStore
	Scheduled    ScheduledStore
	Media        MediaStore
	Idempotency  IdempotencyStore
	Language     LanguageResolver
	Queue        JobQueue
	Interactions ReplySignaler
	Rename       *renamesvc.Service
	Processors   []StatusProcessor
	Logger       *zap.Logger
}

type Service struct {
	accounts     AccountStore
	statuses     StatusStore
	scheduled    ScheduledStore
	media        MediaStore
	idempotency  IdempotencyStore
	language     LanguageResolver
	queue        JobQueue
	interactions ReplySignaler
	rename       *renamesvc.Service
	processors   []StatusProcessor
	log          *zap.Logger
	now          func() time.Time
}

type CreateRequest struct {
	Text           string
	InReplyToID    *int64
	Sensitive      *bool
	Visibility     string
	SpoilerText    *string
	Language       string
	ScheduledAt    string
	Poll           *model.PollSpec
	MediaIDs       []int64
	ApplicationID  *int64
	IdempotencyKey string
}

// CreateResult carries exactly one of the two terminal outcomes.
type CreateResult struct {
	Status    *model.Status
	Scheduled *model.ScheduledStatus
}

func NewService(deps Dependencies) *Service {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		accounts:     deps.Accounts,
		statuses:     deps.Statuses,
		scheduled:    deps.Scheduled,
		media:        deps.Media,
		idempotency:  deps.Idempotency,
		language:     deps.Language,
		queue:        deps.Queue,
		interactions: deps.Interactions,
		rename:       deps.Rename,
		processors:   deps.Processors,
		log:          log,
		now:          time.Now,
	}
}

// Create runs the whole publication pipeline: idempotency lookup, media
// resolution, attribute normalization, the immediate-vs-scheduled branch,
// the atomic write, and post-commit fan-out. The idempotency record is
// written only after the entity is durably committed.
func (s *Service) Create(ctx context.Context, accountID int64, req CreateRequest) (CreateResult, error) {
	return s.create(ctx, accountID, req, true)
}

func (s *Service) create(ctx context.Context, accountID int64, req CreateRequest, allowRename bool) (CreateResult, error) {
	if accountID <= 0 {
		return CreateResult{}, ErrValidation
	}
	if s.accounts == nil || s.statuses == nil || s.media == nil || s.language == nil {
		return CreateResult{}, ErrDependenciesNil
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		if result, ok := s.lookupExisting(ctx, accountID, key); ok {
			return result, nil
		}
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return CreateResult{}, fmt.Errorf("load publishing account: %w", err)
	}

	media, err := s.resolveMedia(ctx, accountID, req.MediaIDs, req.Poll != nil)
	if err != nil {
		return CreateResult{}, err
	}

	norm, err := s.normalize(ctx, account, req, len(media))
	if err != nil {
		return CreateResult{}, err
	}

	if err := s.validateCandidate(norm, len(media), req.Poll); err != nil {
		return CreateResult{}, err
	}

	if norm.ScheduledAt != nil {
		scheduled, err := s.createScheduled(ctx, account, req, norm, media)
		if err != nil {
			return CreateResult{}, err
		}
		s.storeIdempotency(ctx, accountID, key, model.EntityRef{Scheduled: true, ID: scheduled.ID})
		return CreateResult{Scheduled: &scheduled}, nil
	}

	status, err := s.statuses.Create(ctx, pgrepo.CreateStatusRecord{
		AccountID:     accountID,
		Text:          norm.Text,
		InReplyToID:   req.InReplyToID,
		Sensitive:     norm.Sensitive,
		SpoilerText:   norm.SpoilerText,
		Visibility:    string(norm.Visibility),
		Language:      norm.Language,
		ApplicationID: req.ApplicationID,
		MediaIDs:      mediaAttachmentIDs(media),
		Poll:          req.Poll,
	})
	if err != nil {
		return CreateResult{}, writerError(err)
	}

	s.postCommit(ctx, account, status, allowRename)
	s.storeIdempotency(ctx, accountID, key, model.EntityRef{ID: status.ID})

	return CreateResult{Status: &status}, nil
}

func (s *Service) createScheduled(ctx context.Context, account model.Account, req CreateRequest, norm normalized, media []model.MediaAttachment) (model.ScheduledStatus, error) {
	if s.scheduled == nil {
		return model.ScheduledStatus{}, ErrDependenciesNil
	}

	params := model.StatusParams{
		Text:          norm.Text,
		InReplyToID:   req.InReplyToID,
		Sensitive:     norm.Sensitive,
		SpoilerText:   norm.SpoilerText,
		Visibility:    norm.Visibility,
		Language:      norm.Language,
		ApplicationID: req.ApplicationID,
		MediaIDs:      mediaAttachmentIDs(media),
		Poll:          req.Poll,
	}

	scheduled, err := s.scheduled.Create(ctx, account.ID, *norm.ScheduledAt, params)
	if err != nil {
		return model.ScheduledStatus{}, writerError(err)
	}

	// The queue materializes the row at its scheduled time. Losing the
	// task is recoverable out of band; the durable row is the source of
	// truth.
	if s.queue != nil {
		err := s.queue.EnqueueAt(ctx, queue.TaskPublishScheduled,
			queue.PublishScheduledPayload{ScheduledStatusID: scheduled.ID}, scheduled.ScheduledAt)
		if err != nil {
			s.log.Warn("enqueue scheduled publication failed",
				zap.Int64("scheduled_status_id", scheduled.ID),
				zap.Error(err))
		}
	}

	return scheduled, nil
}

// PublishScheduled materializes a scheduled status through the immediate
// path. The scheduled row is consumed inside the same transaction as the
// status insert, so a redelivered task publishes nothing the second time.
func (s *Service) PublishScheduled(ctx context.Context, scheduledID int64) (model.Status, error) {
	if scheduledID <= 0 {
		return model.Status{}, ErrValidation
	}
	if s.scheduled == nil || s.statuses == nil || s.accounts == nil {
		return model.Status{}, ErrDependenciesNil
	}

	scheduled, err := s.scheduled.GetByID(ctx, scheduledID)
	if err != nil {
		if errors.Is(err, pgrepo.ErrScheduledStatusNotFound) {
			return model.Status{}, ErrNotFound
		}
		return model.Status{}, fmt.Errorf("load scheduled status: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, scheduled.AccountID)
	if err != nil {
		return model.Status{}, fmt.Errorf("load scheduling account: %w", err)
	}

	params := scheduled.Params
	status, err := s.statuses.Create(ctx, pgrepo.CreateStatusRecord{
		AccountID:       scheduled.AccountID,
		Text:            params.Text,
		InReplyToID:     params.InReplyToID,
		Sensitive:       params.Sensitive,
		SpoilerText:     params.SpoilerText,
		Visibility:      string(params.Visibility),
		Language:        params.Language,
		ApplicationID:   params.ApplicationID,
		MediaIDs:        params.MediaIDs,
		Poll:            params.Poll,
		FromScheduledID: &scheduled.ID,
	})
	if err != nil {
		if errors.Is(err, pgrepo.ErrScheduledGone) {
			return model.Status{}, ErrNotFound
		}
		return model.Status{}, writerError(err)
	}

	s.postCommit(ctx, account, status, false)

	return status, nil
}

func (s *Service) Get(ctx context.Context, id int64) (model.Status, error) {
	if id <= 0 {
		return model.Status{}, ErrValidation
	}
	if s.statuses == nil {
		return model.Status{}, ErrDependenciesNil
	}

	status, err := s.statuses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgrepo.ErrStatusNotFound) {
			return model.Status{}, ErrNotFound
		}
		return model.Status{}, fmt.Errorf("load status: %w", err)
	}

	return status, nil
}

// lookupExisting resolves an idempotency hit to the entity the original
// request produced. Cache trouble fails open: publishing without dedup
// beats refusing to publish.
func (s *Service) lookupExisting(ctx context.Context, accountID int64, key string) (CreateResult, bool) {
	if s.idempotency == nil {
		return CreateResult{}, false
	}

	ref, found, err := s.idempotency.Lookup(ctx, accountID, key)
	if err != nil {
		s.log.Warn("idempotency lookup failed, proceeding without dedup",
			zap.Int64("account_id", accountID),
			zap.Error(err))
		return CreateResult{}, false
	}
	if !found {
		return CreateResult{}, false
	}

	if ref.Scheduled {
		if s.scheduled == nil {
			return CreateResult{}, false
		}
		scheduled, err := s.scheduled.GetByID(ctx, ref.ID)
		if err != nil {
			s.log.Warn("idempotency record points to missing scheduled status",
				zap.Int64("scheduled_status_id", ref.ID),
				zap.Error(err))
			return CreateResult{}, false
		}
		return CreateResult{Scheduled: &scheduled}, true
	}

	status, err := s.statuses.GetByID(ctx, ref.ID)
	if err != nil {
		s.log.Warn("idempotency record points to missing status",
			zap.Int64("status_id", ref.ID),
			zap.Error(err))
		return CreateResult{}, false
	}

	return CreateResult{Status: &status}, true
}

func (s *Service) storeIdempotency(ctx context.Context, accountID int64, key string, ref model.EntityRef) {
	if key == "" || s.idempotency == nil {
		return
	}

	if err := s.idempotency.Store(ctx, accountID, key, ref); err != nil {
		s.log.Warn("idempotency store failed",
			zap.Int64("account_id", accountID),
			zap.Error(err))
	}
}

// postCommit runs the side effects that only make sense for a live status:
// mention/hashtag processing, fan-out dispatch, the reply signal and the
// rename side-channel. None of them can fail the already-committed status.
func (s *Service) postCommit(ctx context.Context, account model.Account, status model.Status, allowRename bool) {
	for _, processor := range s.processors {
		if err := processor.Process(ctx, status); err != nil {
			s.log.Warn("status processor failed",
				zap.Int64("status_id", status.ID),
				zap.Error(err))
		}
	}

	s.dispatch(ctx, status)
	s.emitReplySignal(ctx, status)

	if allowRename && s.rename != nil {
		s.rename.Handle(ctx, account, status.Text, announcePublisher{s})
	}
}

func (s *Service) dispatch(ctx context.Context, status model.Status) {
	if s.queue == nil {
		return
	}

	// Content behind a spoiler is never pre-fetched.
	if status.SpoilerText == "" {
		s.enqueue(ctx, queue.TaskCrawlLinks, queue.StatusPayload{StatusID: status.ID})
	}
	s.enqueue(ctx, queue.TaskDistribute, queue.StatusPayload{StatusID: status.ID})
	s.enqueue(ctx, queue.TaskDistributeFederation, queue.StatusPayload{StatusID: status.ID})

	if status.Poll != nil {
		err := s.queue.EnqueueAt(ctx, queue.TaskPollExpireNotify,
			queue.PollExpirePayload{PollID: status.Poll.ID, StatusID: status.ID}, status.Poll.ExpiresAt)
		if err != nil {
			s.log.Warn("enqueue poll expiry failed",
				zap.Int64("status_id", status.ID),
				zap.Error(err))
		}
	}
}

func (s *Service) enqueue(ctx context.Context, taskType string, payload any) {
	if err := s.queue.Enqueue(ctx, taskType, payload); err != nil {
		s.log.Warn("enqueue fan-out job failed",
			zap.String("task", taskType),
			zap.Error(err))
	}
}

func (s *Service) emitReplySignal(ctx context.Context, status model.Status) {
	if s.interactions == nil || !status.Reply() {
		return
	}

	parent, err := s.statuses.GetByID(ctx, *status.InReplyToID)
	if err != nil {
		s.log.Warn("load reply parent for interaction signal failed",
			zap.Int64("status_id", status.ID),
			zap.Error(err))
		return
	}
	if parent.AccountID == status.AccountID {
		return
	}

	if err := s.interactions.RecordReply(ctx, status.AccountID, parent.AccountID); err != nil {
		s.log.Warn("record reply interaction failed",
			zap.Int64("status_id", status.ID),
			zap.Error(err))
	}
}

// announcePublisher posts rename announcements through the pipeline with
// the rename side-channel disabled, which caps directive recursion at one
// level.
type announcePublisher struct {
	s *Service
}

func (p announcePublisher) Post(ctx context.Context, accountID int64, text string) error {
	_, err := p.s.create(ctx, accountID, CreateRequest{Text: text}, false)
	return err
}

func writerError(err error) error {
	if errors.Is(err, pgrepo.ErrMediaClaim) || errors.Is(err, pgrepo.ErrConstraint) {
		return fmt.Errorf("%w: %s", ErrStatusValidation, err)
	}
	return err
}
