package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
	ratesvc "github.com/MakeNowJust/mastodon/internal/services/rate"
	"github.com/MakeNowJust/mastodon/internal/services/statuses"
	"github.com/MakeNowJust/mastodon/internal/transport/http/dto"
	httperrors "github.com/MakeNowJust/mastodon/internal/transport/http/errors"
	"github.com/MakeNowJust/mastodon/internal/transport/http/identity"
)

type StatusHandler struct {
	statuses *statuses.Service
	limiter  *ratesvc.Limiter
	log      *zap.Logger
}

func NewStatusHandler(service *statuses.Service, limiter *ratesvc.Limiter, log *zap.Logger) *StatusHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &StatusHandler{statuses: service, limiter: limiter, log: log}
}

func (h *StatusHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := identity.AccountID(r.Context())
	if !ok {
		httperrors.Write(w, http.StatusUnauthorized, httperrors.APIError{
			Code:    "UNAUTHORIZED",
			Message: "acting account is not resolved",
		})
		return
	}

	if h.limiter != nil {
		retryAfter, allowed, err := h.limiter.AllowPublish(r.Context(), accountID)
		if err != nil {
			// Throttling trouble never blocks publication.
			h.log.Warn("publish rate check failed", zap.Int64("account_id", accountID), zap.Error(err))
		} else if !allowed {
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
			httperrors.Write(w, http.StatusTooManyRequests, httperrors.RateLimitError{
				Code:          "RATE_LIMITED",
				Message:       "too many statuses, slow down",
				RetryAfterSec: retryAfter,
			})
			return
		}
	}

	var body dto.CreateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "BAD_REQUEST",
			Message: "malformed request body",
		})
		return
	}

	req := statuses.CreateRequest{
		Text:           body.Status,
		InReplyToID:    body.InReplyToID,
		Sensitive:      body.Sensitive,
		Visibility:     body.Visibility,
		SpoilerText:    body.SpoilerText,
		Language:       body.Language,
		ScheduledAt:    body.ScheduledAt,
		MediaIDs:       body.MediaIDs,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	}
	if body.Poll != nil {
		req.Poll = &model.PollSpec{
			Options:   body.Poll.Options,
			ExpiresAt: body.Poll.ExpiresAt,
			Multiple:  body.Poll.Multiple,
		}
	}
	if body.Application != nil {
		req.ApplicationID = &body.Application.ID
	}

	result, err := h.statuses.Create(r.Context(), accountID, req)
	if err != nil {
		writeStatusError(w, err)
		return
	}

	if result.Scheduled != nil {
		httperrors.Write(w, http.StatusOK, dto.ScheduledFromModel(*result.Scheduled))
		return
	}
	httperrors.Write(w, http.StatusOK, dto.StatusFromModel(*result.Status))
}

func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "BAD_REQUEST",
			Message: "malformed status id",
		})
		return
	}

	status, err := h.statuses.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, statuses.ErrNotFound) {
			httperrors.Write(w, http.StatusNotFound, httperrors.APIError{
				Code:    "NOT_FOUND",
				Message: "status not found",
			})
			return
		}
		httperrors.Internal(w)
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatusFromModel(status))
}

func writeStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, statuses.ErrTooManyMedia):
		httperrors.Unprocessable(w, "TOO_MANY_MEDIA", "cannot attach more than 4 files")
	case errors.Is(err, statuses.ErrMixedMediaTypes):
		httperrors.Unprocessable(w, "MIXED_MEDIA_TYPES", "cannot attach a video or audio file together with other attachments")
	case errors.Is(err, statuses.ErrPollWithMedia):
		httperrors.Unprocessable(w, "POLL_WITH_MEDIA", "cannot attach both a poll and media")
	case errors.Is(err, statuses.ErrInvalidScheduleTime):
		httperrors.Unprocessable(w, "INVALID_SCHEDULE_TIME", "scheduled_at is malformed")
	case errors.Is(err, statuses.ErrStatusValidation):
		httperrors.Unprocessable(w, "STATUS_INVALID", err.Error())
	case errors.Is(err, statuses.ErrValidation):
		httperrors.Write(w, http.StatusBadRequest, httperrors.APIError{
			Code:    "BAD_REQUEST",
			Message: "invalid request",
		})
	default:
		httperrors.Internal(w)
	}
}
