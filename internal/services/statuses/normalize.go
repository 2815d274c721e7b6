package statuses

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MakeNowJust/mastodon/internal/domain/enums"
	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

const (
	// minScheduleOffset is the closest allowed scheduled_at. Anything
	// nearer is treated as an immediate publication, not an error.
	minScheduleOffset = 5 * time.Minute

	minPollOptions = 2
	maxPollOptions = 4
	maxCharacters  = 500
)

// normalized is the canonical attribute set derived once from a request.
// It is passed by value to later stages and never mutated after this
// point, so no stage can observe another stage's edits.
type normalized struct {
	Text        string
	Sensitive   bool
	SpoilerText string
	Visibility  enums.Visibility
	Language    string
	ScheduledAt *time.Time
}

func (s *Service) normalize(ctx context.Context, account model.Account, req CreateRequest, mediaCount int) (normalized, error) {
	text := req.Text
	spoiler := ""
	if req.SpoilerText != nil {
		spoiler = *req.SpoilerText
	}

	// A spoiler with no body becomes the body, so the warning is not
	// shown twice.
	if blank(text) && !blank(spoiler) {
		text, spoiler = spoiler, ""
	}
	if blank(text) && mediaCount > 0 {
		text = "."
	}

	visibility := enums.Visibility(req.Visibility)
	if req.Visibility == "" {
		visibility = account.DefaultVisibility
		if visibility == "" {
			visibility = enums.VisibilityPublic
		}
	}
	if !visibility.Valid() {
		return normalized{}, fmt.Errorf("%w: unknown visibility %q", ErrStatusValidation, req.Visibility)
	}
	// Policy override for silenced accounts, not a user error.
	if account.Silenced && visibility == enums.VisibilityPublic {
		visibility = enums.VisibilityUnlisted
	}

	sensitive := account.DefaultSensitive
	if req.Sensitive != nil {
		sensitive = *req.Sensitive
	}
	if spoiler != "" {
		sensitive = true
	}

	lang := ""
	if !blank(req.Language) {
		if code, ok := s.language.ResolveCode(req.Language); ok {
			lang = code
		}
	}
	if lang == "" {
		lang = strings.TrimSpace(account.DefaultLanguage)
	}
	if lang == "" {
		lang = s.language.Detect(ctx, text, account)
	}

	var scheduledAt *time.Time
	if !blank(req.ScheduledAt) {
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(req.ScheduledAt))
		if err != nil {
			return normalized{}, fmt.Errorf("%w: %q", ErrInvalidScheduleTime, req.ScheduledAt)
		}
		if at.Sub(s.now()) >= minScheduleOffset {
			t := at.UTC()
			scheduledAt = &t
		}
	}

	return normalized{
		Text:        text,
		Sensitive:   sensitive,
		SpoilerText: spoiler,
		Visibility:  visibility,
		Language:    lang,
		ScheduledAt: scheduledAt,
	}, nil
}

// validateCandidate runs the same checks for immediate and scheduled
// publications. The scheduled path calls it before persisting anything, so
// a scheduled status cannot fail later for a reason knowable now.
func (s *Service) validateCandidate(norm normalized, mediaCount int, poll *model.PollSpec) error {
	if blank(norm.Text) && mediaCount == 0 {
		return fmt.Errorf("%w: text can't be blank", ErrStatusValidation)
	}
	if utf8.RuneCountInString(norm.Text) > maxCharacters {
		return fmt.Errorf("%w: text is too long", ErrStatusValidation)
	}

	if poll != nil {
		if len(poll.Options) < minPollOptions || len(poll.Options) > maxPollOptions {
			return fmt.Errorf("%w: poll must have between %d and %d options", ErrStatusValidation, minPollOptions, maxPollOptions)
		}
		for _, option := range poll.Options {
			if blank(option) {
				return fmt.Errorf("%w: poll options can't be blank", ErrStatusValidation)
			}
		}
		if poll.ExpiresAt.Before(s.now().Add(minScheduleOffset)) {
			return fmt.Errorf("%w: poll expiry is too soon", ErrStatusValidation)
		}
	}

	return nil
}

func blank(value string) bool {
	return strings.TrimSpace(value) == ""
}
