package rename

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

var ErrDependenciesNil = errors.New("rename dependencies are not configured")

// directivePattern matches "@alice @bob update_name New Name". The whole
// text must be the directive.
var directivePattern = regexp.MustCompile(`\A@([^ ]+(?: *@[^ ]+)*) update_name (.+)\z`)

type Directive struct {
	Usernames   []string
	DisplayName string
}

// Parse reports whether text is a rename directive.
func Parse(text string) (Directive, bool) {
	m := directivePattern.FindStringSubmatch(text)
	if m == nil {
		return Directive{}, false
	}

	raw := strings.Split(m[1], "@")
	usernames := make([]string, 0, len(raw))
	for _, name := range raw {
		name = strings.TrimSpace(name)
		if name != "" {
			usernames = append(usernames, name)
		}
	}
	if len(usernames) == 0 {
		return Directive{}, false
	}

	return Directive{Usernames: usernames, DisplayName: m[2]}, true
}

type AccountStore interface {
	FindLocalByUsername(ctx context.Context, username string) (model.Account, error)
	UpdateDisplayName(ctx context.Context, accountID int64, displayName string) error
}

// Publisher posts the announcement status on behalf of the renamed account.
// The orchestrator injects a publish path with the rename side-channel
// disabled, so announcements cannot trigger further renames.
type Publisher interface {
	Post(ctx context.Context, accountID int64, text string) error
}

type Service struct {
	accounts AccountStore
	log      *zap.Logger
}

func NewService(accounts AccountStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{accounts: accounts, log: log}
}

// Handle applies a rename directive found in actor's freshly committed
// status. Each addressed account is processed independently; one failing
// target never blocks the others, and nothing here fails the primary
// publication.
func (s *Service) Handle(ctx context.Context, actor model.Account, text string, publisher Publisher) {
	directive, ok := Parse(text)
	if !ok {
		return
	}
	if s.accounts == nil || publisher == nil {
		s.log.Warn("rename directive ignored", zap.Error(ErrDependenciesNil))
		return
	}

	for _, username := range directive.Usernames {
		if err := s.applyOne(ctx, actor, username, directive.DisplayName, publisher); err != nil {
			s.log.Warn("rename target skipped",
				zap.String("username", username),
				zap.Error(err))
		}
	}
}

func (s *Service) applyOne(ctx context.Context, actor model.Account, username, displayName string, publisher Publisher) error {
	target, err := s.accounts.FindLocalByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find rename target: %w", err)
	}

	if err := s.accounts.UpdateDisplayName(ctx, target.ID, displayName); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}

	announcement := fmt.Sprintf("%sによって「%s」に改名させられました", actor.Acct(), displayName)
	if err := publisher.Post(ctx, target.ID, announcement); err != nil {
		return fmt.Errorf("post rename announcement: %w", err)
	}

	return nil
}
