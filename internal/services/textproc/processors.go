package textproc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
	pgrepo "github.com/MakeNowJust/mastodon/internal/repo/postgres"
)

var (
	mentionPattern = regexp.MustCompile(`(?:^|[^/\w])@([a-zA-Z0-9_]+)`)
	hashtagPattern = regexp.MustCompile(`(?:^|[^/\w])#([\p{L}\p{N}_]+)`)
)

type AccountFinder interface {
	FindLocalByUsername(ctx context.Context, username string) (model.Account, error)
}

type MentionStore interface {
	CreateMention(ctx context.Context, statusID, accountID int64) error
}

type TagStore interface {
	TagStatus(ctx context.Context, statusID int64, name string) error
}

// MentionProcessor resolves @name references against local accounts and
// persists them as mention relations. Unknown names are skipped.
type MentionProcessor struct {
	accounts AccountFinder
	mentions MentionStore
}

func NewMentionProcessor(accounts AccountFinder, mentions MentionStore) *MentionProcessor {
	return &MentionProcessor{accounts: accounts, mentions: mentions}
}

func (p *MentionProcessor) Process(ctx context.Context, status model.Status) error {
	if p.accounts == nil || p.mentions == nil {
		return fmt.Errorf("mention processor dependencies are not configured")
	}

	seen := map[string]struct{}{}
	for _, m := range mentionPattern.FindAllStringSubmatch(status.Text, -1) {
		username := strings.ToLower(m[1])
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}

		account, err := p.accounts.FindLocalByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, pgrepo.ErrAccountNotFound) {
				continue
			}
			return fmt.Errorf("resolve mention %q: %w", username, err)
		}

		if err := p.mentions.CreateMention(ctx, status.ID, account.ID); err != nil {
			return fmt.Errorf("store mention %q: %w", username, err)
		}
	}

	return nil
}

// HashtagProcessor persists #tag references as tag relations.
type HashtagProcessor struct {
	tags TagStore
}

func NewHashtagProcessor(tags TagStore) *HashtagProcessor {
	return &HashtagProcessor{tags: tags}
}

func (p *HashtagProcessor) Process(ctx context.Context, status model.Status) error {
	if p.tags == nil {
		return fmt.Errorf("hashtag processor dependencies are not configured")
	}

	seen := map[string]struct{}{}
	for _, m := range hashtagPattern.FindAllStringSubmatch(status.Text, -1) {
		name := strings.ToLower(m[1])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		if err := p.tags.TagStatus(ctx, status.ID, name); err != nil {
			return fmt.Errorf("store hashtag %q: %w", name, err)
		}
	}

	return nil
}
