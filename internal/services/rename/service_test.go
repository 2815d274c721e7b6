package rename

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

func TestParseDirective(t *testing.T) {
	cases := []struct {
		text string
		want Directive
		ok   bool
	}{
		{
			text: "@alice update_name New Name",
			want: Directive{Usernames: []string{"alice"}, DisplayName: "New Name"},
			ok:   true,
		},
		{
			text: "@alice @bob @carol update_name 同じ名前",
			want: Directive{Usernames: []string{"alice", "bob", "carol"}, DisplayName: "同じ名前"},
			ok:   true,
		},
		{text: "hello @alice update_name New Name", ok: false},
		{text: "@alice update_name New Name trailing\nsecond line", ok: false},
		{text: "@alice rename New Name", ok: false},
		{text: "update_name New Name", ok: false},
		{text: "@alice update_name ", ok: false},
	}

	for _, tc := range cases {
		got, ok := Parse(tc.text)
		if ok != tc.ok {
			t.Fatalf("Parse(%q) ok = %v, want %v", tc.text, ok, tc.ok)
		}
		if ok && !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Parse(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
	}
}

type fakeAccounts struct {
	byUsername map[string]model.Account
	renamed    map[int64]string
	failUpdate map[int64]error
}

func (s *fakeAccounts) FindLocalByUsername(_ context.Context, username string) (model.Account, error) {
	account, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return model.Account{}, errors.New("account not found")
	}
	return account, nil
}

func (s *fakeAccounts) UpdateDisplayName(_ context.Context, accountID int64, displayName string) error {
	if err := s.failUpdate[accountID]; err != nil {
		return err
	}
	if s.renamed == nil {
		s.renamed = make(map[int64]string)
	}
	s.renamed[accountID] = displayName
	return nil
}

type recordingPublisher struct {
	posts map[int64]string
	fail  error
}

func (p *recordingPublisher) Post(_ context.Context, accountID int64, text string) error {
	if p.fail != nil {
		return p.fail
	}
	if p.posts == nil {
		p.posts = make(map[int64]string)
	}
	p.posts[accountID] = text
	return nil
}

func TestHandleRenamesEveryTargetIndependently(t *testing.T) {
	accounts := &fakeAccounts{
		byUsername: map[string]model.Account{
			"bob":   {ID: 2, Username: "bob"},
			"carol": {ID: 3, Username: "carol"},
		},
		failUpdate: map[int64]error{2: errors.New("update rejected")},
	}
	publisher := &recordingPublisher{}
	service := NewService(accounts, zap.NewNop())
	actor := model.Account{ID: 1, Username: "alice"}

	service.Handle(context.Background(), actor, "@bob @dave @carol update_name Renamed", publisher)

	// bob's update failed and dave does not exist; carol still went through.
	if got := accounts.renamed[3]; got != "Renamed" {
		t.Fatalf("unexpected carol display name: got %q want %q", got, "Renamed")
	}
	if _, ok := accounts.renamed[2]; ok {
		t.Fatalf("bob's failed update must not be recorded")
	}

	want := fmt.Sprintf("%sによって「%s」に改名させられました", "alice", "Renamed")
	if got := publisher.posts[3]; got != want {
		t.Fatalf("unexpected announcement: got %q want %q", got, want)
	}
	if _, ok := publisher.posts[2]; ok {
		t.Fatalf("no announcement expected for a failed rename")
	}
}

func TestHandleIgnoresNonDirectiveText(t *testing.T) {
	accounts := &fakeAccounts{byUsername: map[string]model.Account{
		"bob": {ID: 2, Username: "bob"},
	}}
	publisher := &recordingPublisher{}
	service := NewService(accounts, zap.NewNop())

	service.Handle(context.Background(), model.Account{ID: 1, Username: "alice"}, "just mentioning @bob here", publisher)

	if len(accounts.renamed) != 0 || len(publisher.posts) != 0 {
		t.Fatalf("plain mention must not rename anyone")
	}
}
