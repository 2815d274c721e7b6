package language

import (
	"context"
	"testing"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

func TestResolveCode(t *testing.T) {
	service := NewService(nil)

	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{input: "en", want: "en", ok: true},
		{input: "ja", want: "ja", ok: true},
		{input: "pt-BR", want: "pt", ok: true},
		{input: "Japanese", want: "ja", ok: true},
		{input: "german", want: "de", ok: true},
		{input: "  French  ", want: "fr", ok: true},
		{input: "", ok: false},
		{input: "klingon!!", ok: false},
	}

	for _, tc := range cases {
		got, ok := service.ResolveCode(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ResolveCode(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestHeuristicDetector(t *testing.T) {
	detector := HeuristicDetector{}
	ctx := context.Background()

	if got := detector.Detect(ctx, "whatever", model.Account{DefaultLanguage: "fi"}); got != "fi" {
		t.Fatalf("account language must win: got %q want %q", got, "fi")
	}

	cases := []struct {
		text string
		want string
	}{
		{text: "こんにちは世界", want: "ja"},
		{text: "カタカナ", want: "ja"},
		{text: "привет мир", want: "ru"},
		{text: "안녕하세요", want: "ko"},
		{text: "hello world", want: "en"},
		{text: "", want: "en"},
	}

	for _, tc := range cases {
		if got := detector.Detect(ctx, tc.text, model.Account{}); got != tc.want {
			t.Fatalf("Detect(%q) = %q, want %q", tc.text, got, tc.want)
		}
	}
}
