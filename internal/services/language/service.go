package language

import (
	"context"
	"strings"
	"sync"
	"unicode"

	xlang "golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/MakeNowJust/mastodon/internal/domain/model"
)

const fallbackLanguage = "en"

// Detector guesses the language of free text. The production detector is an
// external collaborator; HeuristicDetector is the built-in default.
type Detector interface {
	Detect(ctx context.Context, text string, account model.Account) string
}

type Service struct {
	detector Detector
}

func NewService(detector Detector) *Service {
	if detector == nil {
		detector = HeuristicDetector{}
	}
	return &Service{detector: detector}
}

// ResolveCode turns an ISO code ("en", "pt-BR", "eng") or an English
// language name ("Japanese") into a 2-letter code.
func (s *Service) ResolveCode(nameOrCode string) (string, bool) {
	candidate := strings.TrimSpace(nameOrCode)
	if candidate == "" {
		return "", false
	}

	if tag, err := xlang.Parse(candidate); err == nil {
		if base, conf := tag.Base(); conf != xlang.No {
			return base.String(), true
		}
	}

	if code, ok := namesToCodes()[strings.ToLower(candidate)]; ok {
		return code, true
	}

	return "", false
}

func (s *Service) Detect(ctx context.Context, text string, account model.Account) string {
	return s.detector.Detect(ctx, text, account)
}

// HeuristicDetector prefers the author's configured language and only
// falls back to a crude script check. Good enough as a default; swap in a
// real detector for anything serious.
type HeuristicDetector struct{}

func (HeuristicDetector) Detect(_ context.Context, text string, account model.Account) string {
	if code := strings.TrimSpace(account.DefaultLanguage); code != "" {
		return code
	}

	for _, r := range text {
		if unicode.In(r, unicode.Hiragana, unicode.Katakana) {
			return "ja"
		}
		if unicode.In(r, unicode.Cyrillic) {
			return "ru"
		}
		if unicode.In(r, unicode.Hangul) {
			return "ko"
		}
	}

	return fallbackLanguage
}

var (
	namesOnce sync.Once
	namesMap  map[string]string
)

func namesToCodes() map[string]string {
	namesOnce.Do(func() {
		namesMap = make(map[string]string, 64)
		en := display.English.Languages()
		for _, code := range []string{
			"en", "ja", "de", "fr", "es", "pt", "it", "nl", "ru", "zh",
			"ko", "ar", "pl", "tr", "sv", "no", "da", "fi", "cs", "uk",
			"el", "he", "hi", "th", "vi", "id", "hu", "ro", "bg", "ca",
		} {
			tag := xlang.MustParse(code)
			namesMap[strings.ToLower(en.Name(tag))] = code
		}
	})
	return namesMap
}
