// Package validate screens model output before it reaches users.
// Smaller chat models occasionally emit degenerate repetition or drift
// into English mid-answer; both are cheaper to catch here than to
// apologize for in a report.
package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	ErrEmpty      = errors.New("response is empty")
	ErrGarbage    = errors.New("response contains degenerate repetition")
	ErrTooShort   = errors.New("response is too short")
	ErrTooEnglish = errors.New("response contains too much English")
	ErrErrorText  = errors.New("response contains error phrases")
)

var (
	charRunRe     = regexp.MustCompile(`(.)\1{20,}`)
	charSquashRe  = regexp.MustCompile(`(.)\1{3,}`)
	longPatternRe = regexp.MustCompile(`(\w{2,4})\1{15,}`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
)

var englishStopwords = []string{
	"the", "and", "or", "in", "of", "to", "for", "with", "by",
	"analysis", "price", "district", "property", "market",
}

var errorPhrases = []string{
	"мэдээлэл олдсонгүй",
	"алдаа гарлаа",
	"error",
	"failed",
}

// IsGarbage reports whether text looks like a degenerate generation:
// long single-character runs, mostly repeated words, or short repeated
// syllable patterns.
func IsGarbage(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 20 {
		return true
	}

	if charRunRe.MatchString(text) {
		return true
	}

	words := strings.Fields(text)
	if len(words) > 10 {
		repeated := 0
		for i := 0; i < len(words)-1; i++ {
			if words[i] == words[i+1] {
				repeated++
			}
		}
		if float64(repeated)/float64(len(words)) > 0.3 {
			return true
		}
	}

	if strings.Count(text, "өөрөө") >= 10 || strings.Count(text, "рөөрөө") >= 10 {
		return true
	}
	return longPatternRe.MatchString(text)
}

// Clean strips the milder repetition artifacts from text that passed
// validation but still carries noise.
func Clean(text string) string {
	if text == "" {
		return ""
	}

	text = charSquashRe.ReplaceAllString(text, "$1$1")

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		// Words this long are tokenizer debris, not Mongolian.
		if len(w) < 100 {
			kept = append(kept, w)
		}
	}
	text = strings.Join(kept, " ")

	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// Check verifies that text is a usable Mongolian-language answer.
func Check(text string) error {
	if text == "" {
		return ErrEmpty
	}
	if IsGarbage(text) {
		return ErrGarbage
	}
	if len(strings.TrimSpace(text)) < 50 {
		return ErrTooShort
	}

	lower := strings.ToLower(text)
	englishCount := 0
	for _, word := range englishStopwords {
		if strings.Contains(lower, word) {
			englishCount++
		}
	}
	if englishCount > 5 {
		return ErrTooEnglish
	}

	for _, phrase := range errorPhrases {
		if strings.Contains(lower, phrase) {
			return ErrErrorText
		}
	}
	return nil
}
