package usecase

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

const (
	DefaultMaxContentChars = 100000
	TruncationMarker       = "\n\n... (content truncated due to size limit)"
)

// Normalizer cleans extracted text before it is attached to a conversation.
type Normalizer struct {
	MaxChars int
}

func NewNormalizer(maxChars int) *Normalizer {
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	return &Normalizer{MaxChars: maxChars}
}

// Normalize collapses whitespace (keeping paragraph breaks as one blank
// line), trims, and truncates to MaxChars runes including the marker.
func (n *Normalizer) Normalize(text string) (string, error) {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "\uFFFD")
	}

	out := strings.TrimSpace(collapseWhitespace(text))
	if out == "" {
		return "", domain.NewExtractionError(domain.ErrEmptyContent, "no text content found in file", errors.New("empty after normalization"))
	}
	return n.truncate(out), nil
}

func (n *Normalizer) truncate(text string) string {
	maxChars := n.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxContentChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}

	budget := maxChars - utf8.RuneCountInString(TruncationMarker)
	if budget < 1 {
		budget = maxChars
	}
	body := strings.TrimRightFunc(cutRunes(text, budget), unicode.IsSpace)
	return body + TruncationMarker
}

func collapseWhitespace(text string) string {
	var b strings.Builder
	b.Grow(len(text))

	inRun := false
	newlines := 0
	flush := func() {
		if !inRun {
			return
		}
		if newlines >= 2 {
			b.WriteString("\n\n")
		} else {
			b.WriteByte(' ')
		}
		inRun = false
		newlines = 0
	}

	for _, r := range text {
		if unicode.IsSpace(r) {
			inRun = true
			if r == '\n' {
				newlines++
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return b.String()
}

func cutRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for idx := range text {
		if count == n {
			return text[:idx]
		}
		count++
	}
	return text
}
