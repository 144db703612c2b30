package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const (
	DefaultConversationTitle = "New Conversation"
	fallbackTitleChars       = 50
	maxGeneratedTitleChars   = 80
)

// FallbackTitle is the deterministic title: the first user message cut to
// 50 characters.
func FallbackTitle(messages []domain.Message) string {
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > fallbackTitleChars {
			return cutRunes(content, fallbackTitleChars) + "..."
		}
		return content
	}
	return DefaultConversationTitle
}

type TitleUseCase struct {
	convs     *ConversationStore
	generator ports.TitleGenerator
}

func NewTitleUseCase(convs *ConversationStore, generator ports.TitleGenerator) *TitleUseCase {
	return &TitleUseCase{convs: convs, generator: generator}
}

// Summarize asks the model for a short title and never fails: any error
// falls back to FallbackTitle.
func (uc *TitleUseCase) Summarize(ctx context.Context, messages []domain.Message) string {
	fallback := FallbackTitle(messages)
	if uc.generator == nil || len(messages) == 0 {
		return fallback
	}

	title, err := uc.generator.GenerateTitle(ctx, messages)
	if err != nil {
		slog.Warn("title_generation_failed", "error", err)
		return fallback
	}
	title = cleanTitle(title)
	if title == "" {
		return fallback
	}
	return title
}

// Retitle regenerates and stores the title of a saved conversation.
func (uc *TitleUseCase) Retitle(ctx context.Context, conversationID string) (string, error) {
	conv, err := uc.convs.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}
	title := uc.Summarize(ctx, conv.Messages)
	if err := uc.convs.SetTitle(ctx, conversationID, title); err != nil {
		return "", err
	}
	return title, nil
}

// needsTitle reports whether a conversation still carries a placeholder
// title and has enough content to name.
func needsTitle(conv *domain.Conversation) bool {
	if len(conv.Messages) < 2 {
		return false
	}
	return conv.Title == "" || conv.Title == DefaultConversationTitle || conv.Title == FallbackTitle(conv.Messages)
}

func cleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if idx := strings.IndexByte(title, '\n'); idx >= 0 {
		title = title[:idx]
	}
	title = strings.TrimSpace(strings.TrimPrefix(title, "Title:"))
	title = strings.TrimSpace(strings.Trim(title, "\"'`*#"))
	if utf8.RuneCountInString(title) > maxGeneratedTitleChars {
		title = cutRunes(title, maxGeneratedTitleChars)
	}
	return strings.TrimSpace(title)
}
