package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const InferenceUnavailableNotice = "Local AI model not available. Please ensure your local AI server is running."

type ChatUseCase struct {
	convs    *ConversationStore
	relay    ports.ChatRelay
	titles   *TitleUseCase
	settings *SettingsStore
}

func NewChatUseCase(
	convs *ConversationStore,
	relay ports.ChatRelay,
	titles *TitleUseCase,
	settings *SettingsStore,
) *ChatUseCase {
	return &ChatUseCase{
		convs:    convs,
		relay:    relay,
		titles:   titles,
		settings: settings,
	}
}

// Send appends a user turn to a conversation (creating it when the id is
// empty), includes the ready files as context and stores the reply.
func (uc *ChatUseCase) Send(
	ctx context.Context,
	req domain.SendMessageRequest,
	onDelta func(string) error,
) (*domain.SendMessageResult, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "send message", errors.New("message content is required"))
	}

	defaults := uc.defaults(ctx)
	model := firstNonEmpty(req.Model, defaults.SelectedModel)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaults.MaxTokens
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conv, err := uc.convs.Create(ctx, model)
		if err != nil {
			return nil, fmt.Errorf("create conversation: %w", err)
		}
		conversationID = conv.ID
	} else if req.Model != "" {
		if err := uc.convs.SetModel(ctx, conversationID, req.Model); err != nil {
			return nil, err
		}
	}

	conv, err := uc.convs.AppendMessages(ctx, conversationID, domain.Message{Role: domain.RoleUser, Content: req.Content})
	if err != nil {
		return nil, fmt.Errorf("append user message: %w", err)
	}
	if req.Model == "" && conv.Model != "" {
		model = conv.Model
	}

	fileContext := AssembleFileContext(conv.Files)
	system, messages := BuildPrompt(conv.Messages, fileContext)

	start := time.Now()
	resp, err := uc.relay.Chat(ctx, domain.ChatRequest{
		Model:       model,
		System:      system,
		Messages:    messages,
		MaxTokens:   maxTokens,
		FileContext: fileContext,
	}, onDelta)
	if err != nil {
		if domain.IsKind(err, domain.ErrInferenceUnavailable) || domain.IsKind(err, domain.ErrTemporary) {
			slog.Warn("chat_relay_unavailable", "conversation_id", conversationID, "model", model, "error", err)
			return &domain.SendMessageResult{
				Conversation: conv,
				Notice:       InferenceUnavailableNotice,
				Unavailable:  true,
			}, nil
		}
		return nil, fmt.Errorf("chat relay: %w", err)
	}

	reply := domain.Message{Role: domain.RoleAssistant, Content: resp.Content}
	conv, err = uc.convs.AppendMessages(ctx, conversationID, reply)
	if err != nil {
		return nil, fmt.Errorf("append assistant message: %w", err)
	}
	reply = conv.Messages[len(conv.Messages)-1]

	if uc.titles != nil && needsTitle(conv) {
		title := uc.titles.Summarize(ctx, conv.Messages)
		if err := uc.convs.SetTitle(ctx, conversationID, title); err == nil {
			conv.Title = title
		}
	}

	slog.Info("chat_turn",
		"conversation_id", conversationID,
		"model", model,
		"file_context", fileContext != "",
		"file_context_chars", len([]rune(fileContext)),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	return &domain.SendMessageResult{
		Conversation:   conv,
		Reply:          &reply,
		FilesInContext: readyFileNames(conv.Files),
	}, nil
}

// Relay runs a stateless turn for callers that keep history themselves.
func (uc *ChatUseCase) Relay(ctx context.Context, req domain.RelayRequest, onDelta func(string) error) (*domain.ChatResponse, error) {
	if len(req.Messages) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "relay chat", errors.New("messages are required"))
	}
	defaults := uc.defaults(ctx)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaults.MaxTokens
	}

	fileContext := strings.TrimSpace(req.FileContext)
	system, messages := BuildPrompt(req.Messages, fileContext)
	return uc.relay.Chat(ctx, domain.ChatRequest{
		Model:       firstNonEmpty(req.Model, defaults.SelectedModel),
		System:      system,
		Messages:    messages,
		MaxTokens:   maxTokens,
		FileContext: fileContext,
	}, onDelta)
}

func (uc *ChatUseCase) defaults(ctx context.Context) domain.ChatSettings {
	if uc.settings == nil {
		return domain.DefaultChatSettings()
	}
	settings, err := uc.settings.Settings(ctx)
	if err != nil {
		slog.Warn("settings_load_failed", "error", err)
		return domain.DefaultChatSettings()
	}
	return settings
}

func readyFileNames(files []domain.UploadedFile) []string {
	var names []string
	for _, f := range files {
		if f.Status == domain.FileStatusReady {
			names = append(names, f.Name)
		}
	}
	return names
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
