package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func TestChatSendCreatesConversationAndTitles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	relay := &relayFake{reply: "Hello there", deltas: []string{"Hello", " there"}}
	titles := NewTitleUseCase(store, &titleGeneratorFake{title: "Greeting Chat"})
	uc := NewChatUseCase(store, relay, titles, nil)

	var streamed strings.Builder
	res, err := uc.Send(ctx, domain.SendMessageRequest{Content: "hi"}, func(d string) error {
		streamed.WriteString(d)
		return nil
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if res.Unavailable || res.Reply == nil || res.Reply.Content != "Hello there" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if streamed.String() != "Hello there" {
		t.Fatalf("unexpected stream %q", streamed.String())
	}
	if res.Conversation.Title != "Greeting Chat" {
		t.Fatalf("expected generated title, got %q", res.Conversation.Title)
	}
	if len(res.Conversation.Messages) != 2 {
		t.Fatalf("expected user and assistant messages, got %d", len(res.Conversation.Messages))
	}

	req := relay.last()
	if req.Model != domain.DefaultChatSettings().SelectedModel || req.MaxTokens != 4096 {
		t.Fatalf("expected defaults to apply, got %+v", req)
	}
	if req.System != DefaultSystemPrompt {
		t.Fatalf("expected default system prompt without files")
	}
}

func TestChatSendIncludesReadyFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	conv, _ := store.Create(ctx, "m")
	_ = store.AddFile(ctx, conv.ID, domain.UploadedFile{ID: "f1", Name: "a.txt", Status: domain.FileStatusReady, Content: "alpha"})
	_ = store.AddFile(ctx, conv.ID, domain.UploadedFile{ID: "f2", Name: "b.txt", Status: domain.FileStatusProcessing})

	relay := &relayFake{reply: "ok"}
	uc := NewChatUseCase(store, relay, nil, nil)

	res, err := uc.Send(ctx, domain.SendMessageRequest{ConversationID: conv.ID, Content: "summarize"}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	req := relay.last()
	if req.System != FileContextSystemPrompt {
		t.Fatalf("expected file context system prompt")
	}
	last := req.Messages[len(req.Messages)-1].Content
	want := WrapUserMessage("--- Content from a.txt ---\nalpha\n--- End of a.txt ---", "summarize")
	if last != want {
		t.Fatalf("unexpected wrapped message:\n%q", last)
	}
	if len(res.FilesInContext) != 1 || res.FilesInContext[0] != "a.txt" {
		t.Fatalf("unexpected files in context: %v", res.FilesInContext)
	}

	stored, _ := store.Get(ctx, conv.ID)
	if stored.Messages[0].Content != "summarize" {
		t.Fatalf("stored user message must stay unwrapped: %q", stored.Messages[0].Content)
	}
}

func TestChatSendUnavailableKeepsUserTurn(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	conv, _ := store.Create(ctx, "m")
	relay := &relayFake{err: domain.WrapError(domain.ErrInferenceUnavailable, "ollama chat", errors.New("connection refused"))}
	uc := NewChatUseCase(store, relay, nil, nil)

	res, err := uc.Send(ctx, domain.SendMessageRequest{ConversationID: conv.ID, Content: "anyone?"}, nil)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !res.Unavailable || res.Notice != InferenceUnavailableNotice || res.Reply != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	stored, _ := store.Get(ctx, conv.ID)
	if len(stored.Messages) != 1 || stored.Messages[0].Role != domain.RoleUser {
		t.Fatalf("expected only the user turn to be stored: %+v", stored.Messages)
	}
}

func TestChatSendOtherErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	uc := NewChatUseCase(store, &relayFake{err: errors.New("boom")}, nil, nil)

	if _, err := uc.Send(ctx, domain.SendMessageRequest{Content: "x"}, nil); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := uc.Send(ctx, domain.SendMessageRequest{Content: "   "}, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := uc.Send(ctx, domain.SendMessageRequest{ConversationID: "nope", Content: "x"}, nil); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestChatSendUsesStoredSettings(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	settings := NewSettingsStore(newMemKV())
	if _, err := settings.Update(ctx, domain.ChatSettings{SelectedModel: "qwen2.5:7b", MaxTokens: 1024}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
	relay := &relayFake{reply: "ok"}
	uc := NewChatUseCase(store, relay, nil, settings)

	if _, err := uc.Send(ctx, domain.SendMessageRequest{Content: "hi"}, nil); err != nil {
		t.Fatalf("send: %v", err)
	}
	req := relay.last()
	if req.Model != "qwen2.5:7b" || req.MaxTokens != 1024 {
		t.Fatalf("expected stored settings, got %+v", req)
	}
}

func TestChatRelayStateless(t *testing.T) {
	relay := &relayFake{reply: "done"}
	uc := NewChatUseCase(nil, relay, nil, nil)

	resp, err := uc.Relay(context.Background(), domain.RelayRequest{
		Messages:    []domain.Message{{Role: domain.RoleUser, Content: "read it"}},
		Model:       "m",
		FileContext: "CTX",
	}, nil)
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if resp.Content != "done" {
		t.Fatalf("unexpected response %+v", resp)
	}
	req := relay.last()
	if req.System != FileContextSystemPrompt || req.Messages[0].Content != WrapUserMessage("CTX", "read it") {
		t.Fatalf("unexpected relay request %+v", req)
	}

	if _, err := uc.Relay(context.Background(), domain.RelayRequest{}, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
