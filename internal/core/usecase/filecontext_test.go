package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func TestAssembleFileContextReadyFilesOnly(t *testing.T) {
	files := []domain.UploadedFile{
		{Name: "a.txt", Status: domain.FileStatusReady, Content: "alpha"},
		{Name: "b.pdf", Status: domain.FileStatusProcessing},
		{Name: "c.docx", Status: domain.FileStatusError, Error: "failed"},
		{Name: "d.md", Status: domain.FileStatusReady, Content: "delta"},
	}

	want := "--- Content from a.txt ---\nalpha\n--- End of a.txt ---\n\n" +
		"--- Content from d.md ---\ndelta\n--- End of d.md ---"
	if got := AssembleFileContext(files); got != want {
		t.Fatalf("unexpected context:\n%q\nwant:\n%q", got, want)
	}
}

func TestAssembleFileContextEmpty(t *testing.T) {
	if got := AssembleFileContext(nil); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
	files := []domain.UploadedFile{{Name: "x", Status: domain.FileStatusProcessing}}
	if got := AssembleFileContext(files); got != "" {
		t.Fatalf("expected empty context, got %q", got)
	}
}

func TestWrapUserMessage(t *testing.T) {
	got := WrapUserMessage("CTX", "what is this?")
	want := "UPLOADED FILE CONTENT START\nCTX\nUPLOADED FILE CONTENT END\n\nUser message: what is this?"
	if got != want {
		t.Fatalf("unexpected wrap:\n%q", got)
	}
	if WrapUserMessage("", "plain") != "plain" {
		t.Fatalf("empty context must leave message untouched")
	}
}

func TestBuildPromptWrapsLastUserTurn(t *testing.T) {
	messages := []domain.Message{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleAssistant, Content: "answer"},
		{Role: domain.RoleData, Content: "ignored"},
		{Role: domain.RoleUser, Content: "second"},
	}

	system, out := BuildPrompt(messages, "CTX")
	if system != FileContextSystemPrompt {
		t.Fatalf("expected file context system prompt")
	}
	if len(out) != 3 {
		t.Fatalf("expected data role to be dropped, got %d messages", len(out))
	}
	if out[0].Content != "first" {
		t.Fatalf("earlier user turn must not be wrapped: %q", out[0].Content)
	}
	if !strings.HasPrefix(out[2].Content, FileContentStartMarker) || !strings.HasSuffix(out[2].Content, "User message: second") {
		t.Fatalf("last user turn not wrapped: %q", out[2].Content)
	}
	if messages[3].Content != "second" {
		t.Fatalf("input messages must not be mutated")
	}
}

func TestBuildPromptWithoutContext(t *testing.T) {
	system, out := BuildPrompt([]domain.Message{{Role: domain.RoleUser, Content: "hi"}}, "")
	if system != DefaultSystemPrompt || out[0].Content != "hi" {
		t.Fatalf("unexpected prompt: %q %+v", system, out)
	}
}

func TestBuildPromptAppendsUserTurnWhenMissing(t *testing.T) {
	_, out := BuildPrompt([]domain.Message{{Role: domain.RoleAssistant, Content: "hello"}}, "CTX")
	if len(out) != 2 || out[1].Role != domain.RoleUser || !strings.Contains(out[1].Content, "CTX") {
		t.Fatalf("expected appended user turn carrying context: %+v", out)
	}
}
