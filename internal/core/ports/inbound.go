package ports

import (
	"context"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

// DocumentProcessor is the inbound contract for synchronous text extraction.
type DocumentProcessor interface {
	Process(ctx context.Context, name, declaredType string, data []byte) (*domain.ExtractedDocument, error)
}

// FileUploader is the inbound contract for per-conversation file handling.
type FileUploader interface {
	Submit(ctx context.Context, conversationID, name, declaredType string, data []byte) (*domain.UploadedFile, error)
	Remove(ctx context.Context, conversationID, fileID string) error
	Clear(ctx context.Context, conversationID string) error
	List(ctx context.Context, conversationID string) ([]domain.UploadedFile, error)
}

// ConversationService is the inbound read/write model for stored conversations.
type ConversationService interface {
	Create(ctx context.Context, model string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	List(ctx context.Context) ([]domain.ConversationSummary, error)
	Delete(ctx context.Context, id string) error
	SaveMessages(ctx context.Context, id string, messages []domain.Message) (*domain.Conversation, error)
}

// ChatService sends chat turns, stored or stateless.
type ChatService interface {
	Send(ctx context.Context, req domain.SendMessageRequest, onDelta func(string) error) (*domain.SendMessageResult, error)
	Relay(ctx context.Context, req domain.RelayRequest, onDelta func(string) error) (*domain.ChatResponse, error)
}

// TitleService names conversations.
type TitleService interface {
	Summarize(ctx context.Context, messages []domain.Message) string
	Retitle(ctx context.Context, conversationID string) (string, error)
}

type ModelCatalog interface {
	List(ctx context.Context) domain.ModelList
	EnsureSelected(ctx context.Context, models []domain.ModelInfo) (string, error)
}

type SettingsService interface {
	Settings(ctx context.Context) (domain.ChatSettings, error)
	Update(ctx context.Context, settings domain.ChatSettings) (domain.ChatSettings, error)
	Theme(ctx context.Context) (domain.Theme, error)
	ToggleTheme(ctx context.Context) (domain.Theme, error)
	SidebarWidth(ctx context.Context) (int, error)
	SetSidebarWidth(ctx context.Context, width int) (int, error)
}

type ImageService interface {
	Generate(ctx context.Context, req domain.ImageRequest) (*domain.ImageResult, error)
}
