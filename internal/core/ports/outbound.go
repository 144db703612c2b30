package ports

import (
	"context"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

// KeyValueStore is the persistence port for client-side style state
// (conversations, settings, theme, sidebar width). Values are opaque JSON.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// TextExtractor turns raw uploaded bytes into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, name, declaredType string, data []byte) (string, error)
}

// FileRecordStore holds per-conversation file lists. UpdateFile must merge by
// file id and return domain.ErrFileNotFound when the record no longer exists.
type FileRecordStore interface {
	AddFile(ctx context.Context, conversationID string, file domain.UploadedFile) error
	UpdateFile(ctx context.Context, conversationID, fileID string, mutate func(*domain.UploadedFile)) (domain.UploadedFile, error)
	RemoveFile(ctx context.Context, conversationID, fileID string) error
	ClearFiles(ctx context.Context, conversationID string) error
	Files(ctx context.Context, conversationID string) ([]domain.UploadedFile, error)
}

// FileEventPublisher broadcasts file status transitions.
type FileEventPublisher interface {
	PublishFileEvent(ctx context.Context, event domain.FileEvent) error
}

// UploadObserver records upload pipeline metrics.
type UploadObserver interface {
	StartFile()
	FinishFile(format string, status domain.FileStatus, seconds float64)
}

// ChatRelay sends a prepared chat request to the inference endpoint.
// onDelta, when non-nil, receives streamed content in order.
type ChatRelay interface {
	Chat(ctx context.Context, req domain.ChatRequest, onDelta func(string) error) (*domain.ChatResponse, error)
}

// ModelLister lists locally available models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]domain.ModelInfo, error)
}

// TitleGenerator produces a short conversation title.
type TitleGenerator interface {
	GenerateTitle(ctx context.Context, messages []domain.Message) (string, error)
}

// ImageGenerator is one pluggable image provider.
type ImageGenerator interface {
	Provider() domain.ImageProvider
	Generate(ctx context.Context, prompt string, settings domain.ImageSettings) (string, error)
}

// FormatDetector names the document format an extractor would apply to a file.
type FormatDetector interface {
	DetectFormat(name, declaredType string) string
}
