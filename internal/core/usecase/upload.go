package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const DefaultProcessTimeout = 2 * time.Minute

type FileUploadOptions struct {
	ProcessTimeout time.Duration
	Events         ports.FileEventPublisher
	Observer       ports.UploadObserver
}

// FileUploadUseCase drives uploaded files through extraction and
// normalization into a conversation's file list.
type FileUploadUseCase struct {
	files      ports.FileRecordStore
	extractor  ports.TextExtractor
	normalizer *Normalizer
	events     ports.FileEventPublisher
	observer   ports.UploadObserver
	timeout    time.Duration
	now        func() time.Time

	inFlight sync.WaitGroup
}

func NewFileUploadUseCase(
	files ports.FileRecordStore,
	extractor ports.TextExtractor,
	normalizer *Normalizer,
	opts FileUploadOptions,
) *FileUploadUseCase {
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultMaxContentChars)
	}
	timeout := opts.ProcessTimeout
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &FileUploadUseCase{
		files:      files,
		extractor:  extractor,
		normalizer: normalizer,
		events:     opts.Events,
		observer:   opts.Observer,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit records the file as processing, returns it immediately and finishes
// extraction in the background.
func (uc *FileUploadUseCase) Submit(
	ctx context.Context,
	conversationID, name, declaredType string,
	data []byte,
) (*domain.UploadedFile, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit file", errors.New("file name is required"))
	}
	if declaredType == "" {
		declaredType = "unknown"
	}

	record := domain.UploadedFile{
		ID:         uuid.NewString(),
		Name:       name,
		Type:       declaredType,
		Size:       int64(len(data)),
		Status:     domain.FileStatusProcessing,
		UploadedAt: uc.now(),
	}
	if err := uc.files.AddFile(ctx, conversationID, record); err != nil {
		return nil, fmt.Errorf("insert file record: %w", err)
	}
	uc.publish(ctx, conversationID, record)

	uc.inFlight.Add(1)
	go func() {
		defer uc.inFlight.Done()
		jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
		defer cancel()
		uc.process(jobCtx, conversationID, record, data)
	}()

	return &record, nil
}

func (uc *FileUploadUseCase) Remove(ctx context.Context, conversationID, fileID string) error {
	return uc.files.RemoveFile(ctx, conversationID, fileID)
}

func (uc *FileUploadUseCase) Clear(ctx context.Context, conversationID string) error {
	return uc.files.ClearFiles(ctx, conversationID)
}

func (uc *FileUploadUseCase) List(ctx context.Context, conversationID string) ([]domain.UploadedFile, error) {
	return uc.files.Files(ctx, conversationID)
}

// Wait blocks until every submitted file reached a terminal state or was
// discarded.
func (uc *FileUploadUseCase) Wait() {
	uc.inFlight.Wait()
}

func (uc *FileUploadUseCase) process(ctx context.Context, conversationID string, record domain.UploadedFile, data []byte) {
	start := time.Now()
	if uc.observer != nil {
		uc.observer.StartFile()
	}

	content, procErr := uc.extractWithDeadline(ctx, record, data)
	// The job context may already be expired here; the terminal update and
	// its event must still go out.
	ctx = context.WithoutCancel(ctx)

	updated, err := uc.files.UpdateFile(ctx, conversationID, record.ID, func(f *domain.UploadedFile) {
		if procErr != nil {
			f.Status = domain.FileStatusError
			f.Error = fileErrorMessage(procErr)
			f.Content = ""
			return
		}
		f.Status = domain.FileStatusReady
		f.Content = content
		f.Error = ""
	})

	status := domain.FileStatusReady
	if procErr != nil {
		status = domain.FileStatusError
	}
	if uc.observer != nil {
		uc.observer.FinishFile(formatLabel(record.Name), status, time.Since(start).Seconds())
	}

	if err != nil {
		if domain.IsKind(err, domain.ErrFileNotFound) || domain.IsKind(err, domain.ErrConversationNotFound) {
			slog.Info("file_result_discarded",
				"conversation_id", conversationID,
				"file_id", record.ID,
				"reason", "record removed while processing",
			)
			return
		}
		slog.Error("file_status_update_failed",
			"conversation_id", conversationID,
			"file_id", record.ID,
			"error", err,
		)
		return
	}

	logAttrs := []any{
		"conversation_id", conversationID,
		"file_id", record.ID,
		"name", record.Name,
		"status", string(updated.Status),
		"size_bytes", record.Size,
		"content_chars", len([]rune(updated.Content)),
		"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
	}
	if procErr != nil {
		slog.Warn("file_processed", append(logAttrs, "error", procErr)...)
	} else {
		slog.Info("file_processed", logAttrs...)
	}
	uc.publish(ctx, conversationID, updated)
}

type extractResult struct {
	content string
	err     error
}

// extractWithDeadline stops waiting for the extractor once ctx is done. A
// result that arrives later is dropped.
func (uc *FileUploadUseCase) extractWithDeadline(ctx context.Context, record domain.UploadedFile, data []byte) (string, error) {
	done := make(chan extractResult, 1)
	go func() {
		content, err := uc.extractAndNormalize(ctx, record, data)
		done <- extractResult{content: content, err: err}
	}()

	select {
	case res := <-done:
		return res.content, res.err
	case <-ctx.Done():
		slog.Warn("file_processing_abandoned", "file_id", record.ID, "name", record.Name, "error", ctx.Err())
		return "", fmt.Errorf("extract text: %w", ctx.Err())
	}
}

func (uc *FileUploadUseCase) extractAndNormalize(ctx context.Context, record domain.UploadedFile, data []byte) (string, error) {
	text, err := uc.extractor.Extract(ctx, record.Name, record.Type, data)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	content, err := uc.normalizer.Normalize(text)
	if err != nil {
		return "", fmt.Errorf("normalize text: %w", err)
	}
	return content, nil
}

func (uc *FileUploadUseCase) publish(ctx context.Context, conversationID string, file domain.UploadedFile) {
	if uc.events == nil {
		return
	}
	event := domain.FileEvent{
		ConversationID: conversationID,
		FileID:         file.ID,
		Name:           file.Name,
		Status:         file.Status,
		Error:          file.Error,
		At:             uc.now(),
	}
	if err := uc.events.PublishFileEvent(ctx, event); err != nil {
		slog.Warn("file_event_publish_failed", "file_id", file.ID, "status", string(file.Status), "error", err)
	}
}

func fileErrorMessage(err error) string {
	var extractErr *domain.ExtractionError
	if errors.As(err, &extractErr) && extractErr.Message != "" {
		return extractErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "upload failed: processing timed out"
	}
	return "upload failed: " + err.Error()
}

func formatLabel(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	switch ext {
	case "":
		return "none"
	case "pdf", "docx", "xlsx", "txt", "md", "json", "csv":
		return ext
	default:
		return "other"
	}
}
