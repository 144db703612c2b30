package domain

import "time"

type FileStatus string

const (
	FileStatusProcessing FileStatus = "processing"
	FileStatusReady      FileStatus = "ready"
	FileStatusError      FileStatus = "error"
)

// UploadedFile is a document attached to exactly one conversation.
// Content is non-empty iff Status is ready; Error is set iff Status is error.
type UploadedFile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       string     `json:"type"`
	Size       int64      `json:"size"`
	Content    string     `json:"content"`
	Status     FileStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	UploadedAt time.Time  `json:"uploaded_at"`
}

func (f UploadedFile) Terminal() bool {
	return f.Status == FileStatusReady || f.Status == FileStatusError
}

// FileEvent is emitted on every file status transition.
type FileEvent struct {
	ConversationID string     `json:"conversation_id"`
	FileID         string     `json:"file_id"`
	Name           string     `json:"name"`
	Status         FileStatus `json:"status"`
	Error          string     `json:"error,omitempty"`
	At             time.Time  `json:"at"`
}

// ExtractedDocument is the result of the document-processing endpoint.
type ExtractedDocument struct {
	Content         string `json:"content"`
	Format          string `json:"format"`
	OriginalSize    int64  `json:"original_size"`
	ProcessedLength int    `json:"processed_length"`
}
