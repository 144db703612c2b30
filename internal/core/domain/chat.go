package domain

import "time"

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is what the chat relay sends to the inference endpoint.
// FileContext is the assembled block already folded into Messages; it is
// carried for observability only.
type ChatRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system"`
	Messages    []ChatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	FileContext string        `json:"-"`
}

type ChatResponse struct {
	Model        string `json:"model"`
	Content      string `json:"content"`
	PromptTokens int    `json:"prompt_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// ModelInfo describes one locally installed model.
type ModelInfo struct {
	Name          string    `json:"name"`
	Model         string    `json:"model"`
	Size          int64     `json:"size"`
	ModifiedAt    time.Time `json:"modified_at"`
	ParameterSize string    `json:"parameter_size"`
	Quantization  string    `json:"quantization"`
	Family        string    `json:"family"`
}

type ModelList struct {
	Models    []ModelInfo `json:"models"`
	Total     int         `json:"total"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// SendMessageRequest is one user turn sent within a stored conversation.
type SendMessageRequest struct {
	ConversationID string `json:"conversation_id"`
	Content        string `json:"content" validate:"required"`
	Model          string `json:"model"`
	MaxTokens      int    `json:"max_tokens" validate:"gte=0"`
}

// SendMessageResult is the outcome of a turn. When Unavailable is set the
// model could not be reached; Notice explains it and no reply was stored.
type SendMessageResult struct {
	Conversation   *Conversation `json:"conversation"`
	Reply          *Message      `json:"reply,omitempty"`
	Notice         string        `json:"notice,omitempty"`
	Unavailable    bool          `json:"unavailable,omitempty"`
	FilesInContext []string      `json:"files_in_context,omitempty"`
}

// RelayRequest is a stateless chat turn: history plus an optional
// pre-assembled file context.
type RelayRequest struct {
	Messages    []Message `json:"messages" validate:"required,min=1,dive"`
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens" validate:"gte=0"`
	FileContext string    `json:"file_context"`
}
