package domain

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleData      Role = "data"
)

type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role" validate:"required,oneof=system user assistant data"`
	Content string `json:"content"`
}

type Conversation struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Model     string         `json:"model"`
	Timestamp time.Time      `json:"timestamp"`
	Messages  []Message      `json:"messages"`
	Files     []UploadedFile `json:"files"`
}

// Clone returns a deep copy safe to hand out of a locked store.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	out.Files = append([]UploadedFile(nil), c.Files...)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if out.Files == nil {
		out.Files = []UploadedFile{}
	}
	return &out
}

// ConversationSummary is the sidebar listing view of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	Timestamp    time.Time `json:"timestamp"`
	MessageCount int       `json:"message_count"`
	FileCount    int       `json:"file_count"`
}
