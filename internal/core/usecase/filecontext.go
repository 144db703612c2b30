package usecase

import (
	"strings"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

const (
	FileContentStartMarker = "UPLOADED FILE CONTENT START"
	FileContentEndMarker   = "UPLOADED FILE CONTENT END"

	DefaultSystemPrompt     = "You are a helpful AI assistant running locally. Be concise and helpful."
	FileContextSystemPrompt = "You are a helpful AI assistant running locally. The user has uploaded files; " +
		"their full text is included in the user's message between the lines \"" + FileContentStartMarker +
		"\" and \"" + FileContentEndMarker + "\". Read that content carefully and use it to answer. " +
		"If the answer is not in the files, say so. Be concise and helpful."
)

// AssembleFileContext renders every ready file, in upload order, as a
// delimited section. It returns "" when no file is ready.
func AssembleFileContext(files []domain.UploadedFile) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		if f.Status != domain.FileStatusReady || f.Content == "" {
			continue
		}
		sections = append(sections,
			"--- Content from "+f.Name+" ---\n"+f.Content+"\n--- End of "+f.Name+" ---",
		)
	}
	return strings.Join(sections, "\n\n")
}

// WrapUserMessage embeds the file context block around the user's text.
func WrapUserMessage(fileContext, message string) string {
	if fileContext == "" {
		return message
	}
	var b strings.Builder
	b.Grow(len(fileContext) + len(message) + 96)
	b.WriteString(FileContentStartMarker)
	b.WriteByte('\n')
	b.WriteString(fileContext)
	b.WriteByte('\n')
	b.WriteString(FileContentEndMarker)
	b.WriteString("\n\nUser message: ")
	b.WriteString(message)
	return b.String()
}

// BuildPrompt turns conversation turns plus an optional file context into the
// system instruction and message list sent to the model. With file context
// the last user turn is wrapped and the system instruction announces it.
func BuildPrompt(messages []domain.Message, fileContext string) (string, []domain.ChatMessage) {
	out := make([]domain.ChatMessage, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleUser, domain.RoleAssistant, domain.RoleSystem:
			out = append(out, domain.ChatMessage{Role: m.Role, Content: m.Content})
		}
	}
	if fileContext == "" {
		return DefaultSystemPrompt, out
	}

	for i := len(out) - 1; i >= 0; i-- {
		if out[i].Role == domain.RoleUser {
			out[i].Content = WrapUserMessage(fileContext, out[i].Content)
			return FileContextSystemPrompt, out
		}
	}
	out = append(out, domain.ChatMessage{Role: domain.RoleUser, Content: WrapUserMessage(fileContext, "")})
	return FileContextSystemPrompt, out
}
