package ollama

import (
	"strings"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

const (
	titleMaxTokens      = 20
	titleTranscriptSize = 4000
)

func buildTitlePrompt(messages []domain.Message) string {
	var transcript strings.Builder
	for _, msg := range messages {
		speaker := "Assistant"
		switch msg.Role {
		case domain.RoleUser:
			speaker = "User"
		case domain.RoleAssistant:
		default:
			continue
		}
		if transcript.Len() > 0 {
			transcript.WriteString("\n\n")
		}
		transcript.WriteString(speaker)
		transcript.WriteString(": ")
		transcript.WriteString(msg.Content)
		if transcript.Len() >= titleTranscriptSize {
			break
		}
	}

	text := transcript.String()
	if len(text) > titleTranscriptSize {
		text = strings.ToValidUTF8(text[:titleTranscriptSize], "")
	}

	return `Please provide a very short 2-3 word title for this conversation. Focus on the main topic. Examples: "Code Debug", "Python Help", "API Design", "Math Problem", "Recipe Ideas"

` + text + `

Title (2-3 words only):`
}
