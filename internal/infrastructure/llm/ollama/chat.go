package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const maxStreamLine = 1 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *requestOptions `json:"options,omitempty"`
}

type chatChunk struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	Error           string      `json:"error"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Chat relays one prepared turn to /api/chat. With onDelta set the reply is
// streamed as NDJSON and each content piece is forwarded in order.
func (c *Client) Chat(ctx context.Context, req domain.ChatRequest, onDelta func(string) error) (*domain.ChatResponse, error) {
	payload := chatRequest{
		Model:    req.Model,
		Messages: toChatMessages(req),
		Stream:   onDelta != nil,
	}
	if req.MaxTokens > 0 {
		payload.Options = &requestOptions{NumPredict: req.MaxTokens}
	}

	if onDelta == nil {
		chunk, err := resilience.Do(ctx, c.executor, "ollama_chat", func(ctx context.Context) (chatChunk, error) {
			var out chatChunk
			err := c.postJSON(ctx, "/api/chat", payload, &out, "chat")
			return out, err
		}, classifyOllamaError)
		if err != nil {
			return nil, wrapUnavailable("ollama chat", err)
		}
		if chunk.Error != "" {
			return nil, wrapUnavailable("ollama chat", errors.New(chunk.Error))
		}
		return &domain.ChatResponse{
			Model:        firstNonEmpty(chunk.Model, req.Model),
			Content:      chunk.Message.Content,
			PromptTokens: chunk.PromptEvalCount,
			OutputTokens: chunk.EvalCount,
		}, nil
	}

	return c.streamChat(ctx, req.Model, payload, onDelta)
}

func (c *Client) streamChat(ctx context.Context, model string, payload chatRequest, onDelta func(string) error) (*domain.ChatResponse, error) {
	resp, err := resilience.Do(ctx, c.executor, "ollama_chat_stream", func(ctx context.Context) (*http.Response, error) {
		httpReq, err := c.newJSONRequest(ctx, http.MethodPost, "/api/chat", payload, "chat")
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("ollama chat request: %w", err)
		}
		if resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return nil, formatOllamaHTTPError("chat", resp)
		}
		return resp, nil
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapUnavailable("ollama chat", err)
	}
	defer resp.Body.Close()

	out := &domain.ChatResponse{Model: model}
	var content strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStreamLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var chunk chatChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, wrapUnavailable("ollama chat", fmt.Errorf("decode chat stream: %w", err))
		}
		if chunk.Error != "" {
			return nil, wrapUnavailable("ollama chat", errors.New(chunk.Error))
		}
		if delta := chunk.Message.Content; delta != "" {
			content.WriteString(delta)
			if err := onDelta(delta); err != nil {
				return nil, fmt.Errorf("deliver chat delta: %w", err)
			}
		}
		if chunk.Done {
			out.Model = firstNonEmpty(chunk.Model, model)
			out.PromptTokens = chunk.PromptEvalCount
			out.OutputTokens = chunk.EvalCount
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, wrapUnavailable("ollama chat", fmt.Errorf("read chat stream: %w", err))
	}

	out.Content = content.String()
	return out, nil
}

func toChatMessages(req domain.ChatRequest) []chatMessage {
	out := make([]chatMessage, 0, len(req.Messages)+1)
	if system := strings.TrimSpace(req.System); system != "" {
		out = append(out, chatMessage{Role: string(domain.RoleSystem), Content: system})
	}
	for _, m := range req.Messages {
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
