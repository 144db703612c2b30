package httpadapter

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/usecase"
)

type relayChatRequest struct {
	domain.RelayRequest
	Stream bool `json:"stream"`
}

func (rt *Router) relayChat(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Chat == nil {
		unavailable(w, "chat")
		return
	}
	var req relayChatRequest
	if err := decodeValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	contextFiles := strings.Count(req.FileContext, "\n--- End of ")

	var stream *sseWriter
	var onDelta func(string) error
	if req.Stream {
		s, err := newSSEWriter(w)
		if err != nil {
			writeError(w, r, err)
			return
		}
		stream, onDelta = s, s.Delta
	}

	resp, err := rt.svc.Chat.Relay(r.Context(), req.RelayRequest, onDelta)
	if err != nil {
		rt.recordChatTurn("relay", chatOutcome(err), contextFiles)
		if domain.IsKind(err, domain.ErrInferenceUnavailable) || domain.IsKind(err, domain.ErrTemporary) {
			err = &noticeError{err: err, notice: usecase.InferenceUnavailableNotice}
		}
		if stream != nil && stream.started {
			rt.streamFailure(stream, r, err)
			return
		}
		writeError(w, r, err)
		return
	}
	rt.recordChatTurn("relay", "ok", contextFiles)

	if stream != nil {
		_ = stream.event("result", resp)
		_ = stream.Done()
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type sendMessageBody struct {
	Content   string `json:"content" validate:"required"`
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens" validate:"gte=0"`
	Stream    bool   `json:"stream"`
}

func (rt *Router) sendMessage(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Chat == nil {
		unavailable(w, "chat")
		return
	}
	var body sendMessageBody
	if err := decodeValidate(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if q := r.URL.Query().Get("stream"); q != "" {
		body.Stream, _ = strconv.ParseBool(q)
	}

	var stream *sseWriter
	var onDelta func(string) error
	if body.Stream {
		s, err := newSSEWriter(w)
		if err != nil {
			writeError(w, r, err)
			return
		}
		stream, onDelta = s, s.Delta
	}

	result, err := rt.svc.Chat.Send(r.Context(), domain.SendMessageRequest{
		ConversationID: r.PathValue("id"),
		Content:        body.Content,
		Model:          body.Model,
		MaxTokens:      body.MaxTokens,
	}, onDelta)
	if err != nil {
		rt.recordChatTurn("conversation_chat", chatOutcome(err), 0)
		if stream != nil && stream.started {
			rt.streamFailure(stream, r, err)
			return
		}
		writeError(w, r, err)
		return
	}

	if result.Unavailable {
		rt.recordChatTurn("conversation_chat", "unavailable", 0)
		if stream != nil && stream.started {
			_ = stream.event("error", errorResponse{Error: result.Notice})
			_ = stream.Done()
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, result)
		return
	}
	rt.recordChatTurn("conversation_chat", "ok", len(result.FilesInContext))

	if stream != nil {
		_ = stream.event("result", result)
		_ = stream.Done()
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) streamFailure(stream *sseWriter, r *http.Request, err error) {
	message := domain.UserMessage(err)
	if message == "" {
		message = err.Error()
	}
	slog.Warn("chat_stream_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	_ = stream.event("error", errorResponse{Error: message})
	_ = stream.Done()
}

func (rt *Router) recordChatTurn(endpoint, outcome string, contextFiles int) {
	if rt.metrics != nil {
		rt.metrics.RecordChatTurn(rt.metrics.Service(), endpoint, outcome, contextFiles)
	}
}

func chatOutcome(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInferenceUnavailable), domain.IsKind(err, domain.ErrTemporary):
		return "unavailable"
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrConversationNotFound):
		return "rejected"
	default:
		return "error"
	}
}

// noticeError replaces the user-facing message of err.
type noticeError struct {
	err    error
	notice string
}

func (e *noticeError) Error() string       { return e.err.Error() }
func (e *noticeError) Unwrap() error       { return e.err }
func (e *noticeError) UserMessage() string { return e.notice }
