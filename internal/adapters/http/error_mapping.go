package httpadapter

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrConversationNotFound), domain.IsKind(err, domain.ErrFileNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrUnsupportedFormat), domain.IsKind(err, domain.ErrEmptyContent):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case domain.IsKind(err, domain.ErrInferenceUnavailable):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrImageProvider):
		return http.StatusBadGateway
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := domain.UserMessage(err)
	if message == "" {
		message = err.Error()
	}
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal server error"
		}
	}
	writeJSON(w, status, errorResponse{Error: message, Kind: domain.ExtractionKindName(err)})
}
