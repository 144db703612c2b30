package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// UnavailableError means the inference server could not serve the request.
// Message is written for the user.
type UnavailableError struct {
	Message string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *UnavailableError) UserMessage() string { return e.Message }

func (e *UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrInferenceUnavailable}
	}
	return []error{domain.ErrInferenceUnavailable, e.Err}
}

func classifyOllamaError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// wrapUnavailable turns a failed call into an UnavailableError. Caller
// cancellation passes through untouched.
func wrapUnavailable(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return err
	}

	cause := fmt.Errorf("%s: %w", operation, err)
	if classifyOllamaError(err).Retryable {
		cause = domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return &UnavailableError{Message: describeError(err), Err: cause}
}

func describeError(err error) string {
	var statusErr *HTTPStatusError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "Request timeout. Make sure Ollama is running and responding."
	case errors.Is(err, syscall.ECONNREFUSED):
		return "Connection refused. Make sure Ollama is running on localhost:11434."
	case resilience.IsCircuitOpen(err):
		return "Ollama is failing repeatedly. Retrying shortly."
	case errors.As(err, &statusErr):
		if statusErr.StatusCode == http.StatusNotFound && statusErr.Operation == "tags" {
			return "Ollama API not found. Make sure Ollama is running on port 11434."
		}
		if statusErr.Body != "" {
			return "Error: " + statusErr.Body
		}
		return "Error: " + statusErr.Status
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "Network error. Check if Ollama is accessible."
	}
	return "Failed to connect to Ollama"
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
