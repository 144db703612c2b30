package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrFileNotFound         = errors.New("file not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrTemporary            = errors.New("temporary failure")

	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEmptyContent      = errors.New("empty content")
	ErrParseFailure      = errors.New("parse failure")

	ErrInferenceUnavailable = errors.New("inference unavailable")
	ErrImageProvider        = errors.New("image provider error")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ExtractionError describes why a document could not be turned into text.
// Message is safe to show to the user as-is.
type ExtractionError struct {
	Kind    error
	Message string
	Err     error
}

func NewExtractionError(kind error, message string, cause error) *ExtractionError {
	return &ExtractionError{Kind: kind, Message: message, Err: cause}
}

func (e *ExtractionError) Error() string {
	if e == nil {
		return "extraction error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprint(e.Kind)
}

func (e *ExtractionError) UserMessage() string {
	return e.Error()
}

func (e *ExtractionError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ExtractionKindName is the stable wire name of an extraction failure kind.
func ExtractionKindName(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrEmptyContent):
		return "empty_content"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	default:
		return ""
	}
}

// ExtractionKindFromName is the inverse of ExtractionKindName.
func ExtractionKindFromName(name string) error {
	switch name {
	case "unsupported_format":
		return ErrUnsupportedFormat
	case "empty_content":
		return ErrEmptyContent
	case "parse_failure":
		return ErrParseFailure
	default:
		return nil
	}
}

// UserMessage returns the first user-facing message carried in err's chain,
// or "" when there is none.
func UserMessage(err error) string {
	var msg interface{ UserMessage() string }
	if errors.As(err, &msg) {
		return msg.UserMessage()
	}
	return ""
}
