package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/extractor/document"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const (
	DefaultTimeout = 5 * time.Second
	processPath    = "/api/process-file"
)

// Client delegates binary document extraction to a document-processing
// endpoint. Plain text is decoded in-process.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	local      *document.Extractor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		local:      document.NewExtractor(),
	}
}

func (c *Client) DetectFormat(name, declaredType string) string {
	return string(document.Classify(name, declaredType))
}

type processResponse struct {
	Content string `json:"content"`
	Error   string `json:"error"`
	Kind    string `json:"kind"`
}

type statusError struct {
	StatusCode int
	Message    string
	Kind       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("extraction endpoint status %d: %s", e.StatusCode, e.Message)
}

func (c *Client) Extract(ctx context.Context, name, declaredType string, data []byte) (string, error) {
	if document.Classify(name, declaredType) == document.FormatPlainText {
		return c.local.Extract(ctx, name, declaredType, data)
	}

	body, contentType, err := encodeUpload(name, declaredType, data)
	if err != nil {
		return "", err
	}

	content, err := resilience.Do(ctx, c.executor, "remote_extract", func(ctx context.Context) (string, error) {
		return c.post(ctx, body, contentType)
	}, classifyError)
	if err == nil {
		return content, nil
	}
	return "", mapError(err)
}

func (c *Client) post(ctx context.Context, body []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+processPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extraction request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return "", fmt.Errorf("read extraction response: %w", err)
	}
	var out processResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode >= 300 {
		msg := strings.TrimSpace(out.Error)
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		return "", &statusError{StatusCode: resp.StatusCode, Message: msg, Kind: out.Kind}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode extraction response: %w", decodeErr)
	}
	return out.Content, nil
}

func encodeUpload(name, declaredType string, data []byte) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	if declaredType == "" {
		declaredType = "application/octet-stream"
	}
	header.Set("Content-Type", declaredType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write multipart part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func classifyError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	var se *statusError
	if errors.As(err, &se) {
		retry := se.StatusCode == http.StatusBadGateway || se.StatusCode == http.StatusServiceUnavailable || se.StatusCode == http.StatusGatewayTimeout
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: retry}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: !netErr.Timeout(), RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// mapError turns endpoint failures into extraction errors. Structured kinds
// keep their meaning; anything else is a temporary parse failure.
func mapError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var se *statusError
	if errors.As(err, &se) {
		if kind := domain.ExtractionKindFromName(se.Kind); kind != nil {
			return domain.NewExtractionError(kind, se.Message, err)
		}
		if se.StatusCode == http.StatusRequestEntityTooLarge {
			return domain.NewExtractionError(domain.ErrParseFailure, "failed to parse file: file is too large", err)
		}
	}

	reason := "extraction service unavailable"
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		reason = "extraction timed out"
	}
	return domain.NewExtractionError(
		domain.ErrParseFailure,
		"failed to parse file: "+reason,
		domain.WrapError(domain.ErrTemporary, "remote extract", err),
	)
}
