package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const DefaultTimeout = 120 * time.Second

// httpClient is the JSON plumbing shared by every provider.
type httpClient struct {
	name     string
	http     *http.Client
	executor *resilience.Executor
}

func newHTTPClient(name string, timeout time.Duration, executor *resilience.Executor) httpClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httpClient{name: name, http: &http.Client{Timeout: timeout}, executor: executor}
}

type StatusError struct {
	Provider   string
	StatusCode int
	Status     string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API error: %s", e.Provider, e.Status)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

func (c httpClient) doJSON(ctx context.Context, method, url string, headers map[string]string, payload, out any) error {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s request: %w", c.name, err)
		}
	}

	return c.executor.Execute(ctx, "image_"+strings.ReplaceAll(strings.ToLower(c.name), " ", "_"), func(ctx context.Context) error {
		var body io.Reader
		if raw != nil {
			body = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return fmt.Errorf("create %s request: %w", c.name, err)
		}
		if raw != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("%s request: %w", c.name, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return statusError(c.name, resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", c.name, err)
		}
		return nil
	}, classifyError)
}

func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error  json.RawMessage `json:"error"`
		Detail string          `json:"detail"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var plain string
		switch {
		case json.Unmarshal(payload.Error, &nested) == nil && nested.Message != "":
			msg = nested.Message
		case json.Unmarshal(payload.Error, &plain) == nil && plain != "":
			msg = plain
		case payload.Detail != "":
			msg = payload.Detail
		}
	}
	if msg == "" {
		msg = strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" ")
	}
	return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Status: resp.Status, Message: msg}
}

func classifyError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	var se *StatusError
	if errors.As(err, &se) {
		retry := se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
		return resilience.ErrorClassification{Retryable: retry, RecordFailure: se.StatusCode >= 500}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func providerError(operation string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	return domain.WrapError(domain.ErrImageProvider, operation, err)
}

// parseSize reads "WxH", defaulting to 512x512.
func parseSize(size string) (int, int) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(size)), "x")
	if !ok {
		return 512, 512
	}
	width, errW := strconv.Atoi(w)
	height, errH := strconv.Atoi(h)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return 512, 512
	}
	return width, height
}
