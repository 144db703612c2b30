package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

type publisherFake struct {
	subjects []string
	payloads [][]byte
	errs     []error
}

func (f *publisherFake) Publish(subject string, data []byte) error {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestPublishFileEvent(t *testing.T) {
	fake := &publisherFake{}
	p := newEventPublisher(fake, "", nil)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	err := p.PublishFileEvent(context.Background(), domain.FileEvent{
		ConversationID: "c1",
		FileID:         "f1",
		Name:           "notes.txt",
		Status:         domain.FileStatusReady,
		At:             at,
	})
	if err != nil {
		t.Fatalf("PublishFileEvent() error = %v", err)
	}
	if len(fake.subjects) != 1 || fake.subjects[0] != "chat.files.ready" {
		t.Fatalf("unexpected subjects: %v", fake.subjects)
	}
	var got domain.FileEvent
	if err := json.Unmarshal(fake.payloads[0], &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.FileID != "f1" || got.ConversationID != "c1" || !got.At.Equal(at) {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestPublishRetriesDisconnects(t *testing.T) {
	fake := &publisherFake{errs: []error{nats.ErrDisconnected, nil}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	p := newEventPublisher(fake, "events", exec)

	if err := p.PublishFileEvent(context.Background(), domain.FileEvent{Status: domain.FileStatusError}); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if len(fake.subjects) != 1 || fake.subjects[0] != "events.error" {
		t.Fatalf("unexpected subjects: %v", fake.subjects)
	}
}

func TestPublishWrapsTemporaryFailures(t *testing.T) {
	p := newEventPublisher(&publisherFake{errs: []error{nats.ErrConnectionClosed}}, "", nil)
	err := p.PublishFileEvent(context.Background(), domain.FileEvent{Status: domain.FileStatusProcessing})
	if !errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}

	p = newEventPublisher(&publisherFake{errs: []error{errors.New("bad subject")}}, "", nil)
	err = p.PublishFileEvent(context.Background(), domain.FileEvent{Status: domain.FileStatusProcessing})
	if err == nil || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestPublishDoesNotRetryOversizedEvents(t *testing.T) {
	fake := &publisherFake{errs: []error{nats.ErrMaxPayload, nil}}
	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	p := newEventPublisher(fake, "", exec)

	err := p.PublishFileEvent(context.Background(), domain.FileEvent{FileID: "f9", Status: domain.FileStatusReady})
	if !errors.Is(err, nats.ErrMaxPayload) || errors.Is(err, domain.ErrTemporary) {
		t.Fatalf("expected permanent max payload error, got %v", err)
	}
	if len(fake.subjects) != 0 || len(fake.errs) != 1 {
		t.Fatalf("oversized event must be attempted once, remaining errs %d", len(fake.errs))
	}
	if got := classifyPublishError(nats.ErrMaxPayload); got.RecordFailure {
		t.Fatalf("bad events must not count against the breaker")
	}
}
