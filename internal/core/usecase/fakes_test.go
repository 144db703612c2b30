package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	setErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *memKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

// textExtractorFake returns the bytes as text for known text extensions and an
// unsupported-format error otherwise. gate, when set, blocks extraction until
// it is closed.
type textExtractorFake struct {
	gate   chan struct{}
	errFor map[string]error
	// ignoreCtx keeps blocking on gate after ctx is done, like a parser
	// that never checks for cancellation.
	ignoreCtx bool
	returned  chan struct{}

	mu    sync.Mutex
	calls []string
}

func (f *textExtractorFake) Extract(ctx context.Context, name, _ string, data []byte) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()

	if f.returned != nil {
		defer func() { f.returned <- struct{}{} }()
	}
	if f.gate != nil && f.ignoreCtx {
		<-f.gate
	} else if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err, ok := f.errFor[name]; ok {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".csv", ".json":
		return string(data), nil
	default:
		return "", domain.NewExtractionError(domain.ErrUnsupportedFormat,
			"unsupported file type: "+filepath.Ext(name), errors.New("no extractor"))
	}
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.FileEvent
}

func (r *eventRecorder) PublishFileEvent(_ context.Context, event domain.FileEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) statuses(fileID string) []domain.FileStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FileStatus
	for _, e := range r.events {
		if e.FileID == fileID {
			out = append(out, e.Status)
		}
	}
	return out
}

type observerFake struct {
	mu       sync.Mutex
	started  int
	finished map[domain.FileStatus]int
	formats  []string
}

func (o *observerFake) StartFile() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *observerFake) FinishFile(format string, status domain.FileStatus, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = make(map[domain.FileStatus]int)
	}
	o.finished[status]++
	o.formats = append(o.formats, format)
}

type relayFake struct {
	mu       sync.Mutex
	requests []domain.ChatRequest
	reply    string
	deltas   []string
	err      error
}

func (f *relayFake) Chat(_ context.Context, req domain.ChatRequest, onDelta func(string) error) (*domain.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if onDelta != nil {
		for _, d := range f.deltas {
			if err := onDelta(d); err != nil {
				return nil, err
			}
		}
	}
	return &domain.ChatResponse{Model: req.Model, Content: f.reply}, nil
}

func (f *relayFake) last() domain.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type titleGeneratorFake struct {
	title string
	err   error
	calls int
}

func (f *titleGeneratorFake) GenerateTitle(context.Context, []domain.Message) (string, error) {
	f.calls++
	return f.title, f.err
}

type modelListerFake struct {
	models []domain.ModelInfo
	err    error
}

func (f *modelListerFake) ListModels(context.Context) ([]domain.ModelInfo, error) {
	return f.models, f.err
}

type imageGeneratorFake struct {
	provider domain.ImageProvider
	url      string
	err      error
	settings domain.ImageSettings
	prompt   string
}

func (f *imageGeneratorFake) Provider() domain.ImageProvider { return f.provider }

func (f *imageGeneratorFake) Generate(_ context.Context, prompt string, settings domain.ImageSettings) (string, error) {
	f.prompt = prompt
	f.settings = settings
	return f.url, f.err
}

type userMessageError struct {
	msg string
}

func (e userMessageError) Error() string       { return "upstream: " + e.msg }
func (e userMessageError) UserMessage() string { return e.msg }
