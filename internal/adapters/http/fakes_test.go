package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/kirillkom/local-ai-chat/internal/config"
	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

type processorFake struct {
	err     error
	gotName string
	gotType string
	gotData []byte
}

func (f *processorFake) Process(_ context.Context, name, declaredType string, data []byte) (*domain.ExtractedDocument, error) {
	f.gotName, f.gotType, f.gotData = name, declaredType, data
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ExtractedDocument{
		Content:         string(data),
		Format:          "text",
		OriginalSize:    int64(len(data)),
		ProcessedLength: len([]rune(string(data))),
	}, nil
}

type uploaderFake struct {
	mu        sync.Mutex
	submitted []string
	err       error
	cleared   string
	removed   [2]string
}

func (f *uploaderFake) Submit(_ context.Context, conversationID, name, declaredType string, data []byte) (*domain.UploadedFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.submitted = append(f.submitted, name)
	return &domain.UploadedFile{ID: "file-" + name, Name: name, Type: declaredType, Size: int64(len(data)), Status: domain.FileStatusProcessing}, nil
}

func (f *uploaderFake) Remove(_ context.Context, conversationID, fileID string) error {
	f.removed = [2]string{conversationID, fileID}
	return f.err
}

func (f *uploaderFake) Clear(_ context.Context, conversationID string) error {
	f.cleared = conversationID
	return f.err
}

func (f *uploaderFake) List(_ context.Context, conversationID string) ([]domain.UploadedFile, error) {
	if conversationID == "missing" {
		return nil, domain.WrapError(domain.ErrConversationNotFound, "files", errors.New("id=missing"))
	}
	return []domain.UploadedFile{{ID: "f1", Name: "a.txt", Status: domain.FileStatusReady}}, nil
}

type conversationsFake struct {
	convs map[string]*domain.Conversation
}

func newConversationsFake() *conversationsFake {
	return &conversationsFake{convs: map[string]*domain.Conversation{
		"c1": {ID: "c1", Title: "New Conversation", Model: "llama3.1:8b"},
	}}
}

func (f *conversationsFake) notFound(id string) error {
	return domain.WrapError(domain.ErrConversationNotFound, "conversation", errors.New("id="+id))
}

func (f *conversationsFake) Create(_ context.Context, model string) (*domain.Conversation, error) {
	conv := &domain.Conversation{ID: "new", Title: "New Conversation", Model: model}
	f.convs[conv.ID] = conv
	return conv, nil
}

func (f *conversationsFake) Get(_ context.Context, id string) (*domain.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, f.notFound(id)
	}
	return conv, nil
}

func (f *conversationsFake) List(context.Context) ([]domain.ConversationSummary, error) {
	out := make([]domain.ConversationSummary, 0, len(f.convs))
	for _, c := range f.convs {
		out = append(out, domain.ConversationSummary{ID: c.ID, Title: c.Title})
	}
	return out, nil
}

func (f *conversationsFake) Delete(_ context.Context, id string) error {
	if _, ok := f.convs[id]; !ok {
		return f.notFound(id)
	}
	delete(f.convs, id)
	return nil
}

func (f *conversationsFake) SaveMessages(_ context.Context, id string, messages []domain.Message) (*domain.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, f.notFound(id)
	}
	conv.Messages = messages
	return conv, nil
}

type chatFake struct {
	deltas  []string
	result  *domain.SendMessageResult
	err     error
	gotSend domain.SendMessageRequest
	gotRely domain.RelayRequest
}

func (f *chatFake) Send(_ context.Context, req domain.SendMessageRequest, onDelta func(string) error) (*domain.SendMessageResult, error) {
	f.gotSend = req
	if onDelta != nil {
		for _, d := range f.deltas {
			if err := onDelta(d); err != nil {
				return nil, err
			}
		}
	}
	return f.result, f.err
}

func (f *chatFake) Relay(_ context.Context, req domain.RelayRequest, onDelta func(string) error) (*domain.ChatResponse, error) {
	f.gotRely = req
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
	return &domain.ChatResponse{Model: req.Model, Content: "pong"}, nil
}

type titlesFake struct{}

func (titlesFake) Summarize(_ context.Context, messages []domain.Message) string {
	if len(messages) == 0 {
		return "New Conversation"
	}
	return "Short Title"
}

func (titlesFake) Retitle(_ context.Context, id string) (string, error) {
	if id != "c1" {
		return "", domain.WrapError(domain.ErrConversationNotFound, "retitle", errors.New("id="+id))
	}
	return "Fresh Title", nil
}

type modelsFake struct {
	list     domain.ModelList
	selected string
}

func (f *modelsFake) List(context.Context) domain.ModelList { return f.list }

func (f *modelsFake) EnsureSelected(_ context.Context, models []domain.ModelInfo) (string, error) {
	f.selected = models[0].Name
	return f.selected, nil
}

type settingsFake struct {
	settings domain.ChatSettings
	theme    domain.Theme
	width    int
}

func newSettingsFake() *settingsFake {
	return &settingsFake{settings: domain.DefaultChatSettings(), theme: domain.ThemeLight, width: domain.SidebarDefaultWidth}
}

func (f *settingsFake) Settings(context.Context) (domain.ChatSettings, error) { return f.settings, nil }

func (f *settingsFake) Update(_ context.Context, s domain.ChatSettings) (domain.ChatSettings, error) {
	f.settings = s
	return s, nil
}

func (f *settingsFake) Theme(context.Context) (domain.Theme, error) { return f.theme, nil }

func (f *settingsFake) ToggleTheme(context.Context) (domain.Theme, error) {
	if f.theme == domain.ThemeDark {
		f.theme = domain.ThemeLight
	} else {
		f.theme = domain.ThemeDark
	}
	return f.theme, nil
}

func (f *settingsFake) SidebarWidth(context.Context) (int, error) { return f.width, nil }

func (f *settingsFake) SetSidebarWidth(_ context.Context, width int) (int, error) {
	if width > domain.SidebarMaxWidth {
		width = domain.SidebarMaxWidth
	}
	f.width = width
	return width, nil
}

type imagesFake struct {
	err error
}

func (f imagesFake) Generate(_ context.Context, req domain.ImageRequest) (*domain.ImageResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ImageResult{ImageURL: "data:image/png;base64,AAA", Provider: req.Provider}, nil
}

type testServices struct {
	processor *processorFake
	uploads   *uploaderFake
	convs     *conversationsFake
	chat      *chatFake
	models    *modelsFake
	settings  *settingsFake
	images    imagesFake
}

func newTestServices() *testServices {
	return &testServices{
		processor: &processorFake{},
		uploads:   &uploaderFake{},
		convs:     newConversationsFake(),
		chat:      &chatFake{},
		models:    &modelsFake{list: domain.ModelList{Models: []domain.ModelInfo{}}},
		settings:  newSettingsFake(),
	}
}

func (s *testServices) handler(cfg config.Config) http.Handler {
	return NewRouter(cfg, Services{
		Processor:     s.processor,
		Uploads:       s.uploads,
		Conversations: s.convs,
		Chat:          s.chat,
		Titles:        titlesFake{},
		Models:        s.models,
		Settings:      s.settings,
		Images:        s.images,
	}, nil).Handler()
}

func newTestHandler(cfg config.Config) http.Handler {
	return newTestServices().handler(cfg)
}
