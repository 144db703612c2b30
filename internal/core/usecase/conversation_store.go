package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const (
	ConversationsKey    = "chat-conversations"
	DefaultSaveDebounce = 200 * time.Millisecond
)

// ConversationStore keeps conversations in memory as the session source of
// truth and flushes them to the key-value port after a quiet period. It is
// also the FileRecordStore: every file mutation is an id-keyed merge.
type ConversationStore struct {
	kv  ports.KeyValueStore
	now func() time.Time

	mu            sync.Mutex
	conversations map[string]*domain.Conversation

	saver *Debouncer
}

func NewConversationStore(kv ports.KeyValueStore, saveDebounce time.Duration) *ConversationStore {
	s := &ConversationStore{
		kv:            kv,
		now:           func() time.Time { return time.Now().UTC() },
		conversations: make(map[string]*domain.Conversation),
	}
	s.saver = NewDebouncer(saveDebounce, s.persist)
	return s
}

// Load replaces in-memory state with the persisted conversation list.
func (s *ConversationStore) Load(ctx context.Context) error {
	raw, ok, err := s.kv.Get(ctx, ConversationsKey)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	var stored []domain.Conversation
	if ok && len(raw) > 0 {
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode conversations: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*domain.Conversation, len(stored))
	for i := range stored {
		conv := stored[i]
		if conv.ID == "" {
			continue
		}
		s.conversations[conv.ID] = conv.Clone()
	}
	return nil
}

func (s *ConversationStore) Create(_ context.Context, model string) (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		Title:     DefaultConversationTitle,
		Model:     strings.TrimSpace(model),
		Timestamp: s.now(),
		Messages:  []domain.Message{},
		Files:     []domain.UploadedFile{},
	}

	s.mu.Lock()
	s.conversations[conv.ID] = conv
	out := conv.Clone()
	s.mu.Unlock()

	s.saver.Trigger()
	return out, nil
}

func (s *ConversationStore) Get(_ context.Context, id string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, notFound(id)
	}
	return conv.Clone(), nil
}

func (s *ConversationStore) List(_ context.Context) ([]domain.ConversationSummary, error) {
	s.mu.Lock()
	out := make([]domain.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, domain.ConversationSummary{
			ID:           conv.ID,
			Title:        conv.Title,
			Model:        conv.Model,
			Timestamp:    conv.Timestamp,
			MessageCount: len(conv.Messages),
			FileCount:    len(conv.Files),
		})
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].ID < out[j].ID
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Delete removes a conversation together with all of its files.
func (s *ConversationStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.conversations[id]; !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	delete(s.conversations, id)
	s.mu.Unlock()

	s.saver.Trigger()
	return nil
}

func (s *ConversationStore) SetTitle(_ context.Context, id, title string) error {
	return s.mutate(id, func(conv *domain.Conversation) error {
		conv.Title = title
		return nil
	})
}

func (s *ConversationStore) SetModel(_ context.Context, id, model string) error {
	return s.mutate(id, func(conv *domain.Conversation) error {
		conv.Model = model
		return nil
	})
}

// SaveMessages replaces the message array. The timestamp only moves when the
// messages actually changed, so re-opening a conversation does not reorder it.
func (s *ConversationStore) SaveMessages(_ context.Context, id string, messages []domain.Message) (*domain.Conversation, error) {
	var out *domain.Conversation
	err := s.mutate(id, func(conv *domain.Conversation) error {
		next := make([]domain.Message, len(messages))
		for i, msg := range messages {
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			next[i] = msg
		}
		if messagesChanged(conv.Messages, next) {
			conv.Timestamp = s.now()
		}
		conv.Messages = next
		out = conv.Clone()
		return nil
	})
	return out, err
}

func (s *ConversationStore) AppendMessages(_ context.Context, id string, messages ...domain.Message) (*domain.Conversation, error) {
	var out *domain.Conversation
	err := s.mutate(id, func(conv *domain.Conversation) error {
		for _, msg := range messages {
			if msg.ID == "" {
				msg.ID = uuid.NewString()
			}
			conv.Messages = append(conv.Messages, msg)
		}
		if len(messages) > 0 {
			conv.Timestamp = s.now()
		}
		out = conv.Clone()
		return nil
	})
	return out, err
}

func (s *ConversationStore) AddFile(_ context.Context, conversationID string, file domain.UploadedFile) error {
	return s.mutate(conversationID, func(conv *domain.Conversation) error {
		for _, existing := range conv.Files {
			if existing.ID == file.ID {
				return domain.WrapError(domain.ErrInvalidInput, "add file", fmt.Errorf("duplicate file id %s", file.ID))
			}
		}
		conv.Files = append(conv.Files, file)
		return nil
	})
}

// UpdateFile applies mutate to the file with fileID only. Files added or
// updated concurrently by other uploads are left untouched.
func (s *ConversationStore) UpdateFile(_ context.Context, conversationID, fileID string, mutate func(*domain.UploadedFile)) (domain.UploadedFile, error) {
	var updated domain.UploadedFile
	err := s.mutate(conversationID, func(conv *domain.Conversation) error {
		for i := range conv.Files {
			if conv.Files[i].ID != fileID {
				continue
			}
			next := conv.Files[i]
			mutate(&next)
			next.ID = fileID
			conv.Files[i] = next
			updated = next
			return nil
		}
		return domain.WrapError(domain.ErrFileNotFound, "update file", fmt.Errorf("id=%s", fileID))
	})
	return updated, err
}

func (s *ConversationStore) RemoveFile(_ context.Context, conversationID, fileID string) error {
	return s.mutate(conversationID, func(conv *domain.Conversation) error {
		for i := range conv.Files {
			if conv.Files[i].ID == fileID {
				conv.Files = append(conv.Files[:i:i], conv.Files[i+1:]...)
				return nil
			}
		}
		return domain.WrapError(domain.ErrFileNotFound, "remove file", fmt.Errorf("id=%s", fileID))
	})
}

func (s *ConversationStore) ClearFiles(_ context.Context, conversationID string) error {
	return s.mutate(conversationID, func(conv *domain.Conversation) error {
		conv.Files = []domain.UploadedFile{}
		return nil
	})
}

func (s *ConversationStore) Files(_ context.Context, conversationID string) ([]domain.UploadedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, notFound(conversationID)
	}
	return append([]domain.UploadedFile{}, conv.Files...), nil
}

// Flush writes any pending change now. Call it on conversation switch.
func (s *ConversationStore) Flush(ctx context.Context) error {
	return s.saver.Flush(ctx)
}

func (s *ConversationStore) Close(ctx context.Context) error {
	return s.saver.Close(ctx)
}

func (s *ConversationStore) mutate(id string, fn func(*domain.Conversation) error) error {
	s.mu.Lock()
	conv, ok := s.conversations[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	if err := fn(conv); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.saver.Trigger()
	return nil
}

func (s *ConversationStore) persist(ctx context.Context) error {
	s.mu.Lock()
	snapshot := make([]domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		snapshot = append(snapshot, *conv.Clone())
	}
	s.mu.Unlock()

	sort.SliceStable(snapshot, func(i, j int) bool {
		if snapshot[i].Timestamp.Equal(snapshot[j].Timestamp) {
			return snapshot[i].ID < snapshot[j].ID
		}
		return snapshot[i].Timestamp.After(snapshot[j].Timestamp)
	})

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}
	if err := s.kv.Set(ctx, ConversationsKey, raw); err != nil {
		return fmt.Errorf("persist conversations: %w", err)
	}
	return nil
}

func messagesChanged(prev, next []domain.Message) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i].ID != next[i].ID || prev[i].Content != next[i].Content || prev[i].Role != next[i].Role {
			return true
		}
	}
	return false
}

func notFound(id string) error {
	return domain.WrapError(domain.ErrConversationNotFound, "conversation", fmt.Errorf("id=%s", id))
}
