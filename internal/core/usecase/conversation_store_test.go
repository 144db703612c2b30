package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func newTestStore(t *testing.T) (*ConversationStore, *memKV) {
	t.Helper()
	kv := newMemKV()
	store := NewConversationStore(kv, time.Hour)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store, kv
}

func TestConversationStoreCreateAndPersist(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	conv, err := store.Create(ctx, "llama3.1:8b")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.Title != DefaultConversationTitle || conv.Model != "llama3.1:8b" {
		t.Fatalf("unexpected conversation: %+v", conv)
	}
	if kv.setCount() != 0 {
		t.Fatalf("expected write to be debounced")
	}

	if err := store.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	raw, ok, _ := kv.Get(ctx, ConversationsKey)
	if !ok {
		t.Fatalf("expected persisted conversations")
	}
	var stored []domain.Conversation
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(stored) != 1 || stored[0].ID != conv.ID {
		t.Fatalf("unexpected stored payload: %s", raw)
	}

	reloaded := NewConversationStore(kv, time.Hour)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := reloaded.Get(ctx, conv.ID)
	if err != nil {
		t.Fatalf("get after reload: %v", err)
	}
	if got.Title != conv.Title {
		t.Fatalf("expected title %q, got %q", conv.Title, got.Title)
	}
}

func TestConversationStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	conv, _ := store.Create(ctx, "m")
	if _, err := store.AppendMessages(ctx, conv.ID, domain.Message{Role: domain.RoleUser, Content: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, _ := store.Get(ctx, conv.ID)
	got.Messages[0].Content = "mutated"

	again, _ := store.Get(ctx, conv.ID)
	if again.Messages[0].Content != "hi" {
		t.Fatalf("store state leaked through returned copy")
	}
}

func TestConversationStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	first, _ := store.Create(ctx, "m")
	second, _ := store.Create(ctx, "m")
	if _, err := store.AppendMessages(ctx, first.ID, domain.Message{Role: domain.RoleUser, Content: "bump"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("unexpected order: %+v", list)
	}
	if list[0].MessageCount != 1 {
		t.Fatalf("expected message count 1, got %d", list[0].MessageCount)
	}
}

func TestConversationStoreSaveMessagesKeepsTimestampWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	store.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	conv, _ := store.Create(ctx, "m")
	saved, err := store.SaveMessages(ctx, conv.ID, []domain.Message{{Role: domain.RoleUser, Content: "hello"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Messages[0].ID == "" {
		t.Fatalf("expected message id to be assigned")
	}
	stamp := saved.Timestamp

	again, err := store.SaveMessages(ctx, conv.ID, saved.Messages)
	if err != nil {
		t.Fatalf("save again: %v", err)
	}
	if !again.Timestamp.Equal(stamp) {
		t.Fatalf("timestamp moved without a message change")
	}
}

func TestConversationStoreDeleteDropsFiles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	conv, _ := store.Create(ctx, "m")
	if err := store.AddFile(ctx, conv.ID, domain.UploadedFile{ID: "f1", Name: "a.txt"}); err != nil {
		t.Fatalf("add file: %v", err)
	}

	if err := store.Delete(ctx, conv.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Files(ctx, conv.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if err := store.Delete(ctx, conv.ID); !errors.Is(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound on second delete, got %v", err)
	}
}

func TestConversationStoreFileMutations(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	conv, _ := store.Create(ctx, "m")

	for _, id := range []string{"f1", "f2"} {
		if err := store.AddFile(ctx, conv.ID, domain.UploadedFile{ID: id, Name: id + ".txt", Status: domain.FileStatusProcessing}); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
	}
	if err := store.AddFile(ctx, conv.ID, domain.UploadedFile{ID: "f1"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected duplicate id rejection, got %v", err)
	}

	updated, err := store.UpdateFile(ctx, conv.ID, "f2", func(f *domain.UploadedFile) {
		f.Status = domain.FileStatusReady
		f.Content = "two"
		f.ID = "hijack"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != "f2" || updated.Content != "two" {
		t.Fatalf("unexpected updated file: %+v", updated)
	}

	files, _ := store.Files(ctx, conv.ID)
	if len(files) != 2 || files[0].Status != domain.FileStatusProcessing || files[1].Status != domain.FileStatusReady {
		t.Fatalf("update must touch only its own record: %+v", files)
	}

	if err := store.RemoveFile(ctx, conv.ID, "f1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.UpdateFile(ctx, conv.ID, "f1", func(*domain.UploadedFile) {}); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound after removal, got %v", err)
	}
	if err := store.RemoveFile(ctx, conv.ID, "f1"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	if err := store.ClearFiles(ctx, conv.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	files, _ = store.Files(ctx, conv.ID)
	if len(files) != 0 {
		t.Fatalf("expected no files, got %d", len(files))
	}
}

func TestConversationStoreFlushErrorKeepsPending(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	kv.setErr = errors.New("read-only")

	if _, err := store.Create(ctx, "m"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Flush(ctx); err == nil {
		t.Fatalf("expected flush error")
	}

	kv.setErr = nil
	if err := store.Flush(ctx); err != nil {
		t.Fatalf("retry flush: %v", err)
	}
	if kv.setCount() != 1 {
		t.Fatalf("expected one successful write, got %d", kv.setCount())
	}
}
