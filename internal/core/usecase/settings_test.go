package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func TestSettingsDefaultsWhenEmpty(t *testing.T) {
	store := NewSettingsStore(newMemKV())
	got, err := store.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got != domain.DefaultChatSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSettingsMergeOverDefaults(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = []byte(`{"selected_model":"mistral:7b"}`)
	store := NewSettingsStore(kv)

	got, err := store.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got.SelectedModel != "mistral:7b" {
		t.Fatalf("expected stored model, got %q", got.SelectedModel)
	}
	if got.MaxTokens != 4096 || got.ImageGeneration.DefaultSteps != 20 || got.ImageGeneration.Provider != domain.ImageProviderStableDiffusion {
		t.Fatalf("missing fields must keep defaults: %+v", got)
	}
}

func TestSettingsCorruptPayloadFallsBack(t *testing.T) {
	kv := newMemKV()
	kv.data[SettingsKey] = []byte(`{not json`)
	store := NewSettingsStore(kv)

	got, err := store.Settings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if got != domain.DefaultChatSettings() {
		t.Fatalf("expected defaults for corrupt payload")
	}
}

func TestSettingsUpdateRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(newMemKV())

	in := domain.ChatSettings{
		SelectedModel: "phi3",
		ImageGeneration: domain.ImageSettings{
			Provider:     domain.ImageProviderOpenAI,
			OpenAIAPIKey: "sk-test",
		},
	}
	saved, err := store.Update(ctx, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved.MaxTokens != 4096 || saved.ImageGeneration.DefaultSize != "512x512" {
		t.Fatalf("zero fields must take defaults: %+v", saved)
	}

	got, _ := store.Settings(ctx)
	if got != saved {
		t.Fatalf("expected %+v, got %+v", saved, got)
	}
}

func TestSettingsThemeToggle(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(newMemKV())

	theme, _ := store.Theme(ctx)
	if theme != domain.ThemeLight {
		t.Fatalf("expected light default, got %q", theme)
	}
	next, err := store.ToggleTheme(ctx)
	if err != nil || next != domain.ThemeDark {
		t.Fatalf("expected dark, got %q %v", next, err)
	}
	next, _ = store.ToggleTheme(ctx)
	if next != domain.ThemeLight {
		t.Fatalf("expected light, got %q", next)
	}
	if err := store.SetTheme(ctx, "sepia"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSettingsThemeStoredAsJSON(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	store := NewSettingsStore(kv)

	if err := store.SetTheme(ctx, domain.ThemeDark); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	raw, _, _ := kv.Get(ctx, ThemeKey)
	if string(raw) != `"dark"` {
		t.Fatalf("expected JSON string, got %s", raw)
	}

	_ = kv.Set(ctx, ThemeKey, []byte("dark"))
	if theme, _ := store.Theme(ctx); theme != domain.ThemeDark {
		t.Fatalf("bare value must still be read, got %q", theme)
	}
}

func TestSettingsConcurrentThemeToggles(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(newMemKV())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = store.ToggleTheme(ctx)
				_, _ = store.ToggleTheme(ctx)
				return
			}
			_, _ = store.Theme(ctx)
		}()
	}
	wg.Wait()

	if theme, _ := store.Theme(ctx); theme != domain.ThemeLight {
		t.Fatalf("an even number of toggles must end on light, got %q", theme)
	}
}

func TestSettingsSidebarWidthClamped(t *testing.T) {
	ctx := context.Background()
	store := NewSettingsStore(newMemKV())

	width, _ := store.SidebarWidth(ctx)
	if width != domain.SidebarDefaultWidth {
		t.Fatalf("expected default width, got %d", width)
	}
	cases := map[int]int{100: 240, 240: 240, 450: 450, 600: 600, 900: 600}
	for in, want := range cases {
		got, err := store.SetSidebarWidth(ctx, in)
		if err != nil {
			t.Fatalf("set width: %v", err)
		}
		if got != want {
			t.Fatalf("SetSidebarWidth(%d): expected %d, got %d", in, want, got)
		}
		stored, _ := store.SidebarWidth(ctx)
		if stored != want {
			t.Fatalf("stored width %d, want %d", stored, want)
		}
	}
}
