package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

const (
	SettingsKey     = "chat-settings"
	ThemeKey        = "chat-theme"
	SidebarWidthKey = "sidebar-width"
)

// SettingsStore persists user preferences. Stored values are decoded over the
// defaults so fields missing from older payloads keep their default value.
type SettingsStore struct {
	kv ports.KeyValueStore
	mu sync.Mutex
}

func NewSettingsStore(kv ports.KeyValueStore) *SettingsStore {
	return &SettingsStore{kv: kv}
}

func (s *SettingsStore) Settings(ctx context.Context) (domain.ChatSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Update replaces the stored settings. Zero fields fall back to defaults.
func (s *SettingsStore) Update(ctx context.Context, settings domain.ChatSettings) (domain.ChatSettings, error) {
	merged := mergeSettings(settings)
	raw, err := json.Marshal(merged)
	if err != nil {
		return domain.ChatSettings{}, fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, SettingsKey, raw); err != nil {
		return domain.ChatSettings{}, fmt.Errorf("save settings: %w", err)
	}
	return merged, nil
}

func (s *SettingsStore) Theme(ctx context.Context) (domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme(ctx)
}

func (s *SettingsStore) SetTheme(ctx context.Context, theme domain.Theme) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTheme(ctx, theme)
}

func (s *SettingsStore) ToggleTheme(ctx context.Context) (domain.Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.theme(ctx)
	if err != nil {
		return "", err
	}
	next := domain.ThemeDark
	if current == domain.ThemeDark {
		next = domain.ThemeLight
	}
	if err := s.setTheme(ctx, next); err != nil {
		return "", err
	}
	return next, nil
}

func (s *SettingsStore) theme(ctx context.Context) (domain.Theme, error) {
	raw, ok, err := s.kv.Get(ctx, ThemeKey)
	if err != nil {
		return "", fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		return domain.ThemeLight, nil
	}
	return parseTheme(raw), nil
}

func (s *SettingsStore) setTheme(ctx context.Context, theme domain.Theme) error {
	if theme != domain.ThemeLight && theme != domain.ThemeDark {
		return domain.WrapError(domain.ErrInvalidInput, "set theme", fmt.Errorf("unknown theme %q", theme))
	}
	raw, err := json.Marshal(theme)
	if err != nil {
		return fmt.Errorf("encode theme: %w", err)
	}
	if err := s.kv.Set(ctx, ThemeKey, raw); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}

func (s *SettingsStore) SidebarWidth(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.kv.Get(ctx, SidebarWidthKey)
	if err != nil {
		return 0, fmt.Errorf("load sidebar width: %w", err)
	}
	if !ok {
		return domain.SidebarDefaultWidth, nil
	}
	var width int
	if err := json.Unmarshal(raw, &width); err != nil {
		return domain.SidebarDefaultWidth, nil
	}
	return ClampSidebarWidth(width), nil
}

// SetSidebarWidth stores the width clamped into the allowed range and
// returns the stored value.
func (s *SettingsStore) SetSidebarWidth(ctx context.Context, width int) (int, error) {
	width = ClampSidebarWidth(width)
	raw, err := json.Marshal(width)
	if err != nil {
		return 0, fmt.Errorf("encode sidebar width: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(ctx, SidebarWidthKey, raw); err != nil {
		return 0, fmt.Errorf("save sidebar width: %w", err)
	}
	return width, nil
}

func ClampSidebarWidth(width int) int {
	return min(max(width, domain.SidebarMinWidth), domain.SidebarMaxWidth)
}

func (s *SettingsStore) load(ctx context.Context) (domain.ChatSettings, error) {
	settings := domain.DefaultChatSettings()
	raw, ok, err := s.kv.Get(ctx, SettingsKey)
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		return settings, nil
	}
	if err := json.Unmarshal(raw, &settings); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			slog.Warn("settings_corrupt", "error", err)
			return domain.DefaultChatSettings(), nil
		}
		return domain.DefaultChatSettings(), fmt.Errorf("decode settings: %w", err)
	}
	return settings, nil
}

func mergeSettings(in domain.ChatSettings) domain.ChatSettings {
	out := domain.DefaultChatSettings()
	if in.SelectedModel != "" {
		out.SelectedModel = in.SelectedModel
	}
	if in.MaxTokens > 0 {
		out.MaxTokens = in.MaxTokens
	}

	img := in.ImageGeneration
	if img.Provider != "" {
		out.ImageGeneration.Provider = img.Provider
	}
	if img.StableDiffusionURL != "" {
		out.ImageGeneration.StableDiffusionURL = img.StableDiffusionURL
	}
	out.ImageGeneration.OpenAIAPIKey = img.OpenAIAPIKey
	out.ImageGeneration.ReplicateAPIKey = img.ReplicateAPIKey
	if img.DefaultSize != "" {
		out.ImageGeneration.DefaultSize = img.DefaultSize
	}
	if img.DefaultSteps > 0 {
		out.ImageGeneration.DefaultSteps = img.DefaultSteps
	}
	return out
}

// parseTheme reads a JSON string and also accepts a bare value. Anything
// unrecognized is light.
func parseTheme(raw []byte) domain.Theme {
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		value = strings.TrimSpace(string(raw))
	}
	if domain.Theme(value) == domain.ThemeDark {
		return domain.ThemeDark
	}
	return domain.ThemeLight
}
