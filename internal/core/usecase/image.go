package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
)

type ImageUseCase struct {
	providers map[domain.ImageProvider]ports.ImageGenerator
	settings  *SettingsStore
}

func NewImageUseCase(settings *SettingsStore, generators ...ports.ImageGenerator) *ImageUseCase {
	providers := make(map[domain.ImageProvider]ports.ImageGenerator, len(generators))
	for _, g := range generators {
		providers[g.Provider()] = g
	}
	return &ImageUseCase{providers: providers, settings: settings}
}

func (uc *ImageUseCase) Generate(ctx context.Context, req domain.ImageRequest) (*domain.ImageResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate image", errors.New("prompt is required"))
	}

	settings, err := uc.imageSettings(ctx, req.Settings)
	if err != nil {
		return nil, err
	}
	provider := req.Provider
	if provider == "" {
		provider = settings.Provider
	}
	generator, ok := uc.providers[provider]
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "generate image", fmt.Errorf("invalid provider %q", provider))
	}

	start := time.Now()
	url, err := generator.Generate(ctx, prompt, settings)
	if err != nil {
		return nil, fmt.Errorf("generate image with %s: %w", provider, err)
	}
	slog.Info("image_generated",
		"provider", string(provider),
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return &domain.ImageResult{ImageURL: url, Provider: provider}, nil
}

func (uc *ImageUseCase) imageSettings(ctx context.Context, override *domain.ImageSettings) (domain.ImageSettings, error) {
	if override != nil {
		merged := mergeSettings(domain.ChatSettings{ImageGeneration: *override})
		return merged.ImageGeneration, nil
	}
	if uc.settings == nil {
		return domain.DefaultChatSettings().ImageGeneration, nil
	}
	settings, err := uc.settings.Settings(ctx)
	if err != nil {
		return domain.ImageSettings{}, err
	}
	return settings.ImageGeneration, nil
}
