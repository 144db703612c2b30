package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
)

func TestImageGenerateDispatchesToProvider(t *testing.T) {
	sd := &imageGeneratorFake{provider: domain.ImageProviderStableDiffusion, url: "data:image/png;base64,AAA"}
	oa := &imageGeneratorFake{provider: domain.ImageProviderOpenAI, url: "https://img/1.png"}
	uc := NewImageUseCase(NewSettingsStore(newMemKV()), sd, oa)

	res, err := uc.Generate(context.Background(), domain.ImageRequest{Prompt: " a cat ", Provider: domain.ImageProviderOpenAI})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if res.ImageURL != "https://img/1.png" || res.Provider != domain.ImageProviderOpenAI {
		t.Fatalf("unexpected result %+v", res)
	}
	if oa.prompt != "a cat" {
		t.Fatalf("expected trimmed prompt, got %q", oa.prompt)
	}

	res, err = uc.Generate(context.Background(), domain.ImageRequest{Prompt: "a dog"})
	if err != nil {
		t.Fatalf("generate default: %v", err)
	}
	if res.Provider != domain.ImageProviderStableDiffusion || sd.settings.StableDiffusionURL != "http://localhost:7860" {
		t.Fatalf("expected stored default provider and settings, got %+v %+v", res, sd.settings)
	}
}

func TestImageGenerateValidation(t *testing.T) {
	uc := NewImageUseCase(nil, &imageGeneratorFake{provider: domain.ImageProviderStableDiffusion})

	if _, err := uc.Generate(context.Background(), domain.ImageRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for empty prompt, got %v", err)
	}
	if _, err := uc.Generate(context.Background(), domain.ImageRequest{Prompt: "x", Provider: "midjourney"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown provider, got %v", err)
	}
}

func TestImageGenerateUsesOverrideSettings(t *testing.T) {
	rep := &imageGeneratorFake{provider: domain.ImageProviderReplicate, err: domain.WrapError(domain.ErrImageProvider, "replicate", errors.New("failed"))}
	uc := NewImageUseCase(nil, rep)

	_, err := uc.Generate(context.Background(), domain.ImageRequest{
		Prompt:   "x",
		Provider: domain.ImageProviderReplicate,
		Settings: &domain.ImageSettings{ReplicateAPIKey: "r8_key"},
	})
	if !errors.Is(err, domain.ErrImageProvider) {
		t.Fatalf("expected ErrImageProvider, got %v", err)
	}
	if rep.settings.ReplicateAPIKey != "r8_key" || rep.settings.DefaultSteps != 20 {
		t.Fatalf("override must merge over defaults: %+v", rep.settings)
	}
}
