package imagegen

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const (
	sdCFGScale = 7
	sdSampler  = "DPM++ 2M Karras"
)

// StableDiffusion calls a local AUTOMATIC1111-compatible txt2img API. The
// server URL comes from the user's image settings.
type StableDiffusion struct {
	client httpClient
}

func NewStableDiffusion(timeout time.Duration, executor *resilience.Executor) *StableDiffusion {
	return &StableDiffusion{client: newHTTPClient("Stable Diffusion", timeout, executor)}
}

func (g *StableDiffusion) Provider() domain.ImageProvider {
	return domain.ImageProviderStableDiffusion
}

type txt2imgRequest struct {
	Prompt      string  `json:"prompt"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Steps       int     `json:"steps"`
	CFGScale    float64 `json:"cfg_scale"`
	SamplerName string  `json:"sampler_name"`
}

func (g *StableDiffusion) Generate(ctx context.Context, prompt string, settings domain.ImageSettings) (string, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(settings.StableDiffusionURL), "/")
	if baseURL == "" {
		return "", providerError("stable diffusion", errors.New("Stable Diffusion URL not configured"))
	}
	width, height := parseSize(settings.DefaultSize)
	steps := settings.DefaultSteps
	if steps <= 0 {
		steps = domain.DefaultChatSettings().ImageGeneration.DefaultSteps
	}

	var out struct {
		Images []string `json:"images"`
	}
	err := g.client.doJSON(ctx, http.MethodPost, baseURL+"/sdapi/v1/txt2img", nil, txt2imgRequest{
		Prompt:      prompt,
		Width:       width,
		Height:      height,
		Steps:       steps,
		CFGScale:    sdCFGScale,
		SamplerName: sdSampler,
	}, &out)
	if err != nil {
		return "", providerError("stable diffusion", err)
	}
	if len(out.Images) == 0 || out.Images[0] == "" {
		return "", providerError("stable diffusion", errors.New("No images generated"))
	}
	return "data:image/png;base64," + out.Images[0], nil
}
