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

const DefaultOpenAIBaseURL = "https://api.openai.com"

type OpenAI struct {
	baseURL string
	client  httpClient
}

func NewOpenAI(baseURL string, timeout time.Duration, executor *resilience.Executor) *OpenAI {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient("OpenAI", timeout, executor),
	}
}

func (g *OpenAI) Provider() domain.ImageProvider {
	return domain.ImageProviderOpenAI
}

func (g *OpenAI) Generate(ctx context.Context, prompt string, settings domain.ImageSettings) (string, error) {
	apiKey := strings.TrimSpace(settings.OpenAIAPIKey)
	if apiKey == "" {
		return "", providerError("openai images", errors.New("OpenAI API key not configured"))
	}

	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	err := g.client.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/images/generations",
		map[string]string{"Authorization": "Bearer " + apiKey},
		map[string]any{
			"prompt": prompt,
			"size":   openAISize(settings.DefaultSize),
			"n":      1,
		}, &out)
	if err != nil {
		return "", providerError("openai images", err)
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", providerError("openai images", errors.New("No images generated"))
	}
	return out.Data[0].URL, nil
}

// openAISize maps a configured size onto one the images API accepts.
func openAISize(size string) string {
	if strings.TrimSpace(size) == "1024x1024" {
		return "1024x1024"
	}
	return "512x512"
}
