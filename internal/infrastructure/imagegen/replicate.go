package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const (
	DefaultReplicateBaseURL      = "https://api.replicate.com"
	DefaultReplicatePollInterval = time.Second
	replicateModelVersion        = "ac732df83cea7fff18b8472768c88ad041fa750ff7682a21affe81863cbe77e4"
)

// Replicate submits a prediction and polls it until it reaches a terminal
// state.
type Replicate struct {
	baseURL      string
	pollInterval time.Duration
	client       httpClient
}

func NewReplicate(baseURL string, pollInterval, timeout time.Duration, executor *resilience.Executor) *Replicate {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultReplicateBaseURL
	}
	if pollInterval <= 0 {
		pollInterval = DefaultReplicatePollInterval
	}
	return &Replicate{
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: pollInterval,
		client:       newHTTPClient("Replicate", timeout, executor),
	}
}

func (g *Replicate) Provider() domain.ImageProvider {
	return domain.ImageProviderReplicate
}

type prediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  any      `json:"error"`
}

func (p prediction) pending() bool {
	return p.Status == "starting" || p.Status == "processing"
}

func (g *Replicate) Generate(ctx context.Context, prompt string, settings domain.ImageSettings) (string, error) {
	apiKey := strings.TrimSpace(settings.ReplicateAPIKey)
	if apiKey == "" {
		return "", providerError("replicate", errors.New("Replicate API key not configured"))
	}
	auth := map[string]string{"Authorization": "Token " + apiKey}

	var current prediction
	err := g.client.doJSON(ctx, http.MethodPost, g.baseURL+"/v1/predictions", auth, map[string]any{
		"version": replicateModelVersion,
		"input": map[string]any{
			"prompt": prompt,
			"width":  512,
			"height": 512,
		},
	}, &current)
	if err != nil {
		return "", providerError("replicate", err)
	}

	ticker := time.NewTicker(g.pollInterval)
	defer ticker.Stop()
	polls := 0
	for current.pending() {
		select {
		case <-ctx.Done():
			return "", providerError("replicate", fmt.Errorf("prediction %s: %w", current.ID, ctx.Err()))
		case <-ticker.C:
		}
		polls++

		var next prediction
		if err := g.client.doJSON(ctx, http.MethodGet, g.baseURL+"/v1/predictions/"+current.ID, auth, nil, &next); err != nil {
			return "", providerError("replicate", err)
		}
		if next.ID == "" {
			next.ID = current.ID
		}
		current = next
	}
	slog.Debug("replicate_prediction_finished", "id", current.ID, "status", current.Status, "polls", polls)

	if current.Status == "failed" || current.Status == "canceled" {
		return "", providerError("replicate", fmt.Errorf("Replicate generation failed: %v", current.Error))
	}
	if len(current.Output) == 0 || current.Output[0] == "" {
		return "", providerError("replicate", errors.New("No images generated"))
	}
	return current.Output[0], nil
}
