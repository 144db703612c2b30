package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const unknownDetail = "Unknown"

type tagModel struct {
	Name       string    `json:"name"`
	Model      string    `json:"model"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
	Details    struct {
		ParameterSize     string `json:"parameter_size"`
		QuantizationLevel string `json:"quantization_level"`
		Family            string `json:"family"`
	} `json:"details"`
}

type tagsResponse struct {
	Models *[]tagModel `json:"models"`
}

// ListModels reads /api/tags under the short listing timeout.
func (c *Client) ListModels(ctx context.Context) ([]domain.ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.modelsTimeout)
	defer cancel()

	tags, err := resilience.Do(ctx, c.executor, "ollama_tags", func(ctx context.Context) (tagsResponse, error) {
		return c.fetchTags(ctx)
	}, classifyOllamaError)
	if err != nil {
		return nil, wrapUnavailable("ollama tags", err)
	}
	if tags.Models == nil {
		return nil, &UnavailableError{
			Message: "Invalid response from Ollama. No models data found.",
			Err:     errors.New("tags response has no models field"),
		}
	}

	out := make([]domain.ModelInfo, 0, len(*tags.Models))
	for _, m := range *tags.Models {
		out = append(out, domain.ModelInfo{
			Name:          m.Name,
			Model:         m.Model,
			Size:          m.Size,
			ModifiedAt:    m.ModifiedAt,
			ParameterSize: orUnknown(m.Details.ParameterSize),
			Quantization:  orUnknown(m.Details.QuantizationLevel),
			Family:        orUnknown(m.Details.Family),
		})
	}
	return out, nil
}

func (c *Client) fetchTags(ctx context.Context) (tagsResponse, error) {
	var out tagsResponse
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/api/tags", nil, "tags")
	if err != nil {
		return out, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("ollama tags request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return out, formatOllamaHTTPError("tags", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode tags response: %w", err)
	}
	return out, nil
}

func orUnknown(v string) string {
	if v == "" {
		return unknownDetail
	}
	return v
}
