package ollama

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL       = "http://localhost:11434"
	DefaultTimeout       = 120 * time.Second
	DefaultModelsTimeout = 5 * time.Second
)

// Client talks to a local Ollama server: chat relay, title generation and
// model listing.
type Client struct {
	baseURL       string
	titleModel    string
	httpClient    *http.Client
	modelsTimeout time.Duration
	executor      *resilience.Executor
}

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func WithModelsTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.modelsTimeout = timeout
		}
	}
}

// WithTitleModel pins the model used for titles. Empty means the chat model
// of the conversation being titled.
func WithTitleModel(model string) Option {
	return func(c *Client) {
		c.titleModel = strings.TrimSpace(model)
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(c *Client) {
		c.executor = executor
	}
}

func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		modelsTimeout: DefaultModelsTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type TitleGenerator struct {
	client *Client
	model  string
}

// NewTitleGenerator uses model unless the client pins a title model.
func NewTitleGenerator(client *Client, model string) *TitleGenerator {
	if client.titleModel != "" {
		model = client.titleModel
	}
	return &TitleGenerator{client: client, model: model}
}

func (g *TitleGenerator) GenerateTitle(ctx context.Context, messages []domain.Message) (string, error) {
	return g.client.generateText(ctx, g.model, buildTitlePrompt(messages), titleMaxTokens)
}

func (c *Client) generateText(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	reqBody := generateRequest{
		Model:  model,
		Prompt: prompt,
		Stream: false,
	}
	if maxTokens > 0 {
		reqBody.Options = &requestOptions{NumPredict: maxTokens}
	}

	var response struct {
		Response string `json:"response"`
	}
	err := c.executor.Execute(ctx, "ollama_generate", func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/generate", reqBody, &response, "generate")
	}, classifyOllamaError)
	if err != nil {
		return "", wrapUnavailable("ollama generate", err)
	}
	return strings.TrimSpace(response.Response), nil
}
