package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/local-ai-chat/internal/config"
	"github.com/kirillkom/local-ai-chat/internal/core/domain"
	"github.com/kirillkom/local-ai-chat/internal/core/ports"
	"github.com/kirillkom/local-ai-chat/internal/core/usecase"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/extractor/document"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/extractor/remote"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/imagegen"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/queue/nats"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/resilience"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/local-ai-chat/internal/observability/metrics"
)

const ServiceAPI = "api"

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	Conversations *usecase.ConversationStore
	Processor     *usecase.ProcessDocumentUseCase
	Uploads       *usecase.FileUploadUseCase
	Chat          *usecase.ChatUseCase
	Titles        *usecase.TitleUseCase
	Models        *usecase.ModelsUseCase
	Settings      *usecase.SettingsStore
	Images        *usecase.ImageUseCase

	closers []func(context.Context) error
}

// New wires the API process: persistence, the file pipeline, the inference
// client and the image providers.
func New(ctx context.Context, cfg config.Config) (_ *App, err error) {
	app := &App{
		Config:  cfg,
		Metrics: metrics.NewHTTPServerMetrics(ServiceAPI),
	}
	defer func() {
		if err != nil {
			app.Close(context.WithoutCancel(ctx))
		}
	}()

	executor := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: cfg.RetryMaxAttempts}).
		WithStateObserver(app.Metrics.BreakerObserver(ServiceAPI))
	clientExecutor := resilience.NewExecutor(resilience.ClientConfig(cfg.RetryMaxAttempts)).
		WithStateObserver(app.Metrics.BreakerObserver(ServiceAPI))

	kv, err := app.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app.Conversations = usecase.NewConversationStore(kv, cfg.SaveDebounce)
	if err := app.Conversations.Load(ctx); err != nil {
		return nil, fmt.Errorf("load conversations: %w", err)
	}
	app.closers = append(app.closers, app.Conversations.Close)

	extractor, detector := newExtractor(cfg, clientExecutor)
	normalizer := usecase.NewNormalizer(cfg.ContentMaxChars)
	app.Processor = usecase.NewProcessDocumentUseCase(extractor, detector, normalizer)

	uploadOpts := usecase.FileUploadOptions{
		ProcessTimeout: cfg.UploadProcessTimeout,
		Observer:       metrics.NewUploadMetrics(ServiceAPI, app.Metrics.Registerer()),
	}
	if cfg.NATSURL != "" {
		publisher, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubjectPrefix, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		uploadOpts.Events = publisher
		app.closers = append(app.closers, func(context.Context) error {
			publisher.Close()
			return nil
		})
	}
	app.Uploads = usecase.NewFileUploadUseCase(app.Conversations, extractor, normalizer, uploadOpts)
	// Background extractions write into the store, so they finish before it
	// is flushed.
	app.closers = append(app.closers, func(context.Context) error {
		app.Uploads.Wait()
		return nil
	})

	llm := ollama.New(cfg.OllamaURL,
		ollama.WithTimeout(cfg.OllamaTimeout),
		ollama.WithModelsTimeout(cfg.OllamaModelsTimeout),
		ollama.WithTitleModel(cfg.OllamaTitleModel),
		ollama.WithExecutor(executor),
	)

	app.Settings = usecase.NewSettingsStore(kv)
	app.Titles = usecase.NewTitleUseCase(app.Conversations, ollama.NewTitleGenerator(llm, domain.DefaultChatSettings().SelectedModel))
	app.Chat = usecase.NewChatUseCase(app.Conversations, llm, app.Titles, app.Settings)
	app.Models = usecase.NewModelsUseCase(llm, app.Settings)
	app.Images = usecase.NewImageUseCase(app.Settings,
		imagegen.NewStableDiffusion(cfg.ImageTimeout, executor),
		imagegen.NewOpenAI(cfg.OpenAIBaseURL, cfg.ImageTimeout, executor),
		imagegen.NewReplicate(cfg.ReplicateBaseURL, cfg.ReplicatePollInterval, cfg.ImageTimeout, executor),
	)

	slog.Info("bootstrap_ready",
		"store_backend", cfg.StoreBackend,
		"extractor_mode", cfg.ExtractorMode,
		"events_enabled", cfg.NATSURL != "",
	)
	return app, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (ports.KeyValueStore, error) {
	switch cfg.StoreBackend {
	case config.StoreSQLite:
		db, err := sqlite.OpenDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closeDB(db)
		repo := sqlite.NewKVRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure sqlite schema: %w", err)
		}
		return repo, nil
	case config.StorePostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closeDB(db)
		repo := postgres.NewKVRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return repo, nil
	default:
		storage, err := localfs.New(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("init local store: %w", err)
		}
		return storage, nil
	}
}

func (a *App) closeDB(db *sql.DB) {
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
}

// newExtractor returns the text extractor for the configured mode. The
// remote client still classifies formats locally.
func newExtractor(cfg config.Config, executor *resilience.Executor) (ports.TextExtractor, ports.FormatDetector) {
	if cfg.ExtractorMode == config.ExtractorRemote {
		client := remote.New(cfg.ExtractorURL, cfg.ExtractionTimeout, executor)
		return client, client
	}
	ex := document.NewExtractor()
	return ex, ex
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
