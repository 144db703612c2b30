package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/local-ai-chat/internal/adapters/http"
	"github.com/kirillkom/local-ai-chat/internal/config"
	"github.com/kirillkom/local-ai-chat/internal/core/usecase"
	"github.com/kirillkom/local-ai-chat/internal/infrastructure/extractor/document"
	"github.com/kirillkom/local-ai-chat/internal/observability/logging"
	"github.com/kirillkom/local-ai-chat/internal/observability/metrics"
)

const serviceName = "extractor"

// The extractor serves only POST /api/process-file so that heavy parsing can
// run apart from the chat API (EXTRACTOR_MODE=remote on the API side).
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Install(serviceName, "info").Error("config_invalid", "error", err)
		os.Exit(1)
	}
	logger := logging.Install(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	extractor := document.NewExtractor()
	processor := usecase.NewProcessDocumentUseCase(extractor, extractor, usecase.NewNormalizer(cfg.ContentMaxChars))
	router := httpadapter.NewRouter(cfg, httpadapter.Services{Processor: processor}, metrics.NewHTTPServerMetrics(serviceName)).Handler()

	server := &http.Server{
		Addr:              ":" + cfg.ExtractorPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("extractor_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("extractor_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("extractor_shutdown_failed", "error", err)
	}
}
