package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/local-ai-chat/internal/adapters/http"
	"github.com/kirillkom/local-ai-chat/internal/bootstrap"
	"github.com/kirillkom/local-ai-chat/internal/config"
	"github.com/kirillkom/local-ai-chat/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Install(bootstrap.ServiceAPI, "info").Error("config_invalid", "error", err)
		os.Exit(1)
	}
	logger := logging.Install(bootstrap.ServiceAPI, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Processor:     app.Processor,
		Uploads:       app.Uploads,
		Conversations: app.Conversations,
		Chat:          app.Chat,
		Titles:        app.Titles,
		Models:        app.Models,
		Settings:      app.Settings,
		Images:        app.Images,
	}, app.Metrics).Handler()

	// No WriteTimeout: chat replies stream for as long as the model runs.
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
	if err := app.Close(shutdownCtx); err != nil {
		logger.Error("app_close_failed", "error", err)
	}
	slog.Info("api_stopped")
}
