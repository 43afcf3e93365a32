package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"empatia/internal/app"
	"empatia/internal/config"
	"empatia/internal/domain"
	"empatia/internal/i18n"
	"empatia/internal/storage"
	"empatia/internal/storage/jsonfile"
	"empatia/internal/storage/sqlite"
	"empatia/internal/submit"
	httpTransport "empatia/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting empathy kiosk",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"store", cfg.Storage.Backend,
	)

	// Word tallies
	backend, err := openBackend(cfg.Storage)
	if err != nil {
		logger.Error("failed to open score store", "error", err)
		os.Exit(1)
	}
	store := storage.NewWordScoreStore(backend, logger)
	defer store.Close()

	// Result delivery
	target := config.LoadSubmitTarget(cfg.Submit.ServerConfigPath, logger)
	submitter, err := submit.New(submit.Config{
		BaseURL: target.BaseURL(),
		GameID:  cfg.Submit.GameID,
		Timeout: cfg.Submit.Timeout,
	}, logger)
	if err != nil {
		logger.Error("invalid results server", "base_url", target.BaseURL(), "error", err)
		os.Exit(1)
	}

	// Texts
	catalog := i18n.Load(cfg.Locale.LanguagePath, logger)
	defaultLang, ok := i18n.ParseTag(cfg.Locale.DefaultLanguage)
	if !ok {
		logger.Warn("unsupported default language, using Portuguese", "language", cfg.Locale.DefaultLanguage)
	}

	engine := app.NewRoundEngine(domain.DefaultRounds(), domain.Policy{
		RequireMinimumSelection: cfg.Game.RequireMinimumSelection,
		HasSummaryContinueStep:  cfg.Game.HasSummaryContinueStep,
	}, store, logger)

	kiosk := app.NewKiosk(engine, store, submitter, catalog, app.KioskConfig{
		TopWords:          cfg.Game.TopWords,
		InactivityTimeout: cfg.Game.InactivityTimeout,
		DefaultLanguage:   defaultLang,
	}, logger)

	// Create HTTP server
	server := httpTransport.NewServer(cfg, kiosk, logger)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	// in-flight submissions finish before their results are dropped
	submitter.Close()
	kiosk.Close()

	logger.Info("server stopped")
}

func openBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.StoreBackendSQLite:
		return sqlite.Open(cfg.SQLitePath)
	default:
		return jsonfile.Open(cfg.ScoresDir)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
