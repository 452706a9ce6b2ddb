package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/orbitwatch/neo-insights-etl/internal/adapter/blob"
	httpadapter "github.com/orbitwatch/neo-insights-etl/internal/adapter/http"
	kafkaadapter "github.com/orbitwatch/neo-insights-etl/internal/adapter/kafka"
	"github.com/orbitwatch/neo-insights-etl/internal/adapter/nasa"
	"github.com/orbitwatch/neo-insights-etl/internal/adapter/postgres"
	"github.com/orbitwatch/neo-insights-etl/internal/adapter/webhook"
	"github.com/orbitwatch/neo-insights-etl/internal/config"
	"github.com/orbitwatch/neo-insights-etl/internal/observability"
	"github.com/orbitwatch/neo-insights-etl/internal/pipeline"
)

func main() {
	modeFlag := flag.String("mode", "auto", "processing mode: auto, full, incremental, or validation")
	serve := flag.Bool("serve", false, "run the HTTP server and wait for triggers instead of a one-shot cycle")
	migrate := flag.Bool("migrate", false, "apply the database schema before processing")
	flag.Parse()

	// Local development convenience; the file is absent in deployment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	mode, err := pipeline.ParseMode(*modeFlag)
	if err != nil {
		logger.Error("invalid mode", "error", err)
		os.Exit(1)
	}

	store, err := postgres.Connect(cfg.DatabaseDSN, logger)
	if err != nil {
		logger.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *migrate {
		if err := store.Migrate(ctx); err != nil {
			logger.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	feed := nasa.NewClient(cfg.NASAAPIKey, cfg.NASABaseURL, cfg.NASATimeout, logger)
	notifier := webhook.NewNotifier(cfg.WebhookURL, logger)

	var archiver pipeline.Archiver
	var kafkaArchiver *kafkaadapter.Archiver
	switch cfg.ArchiveBackend {
	case config.ArchiveKafka:
		kafkaArchiver = kafkaadapter.NewArchiver(cfg, logger)
		archiver = kafkaArchiver
		logger.Info("archiving to kafka", "topic", cfg.KafkaTopic)
	default:
		archiver = blob.NewFileStore(cfg.ArchiveDir, logger)
		logger.Info("archiving to filesystem", "dir", cfg.ArchiveDir)
	}

	cycle := pipeline.New(feed, archiver, store, notifier, logger, metrics, cfg.ArchivePrefix)

	if !*serve {
		report, err := cycle.Run(ctx, mode)
		closeArchiver(kafkaArchiver, logger)
		if err != nil {
			logger.Error("cycle failed", "cycle_id", report.CycleID, "stage", report.Stage.String(), "error", err)
			if report.Stage == pipeline.StageFailed {
				os.Exit(1)
			}
		}
		return
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, cycle, cycle, store, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	closeArchiver(kafkaArchiver, logger)

	logger.Info("shutdown complete")
}

func closeArchiver(a *kafkaadapter.Archiver, logger *slog.Logger) {
	if a == nil {
		return
	}
	if err := a.Close(); err != nil {
		logger.Error("kafka archiver close error", "error", err)
	}
}
