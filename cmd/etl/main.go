package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	csvsource "github.com/couchcryptid/air-quality-etl/internal/adapter/csv"
	httpadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	catalog := csvsource.NewCatalog(cfg.DataDir, cfg.PollutantColumn)
	cleaner := pipeline.NewCleaner(logger, metrics)
	store := pipeline.NewStore(cleaner, cfg.CacheMaxSources, logger, metrics)

	opts := pipeline.Options{
		DefaultStation: cfg.DefaultStation,
		Split:          domain.SplitConfig{Seed: cfg.SplitSeed, TestFraction: cfg.TestFraction},
		Threshold:      cfg.RiskThreshold,
	}

	// Report publishing is feature-flagged via KAFKA_BROKERS.
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("report publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaReportTopic)
	} else {
		logger.Info("report publishing disabled")
	}

	svc := pipeline.NewService(catalog, store, opts, logger, metrics)
	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Clean the default station in the background so readiness flips early.
	if cfg.WarmOnStart {
		go func() {
			if err := svc.Warm(ctx); err != nil && ctx.Err() == nil {
				logger.Error("warm-up failed", "station", cfg.DefaultStation, "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
