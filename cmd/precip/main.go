package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/precip-contour-service/internal/adapter/gpm"
	httpadapter "github.com/couchcryptid/precip-contour-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/precip-contour-service/internal/adapter/kafka"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/ncgrid"
	"github.com/couchcryptid/precip-contour-service/internal/adapter/noaa"
	"github.com/couchcryptid/precip-contour-service/internal/config"
	"github.com/couchcryptid/precip-contour-service/internal/observability"
	"github.com/couchcryptid/precip-contour-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	decoder := noaa.NewWgrib2Decoder(cfg.Wgrib2Path)
	if err := decoder.CheckReadiness(context.Background()); err != nil {
		logger.Warn("gfs requests will fail until the converter is installed", "error", err)
	}
	models := noaa.NewClient(cfg.NOAABaseURL, cfg.NOAATimeout, cfg.TempDir, decoder, metrics, logger)
	granules := gpm.NewStore(cfg.DataDir, ncgrid.Reader{Candidates: cfg.GPMCandidates}, logger)

	// Contour publishing is feature-flagged via KAFKA_BROKERS.
	var publisher pipeline.Publisher
	var writer *kafkaadapter.Writer
	if cfg.PublishEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		metrics.PublishEnabled.Set(1)
		logger.Info("contour publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaContourTopic)
	} else {
		logger.Info("contour publishing disabled")
	}

	p := pipeline.New(models, granules, publisher, pipeline.Settings{
		Levels:      cfg.Levels,
		Sigma:       cfg.Sigma,
		ClosedEdges: cfg.ClosedEdges,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, granules, httpadapter.Options{
		WriteTimeout:   cfg.NOAATimeout + cfg.ShutdownTimeout,
		RasterMinValue: cfg.RasterMinValue,
	}, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()
	metrics.ServiceRunning.Set(1)
	logger.Info("service started",
		"levels", cfg.Levels.String(),
		"sigma", cfg.Sigma,
		"data_dir", cfg.DataDir,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	metrics.ServiceRunning.Set(0)

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
