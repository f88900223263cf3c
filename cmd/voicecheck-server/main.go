package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/your-org/voicecheck/internal/analysis"
	"github.com/your-org/voicecheck/pkg/config"
	"github.com/your-org/voicecheck/pkg/detector"
	"github.com/your-org/voicecheck/pkg/kafka"
	"github.com/your-org/voicecheck/pkg/logger"
	"github.com/your-org/voicecheck/pkg/metrics"
	"github.com/your-org/voicecheck/pkg/storage/objectstore"
	"github.com/your-org/voicecheck/pkg/tracing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logr, err := logger.New(cfg.App.LogLevel)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingCredential) {
			logr.Fatal("invalid config", zap.Error(err))
		}
		// Submissions fail with RD_UNAVAILABLE until a key is configured.
		logr.Warn("detector credential missing", zap.Error(err))
	}

	traceShutdown, err := tracing.Init(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Attributes:  tracing.ParseResourceAttributes(cfg.Tracing.ResourceAttr),
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	if err != nil {
		logr.Fatal("init tracing", zap.Error(err))
	}
	defer traceShutdown(context.Background()) //nolint:errcheck

	metricsProvider, err := metrics.NewPrometheusProvider()
	if err != nil {
		logr.Fatal("init metrics", zap.Error(err))
	}
	defer metricsProvider.Shutdown(context.Background()) //nolint:errcheck
	meters, err := metrics.New(metricsProvider.MeterProvider)
	if err != nil {
		logr.Fatal("register instruments", zap.Error(err))
	}

	metricsServer := &http.Server{
		Addr:              cfg.Metrics.Addr,
		Handler:           metricsProvider.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("metrics server failed", zap.Error(err))
		}
	}()

	params := analysis.Params{
		Logger:  logr,
		Metrics: meters,
		Options: analysis.OptionsFromConfig(cfg),
	}

	if len(cfg.Kafka.Brokers) > 0 {
		params.Producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
			Compression:  kafka.CompressionFromString(cfg.Kafka.CompressionCodec),
			RequiredAcks: kafkago.RequireAll,
			MaxAttempts:  cfg.Kafka.Retries,
		})
	}

	storeCfg := objectstore.Config{
		Provider:  cfg.Storage.Provider,
		Endpoint:  cfg.Storage.Endpoint,
		Region:    cfg.Storage.Region,
		Bucket:    cfg.Storage.Bucket,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
	}
	if objectstore.Enabled(storeCfg) {
		store, err := objectstore.New(ctx, storeCfg)
		if err != nil {
			logr.Fatal("init object store", zap.Error(err))
		}
		params.Store = store
	}

	dcfg := analysis.DetectorConfig(cfg)
	dcfg.Logger = logr
	dcfg.Metrics = meters
	params.Client = detector.New(dcfg)

	service := analysis.NewService(params)

	handler := analysis.NewHTTPHandler(service, logr, analysis.HandlerConfig{
		MaxBodyBytes:   cfg.Upload.MultipartMemBytes,
		FormMemBytes:   cfg.Upload.MultipartMemBytes,
		RequestTimeout: cfg.Analysis.Deadline + 20*time.Second,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      handler.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logr.Error("http server shutdown failed", zap.Error(err))
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logr.Error("metrics server shutdown failed", zap.Error(err))
		}
		if err := service.Close(shutdownCtx); err != nil {
			logr.Error("service shutdown failed", zap.Error(err))
		}
	}()

	logr.Info("voicecheck server starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.String("metrics_addr", cfg.Metrics.Addr),
		zap.String("detector", params.Client.BaseURL()),
		zap.Bool("demo", cfg.Detector.Demo),
	)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logr.Fatal("http server failed", zap.Error(err))
	}
}
