// Worker entry point: consumes decomposition requests from Kafka, runs them
// through the fragment service and publishes the results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/autofragment/internal/app"
	"github.com/turtacn/autofragment/internal/config"
	"github.com/turtacn/autofragment/internal/infrastructure/database/redis"
	"github.com/turtacn/autofragment/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/autofragment/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/autofragment/internal/interfaces/http"
	"github.com/turtacn/autofragment/internal/interfaces/http/handlers"
	"github.com/turtacn/autofragment/internal/worker"
	"github.com/turtacn/autofragment/pkg/errors"
)

const topicSetupTimeout = 30 * time.Second

var (
	version   = "dev"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("worker stopped with error", logging.Err(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	logger.Info("starting autofragment worker",
		logging.String("version", version),
		logging.String("commit", gitCommit),
		logging.Strings("brokers", cfg.Kafka.Brokers),
		logging.String("request_topic", cfg.Kafka.RequestTopic),
	)

	infra, err := app.New(cfg, logger, app.WithUpload(cfg.Worker.Upload))
	if err != nil {
		return err
	}
	defer infra.Close()

	if cfg.Kafka.AutoCreateTopics {
		if err := ensureTopics(ctx, cfg.Kafka, logger); err != nil {
			return err
		}
	}

	producer, err := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:          cfg.Kafka.Brokers,
		CompressionCodec: cfg.Kafka.Compression,
		Security:         cfg.Kafka.Security,
		Metrics:          infra.Metrics,
	}, logger)
	if err != nil {
		return err
	}
	defer producer.Close()

	var opts []worker.Option
	if cfg.Worker.DedupRuns && infra.Redis != nil {
		opts = append(opts, worker.WithRunClaimer(redis.NewRunLock(infra.Redis, logger,
			redis.WithLockPrefix(cfg.Redis.KeyPrefix))))
	}
	handler := worker.NewHandler(infra.Service, producer, cfg.Kafka.ResultTopic, logger, opts...)

	consumer, err := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers:         cfg.Kafka.Brokers,
		GroupID:         cfg.Kafka.GroupID,
		Topics:          []string{cfg.Kafka.RequestTopic},
		AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
		Security:        cfg.Kafka.Security,
		RetryConfig: kafka.RetryConfig{
			MaxRetries:      cfg.Kafka.MaxRetries,
			RetryBackoff:    cfg.Kafka.RetryBackoff,
			DeadLetterTopic: cfg.Kafka.DeadLetterTopic,
		},
		Metrics: infra.Metrics,
	}, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()
	consumer.Subscribe(cfg.Kafka.RequestTopic, handler.Handle)

	// Probes and metrics only.
	probe := httpserver.NewServer(config.ServerConfig{
		Port:            cfg.Worker.HealthPort,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.NewRouter(httpserver.RouterConfig{
		HealthHandler:    handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger:           logger,
		MetricsCollector: infra.Collector,
		Mode:             cfg.Server.Mode,
	}), logger)
	probeErr := make(chan error, 1)
	go func() { probeErr <- probe.Start() }()

	if err := consumer.Start(ctx); err != nil {
		_ = probe.Shutdown(context.Background())
		return err
	}
	logger.Info("worker consuming", logging.String("group_id", cfg.Kafka.GroupID))

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-probeErr:
		if err != nil {
			logger.Error("probe server failed", logging.Err(err))
		}
	}

	if err := probe.Shutdown(context.Background()); err != nil {
		logger.Warn("probe server shutdown error", logging.Err(err))
	}
	consumed, processed, failed, deadLettered := consumer.Stats()
	logger.Info("worker stopped",
		logging.Int64("consumed", consumed),
		logging.Int64("processed", processed),
		logging.Int64("failed", failed),
		logging.Int64("dead_lettered", deadLettered),
	)
	return nil
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, logger logging.Logger) error {
	tm, err := kafka.NewTopicManager(cfg.Brokers, logger)
	if err != nil {
		return err
	}
	defer tm.Close()

	ctx, cancel := context.WithTimeout(ctx, topicSetupTimeout)
	defer cancel()
	return tm.EnsureTopics(ctx, kafka.DefaultTopics(cfg.RequestTopic, cfg.ResultTopic, cfg.DeadLetterTopic,
		cfg.NumPartitions, cfg.ReplicationFactor))
}

// loadConfig reads path when given, otherwise searches the working
// directory and /etc/autofrag, falling back to defaults plus environment.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg, err := config.Load(config.WithSearchPaths(".", "./configs", "/etc/autofrag"))
	if errors.IsCode(err, errors.ErrCodeNotFound) {
		return config.LoadFromEnv()
	}
	return cfg, err
}

//Personal.AI order the ending
