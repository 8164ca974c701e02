// Command outbox-relay publishes committed order events from the outbox
// table to Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/config"
	"github.com/cimillas/furniture-backoffice/internal/events"
	"github.com/cimillas/furniture-backoffice/internal/storage/postgres"
	"github.com/cimillas/furniture-backoffice/internal/telemetry"
	"github.com/cimillas/furniture-backoffice/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
)

const serviceName = "furniture-outbox-relay"

func main() {
	if err := run(); err != nil {
		slog.Error("outbox relay exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := telemetry.NewLogger(os.Stderr, slog.LevelInfo, serviceName)
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	logger = telemetry.NewLogger(os.Stderr, cfg.LogLevel, serviceName)
	slog.SetDefault(logger)

	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.Apply(startupCtx, pool); err != nil {
		return err
	}

	publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.OrderEventsTopic)
	defer publisher.Close()

	relay := events.NewRelay(postgres.NewOutboxRepository(pool), publisher, cfg.OutboxBatchSize, cfg.OutboxPollInterval, logger)
	logger.Info("outbox relay started", "topic", cfg.OrderEventsTopic, "brokers", cfg.KafkaBrokers)

	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("outbox relay stopped")
	return nil
}
