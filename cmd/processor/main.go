package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/config"
	"github.com/modernmarket/telemetry/internal/processor"
	"github.com/modernmarket/telemetry/internal/processor/consumer"
	"github.com/modernmarket/telemetry/internal/processor/sessions"
	"github.com/modernmarket/telemetry/internal/processor/storage"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/processor.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	log.Info().
		Strs("kafka_brokers", cfg.Kafka.Brokers).
		Str("clickhouse_addr", cfg.ClickHouse.Addr).
		Str("redis_addr", cfg.Redis.Addr).
		Int("batch_size", cfg.Batch.Size).
		Dur("flush_interval", cfg.Batch.FlushInterval).
		Msg("Configuration loaded")

	ch, err := storage.NewClickHouse(cfg.ClickHouse)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to ClickHouse")
	}
	defer ch.Close()
	log.Info().Msg("Connected to ClickHouse")

	// Session aggregation needs Redis; without it events still land in
	// ClickHouse but sessions are not rolled up.
	var sessionAgg *sessions.Aggregator
	if cfg.Redis.Addr != "" {
		sessionAgg = sessions.NewAggregator(ch, cfg.Redis)
		defer sessionAgg.Close()
		log.Info().Msg("Session aggregator initialized")
	}

	var agg processor.Aggregator
	if sessionAgg != nil {
		agg = sessionAgg
	}
	pipeline := processor.NewPipeline(ch, agg, cfg.Batch)
	eventConsumer := consumer.New(cfg.Kafka, "events", pipeline)

	ctx, cancel := context.WithCancel(context.Background())
	go eventConsumer.Start(ctx)

	// End signals run in their own consumer group so session flushes do not
	// rebalance against the event stream.
	var endConsumer *consumer.KafkaConsumer
	if sessionAgg != nil {
		endCfg := cfg.Kafka
		endCfg.ConsumerGroup = cfg.Kafka.ConsumerGroup + "-sessions"
		endConsumer = consumer.New(endCfg, "sessions", processor.NewEndSignals(sessionAgg))
		go endConsumer.Start(ctx)
	}

	log.Info().Msg("Processor started")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")
	cancel()
	eventConsumer.Close()
	if endConsumer != nil {
		endConsumer.Close()
	}
	pipeline.Stop()

	// Flush remaining sessions
	if sessionAgg != nil {
		if err := sessionAgg.FlushAllSessions(context.Background()); err != nil {
			log.Error().Err(err).Msg("Failed to flush sessions")
		}
	}

	log.Info().Msg("Shutdown complete")
}
