package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/modernmarket/telemetry/internal/collector/enricher"
	"github.com/modernmarket/telemetry/internal/collector/handler"
	"github.com/modernmarket/telemetry/internal/collector/producer"
	"github.com/modernmarket/telemetry/internal/collector/validation"
	"github.com/modernmarket/telemetry/internal/config"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// .env is optional; config values can reference its variables
	godotenv.Load()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/collector.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("Failed to load config")
	}

	log.Info().Msg("Starting telemetry collector...")

	kafkaProducer := producer.New(cfg.Kafka)
	defer kafkaProducer.Close()
	log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka producer initialized")

	validator := validation.New(cfg.Redis, cfg.RateLimit)
	defer validator.Close()
	log.Info().Msg("Validator initialized")

	eventEnricher := enricher.New(cfg.GeoIP.DatabasePath)
	defer eventEnricher.Close()
	log.Info().Msg("Enricher initialized")

	httpHandler := handler.New(kafkaProducer, validator, eventEnricher)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler: handler.Router(httpHandler),
	}

	go func() {
		log.Info().Int("port", cfg.Server.HTTPPort).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to serve HTTP")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	httpServer.Shutdown(context.Background())
	log.Info().Msg("Server stopped")
}
