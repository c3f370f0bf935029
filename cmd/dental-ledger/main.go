package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dental-ledger/common/database"
	"dental-ledger/common/logger"
	mqttcommon "dental-ledger/common/mqtt"
	rediscommon "dental-ledger/common/redis"
	"dental-ledger/internal/clinical"
	"dental-ledger/internal/config"
	"dental-ledger/internal/events"
	httpapi "dental-ledger/internal/http"
	"dental-ledger/internal/repository"
	"dental-ledger/internal/service"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "dental-ledger")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	payments := repository.NewPostgresPaymentsRepository(db, cfg.QueryTimeout, log)
	records, patients := clinicalSources(cfg, db, log)

	publisher, err := newPublisher(cfg, log)
	if err != nil {
		log.Fatal("Failed to set up ledger events", zap.String("sink", cfg.Events.Sink), zap.Error(err))
	}
	defer publisher.Close()

	ledger := service.NewLedgerService(payments, patients, records, publisher, log)
	balance := service.NewBalanceService(payments, records, log)

	router := httpapi.NewRouter(log)
	router.RegisterLedgerRoutes(httpapi.NewLedgerHandler(ledger, balance, log))
	router.RegisterHealthRoutes(db)

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}
}

// clinicalSources remote Clinical Records service if configured, otherwise the shared database
func clinicalSources(cfg *config.Config, db *sql.DB, log *zap.Logger) (repository.ClinicalRecords, repository.PatientDirectory) {
	if cfg.ClinicalRecords.URL != "" {
		log.Info("Using remote clinical records", zap.String("url", cfg.ClinicalRecords.URL))
		c := clinical.NewClient(cfg.ClinicalRecords.URL, cfg.ClinicalRecords.Timeout, log)
		return c, c
	}
	return repository.NewPostgresClinicalRecords(db, cfg.QueryTimeout),
		repository.NewPostgresPatientDirectory(db, cfg.QueryTimeout)
}

func newPublisher(cfg *config.Config, log *zap.Logger) (events.Publisher, error) {
	switch cfg.Events.Sink {
	case config.EventsSinkRedis:
		client := rediscommon.NewRedisClient(&cfg.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rediscommon.Ping(ctx, client); err != nil {
			_ = client.Close()
			return nil, err
		}
		log.Info("Publishing ledger events to Redis stream", zap.String("stream", cfg.Events.Stream))
		return events.NewRedisStreamPublisher(client, cfg.Events.Stream, cfg.Events.StreamMaxLen), nil
	case config.EventsSinkMQTT:
		client, err := mqttcommon.NewClient(&cfg.MQTT)
		if err != nil {
			return nil, err
		}
		log.Info("Publishing ledger events to MQTT", zap.String("broker", cfg.MQTT.Broker), zap.String("topic_prefix", cfg.Events.Topic))
		return events.NewMQTTPublisher(client, cfg.Events.Topic, 5*time.Second), nil
	default:
		return events.NopPublisher{}, nil
	}
}
