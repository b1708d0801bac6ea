// Package main provides the sync relay: it publishes outbox rows to the event
// bus and mirrors booked appointments into each tenant's PMS.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/config"
	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/infrastructure/postgres"
	"github.com/brightsmile/reception/internal/infrastructure/redpanda"
	"github.com/brightsmile/reception/internal/observability/metrics"
	"github.com/brightsmile/reception/internal/observability/tracing"
	"github.com/brightsmile/reception/internal/pms/factory"
	"github.com/brightsmile/reception/internal/pmssync"
	"github.com/brightsmile/reception/internal/security"
	"github.com/brightsmile/reception/pkg/circuitbreaker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	logger := newLogger(cfg.Env)
	defer logger.Sync()

	ctx := context.Background()

	tracingCfg := tracing.DefaultConfig("sync-relay")
	tracingCfg.Environment = cfg.Env
	tracingCfg.OTLPEndpoint = cfg.OTLPEndpoint
	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	}

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer pool.Close()

	sealer, err := office.NewSealer(cfg.CredentialKey)
	if err != nil {
		logger.Fatal("credential key invalid", zap.Error(err))
	}

	admin, err := redpanda.NewAdmin(cfg.KafkaBrokers, logger)
	if err != nil {
		logger.Fatal("kafka admin failed", zap.Error(err))
	}
	if err := admin.EnsureTopics(ctx); err != nil {
		logger.Fatal("ensure topics failed", zap.Error(err))
	}
	admin.Close()

	producerCfg := redpanda.DefaultProducerConfig()
	producerCfg.Brokers = cfg.KafkaBrokers
	producer, err := redpanda.NewProducer(producerCfg, logger)
	if err != nil {
		logger.Fatal("producer create failed", zap.Error(err))
	}
	defer producer.Close()

	m := metrics.New()

	outbox := postgres.NewOutbox(pool, producer, postgres.DefaultOutboxConfig(), logger)
	outbox.Start()
	defer outbox.Stop()

	officeRepo := office.NewRepository(pool, logger)
	scheduleRepo := schedule.NewPgRepository(pool, logger)
	audit := security.NewAuditLog(pool, logger)

	breakers := circuitbreaker.NewManager(logger)
	resolver := factory.NewResolver(officeRepo, sealer, factory.New(breakers, logger))

	worker, err := pmssync.NewWorker(pmssync.Config{Workers: cfg.SyncWorkers},
		resolver, scheduleRepo, producer, audit, m, logger)
	if err != nil {
		logger.Fatal("sync worker create failed", zap.Error(err))
	}
	worker.Start()
	defer worker.Stop()

	consumerCfg := redpanda.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.KafkaBrokers
	consumerCfg.Topics = []string{redpanda.TopicAppointmentBooked}
	consumer, err := redpanda.NewConsumer(consumerCfg, worker.HandleMessage, logger)
	if err != nil {
		logger.Fatal("consumer create failed", zap.Error(err))
	}
	consumer.Start()
	defer consumer.Stop()

	// Housekeeping: pending gauge, dead-letter sweep, cleanup.
	housekeepingCtx, stopHousekeeping := context.WithCancel(ctx)
	defer stopHousekeeping()
	go housekeeping(housekeepingCtx, outbox, breakers, m, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"sync-relay"}`))
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		if err := redpanda.HealthCheck(r.Context(), cfg.KafkaBrokers); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	go func() {
		logger.Info("sync relay health server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down sync relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", zap.Error(err))
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", zap.Error(err))
		}
	}
}

// housekeeping keeps the pending and breaker gauges fresh, sweeps exhausted
// entries to the dead-letter topic, and prunes processed rows.
func housekeeping(ctx context.Context, outbox *postgres.Outbox, breakers *circuitbreaker.Manager, m *metrics.Metrics, logger *zap.Logger) {
	gaugeTicker := time.NewTicker(10 * time.Second)
	sweepTicker := time.NewTicker(time.Minute)
	cleanupTicker := time.NewTicker(time.Hour)
	defer gaugeTicker.Stop()
	defer sweepTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-gaugeTicker.C:
			if n, err := outbox.PendingCount(ctx); err == nil {
				m.OutboxPending.Set(float64(n))
			}
			m.ObserveBreakers(breakers.GetHealthStatus())
		case <-sweepTicker.C:
			if n, err := outbox.MoveToDeadLetter(ctx, redpanda.TopicDeadLetter); err != nil {
				logger.Error("dead-letter sweep failed", zap.Error(err))
			} else if n > 0 {
				logger.Warn("entries dead-lettered", zap.Int64("count", n))
			}
		case <-cleanupTicker.C:
			if n, err := outbox.CleanupProcessed(ctx, 7*24*time.Hour); err != nil {
				logger.Error("outbox cleanup failed", zap.Error(err))
			} else if n > 0 {
				logger.Info("processed outbox rows pruned", zap.Int64("count", n))
			}
		}
	}
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}
