// Package main provides the reception API service entry point.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/brightsmile/reception/internal/api/handlers"
	"github.com/brightsmile/reception/internal/api/middleware"
	"github.com/brightsmile/reception/internal/config"
	"github.com/brightsmile/reception/internal/domain/office"
	"github.com/brightsmile/reception/internal/domain/schedule"
	"github.com/brightsmile/reception/internal/infrastructure/postgres"
	"github.com/brightsmile/reception/internal/infrastructure/redislock"
	"github.com/brightsmile/reception/internal/observability/metrics"
	"github.com/brightsmile/reception/internal/observability/tracing"
	"github.com/brightsmile/reception/internal/pms/factory"
	"github.com/brightsmile/reception/internal/security"
	"github.com/brightsmile/reception/internal/voice"
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

	tracingCfg := tracing.DefaultConfig("reception-api")
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
	logger.Info("connected to database")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer redisClient.Close()

	sealer, err := office.NewSealer(cfg.CredentialKey)
	if err != nil {
		logger.Fatal("credential key invalid", zap.Error(err))
	}

	m := metrics.New()

	officeRepo := office.NewRepository(pool, logger)
	scheduleRepo := schedule.NewPgRepository(pool, logger)
	locker := redislock.New(redisClient, cfg.BookingLockTTL)
	scheduleSvc := schedule.NewService(scheduleRepo, officeRepo, locker, m, logger)

	breakers := circuitbreaker.NewManager(logger)
	adapterFactory := factory.New(breakers, logger)
	resolver := factory.NewResolver(officeRepo, sealer, adapterFactory)

	go func() {
		t := time.NewTicker(10 * time.Second)
		defer t.Stop()
		for range t.C {
			m.ObserveBreakers(breakers.GetHealthStatus())
		}
	}()

	audit := security.NewAuditLog(pool, logger)
	incidents := security.NewIncidentStore(pool, logger)
	minter := voice.NewMinter(voice.Config{APIKey: cfg.OpenAIAPIKey}, m, logger)

	officeHandler := handlers.NewOfficeHandler(officeRepo, sealer, audit, logger)
	slotHandler := handlers.NewSlotHandler(scheduleSvc, audit, logger)
	apptHandler := handlers.NewAppointmentHandler(scheduleSvc, audit, logger)
	pmsHandler := handlers.NewPMSHandler(resolver, logger)
	voiceHandler := handlers.NewVoiceHandler(minter, officeRepo, audit, logger)
	incidentHandler := handlers.NewIncidentHandler(incidents, audit, logger)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Tracing("reception-api"))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"reception-api"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		if err := redisClient.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKeys))
		r.Mount("/offices", officeHandler.Routes())
		r.Mount("/slots", slotHandler.Routes())
		r.Mount("/appointments", apptHandler.Routes())
		r.Mount("/pms", pmsHandler.Routes())
		r.Mount("/voice", voiceHandler.Routes())
		r.Mount("/security/incidents", incidentHandler.Routes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
		if tp != nil {
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("tracer shutdown error", zap.Error(err))
			}
		}
	}()

	logger.Info("starting reception API", zap.String("port", cfg.HTTPPort))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(env string) *zap.Logger {
	if env == "prod" {
		logger, _ := zap.NewProduction()
		return logger
	}
	logger, _ := zap.NewDevelopment()
	return logger
}
