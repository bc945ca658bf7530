package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/lettercast/campaign-engine/internal/api"
	"github.com/lettercast/campaign-engine/internal/config"
	"github.com/lettercast/campaign-engine/internal/db"
	"github.com/lettercast/campaign-engine/internal/distlock"
	"github.com/lettercast/campaign-engine/internal/mailer"
	"github.com/lettercast/campaign-engine/internal/metrics"
	"github.com/lettercast/campaign-engine/internal/queue"
	"github.com/lettercast/campaign-engine/internal/ratelimiter"
	"github.com/lettercast/campaign-engine/internal/repository"
	"github.com/lettercast/campaign-engine/internal/scheduler"
	"github.com/lettercast/campaign-engine/internal/service"
	"github.com/lettercast/campaign-engine/internal/tracking"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- storage ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	redisClient, err := db.ConnectRedis(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	campaigns := repository.NewPgCampaignRepository(pool)
	subscribers := repository.NewPgSubscriberRepository(pool)
	events := repository.NewPgTrackingEventRepository(pool)

	recipients := queue.NewRecipientQueue(redisClient, cfg.QueueTTL)
	locks := func(key string) service.Lock {
		return distlock.New(redisClient, key, cfg.BatchLockTTL)
	}

	triggers := scheduler.New(logger)
	sender := mailer.NewResendSender(cfg.ResendAPIKey, cfg.FromAddress)
	injector := tracking.NewInjector(cfg.TrackingBaseURL)
	pacer := ratelimiter.New(cfg.SendRate)

	dispatch := service.NewDispatchService(
		campaigns, subscribers, recipients, triggers,
		sender, injector, pacer, locks,
		m.DispatchHooks(), logger,
		service.DispatchConfig{
			BatchSize:     cfg.BatchSize,
			BatchInterval: cfg.BatchInterval,
		},
	)
	tracker := service.NewTrackerService(events, m.TrackerHooks(), logger, cfg.DedupWindow)

	// Re-arm triggers lost to the previous process lifetime.
	if err := dispatch.RestoreTriggers(ctx); err != nil {
		logger.Fatal("failed to restore triggers", zap.Error(err))
	}

	// ---- HTTP server ----
	router := api.NewRouter(dispatch, tracker, cfg.HomeURL, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Stop firing triggers and wait for a running batch to finish.
	//    Triggers are re-armed from campaign status on next boot.
	triggers.Stop()

	logger.Info("server stopped cleanly")
}
