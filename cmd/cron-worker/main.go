package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cigarro-in/cigarro-backend/internal/cron"
	"github.com/cigarro-in/cigarro-backend/internal/notify"
	"github.com/cigarro-in/cigarro-backend/internal/orders"
	"github.com/cigarro-in/cigarro-backend/internal/referral"
	"github.com/cigarro-in/cigarro-backend/internal/settlement"
	"github.com/cigarro-in/cigarro-backend/internal/wallet"
	"github.com/cigarro-in/cigarro-backend/pkg/config"
	"github.com/cigarro-in/cigarro-backend/pkg/db"
	"github.com/cigarro-in/cigarro-backend/pkg/logger"
	"github.com/cigarro-in/cigarro-backend/pkg/metrics"
	"github.com/cigarro-in/cigarro-backend/pkg/migrate"
	"github.com/cigarro-in/cigarro-backend/pkg/redis"
	"github.com/cigarro-in/cigarro-backend/pkg/upi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if cfg.Sweeper.DisableSweep {
		logg.Info(context.Background(), "sweeper disabled, exiting")
		return
	}

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promRegistry := prometheus.NewRegistry()
	cronMetrics := metrics.NewCronJobMetrics(promRegistry)
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)

	gormDB := dbClient.DB()
	attemptRepo := settlement.NewRepository(gormDB)

	upiBuilder, err := upi.NewBuilder(cfg.UPI)
	if err != nil {
		logg.Error(context.Background(), "failed to create upi builder", err)
		os.Exit(1)
	}
	notifier, err := notify.NewWebhookNotifier(cfg.Webhook, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}
	engine, err := settlement.NewEngine(settlement.Deps{
		Tx:         dbClient,
		Attempts:   attemptRepo,
		Wallet:     wallet.NewRepository(gormDB),
		Orders:     orders.NewRepository(gormDB),
		Referrals:  referral.NewRepository(gormDB),
		UPIBuilder: upiBuilder,
		Notifier:   notifier,
		Logger:     logg,
		Metrics:    settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement engine", err)
		os.Exit(1)
	}

	timeoutJob, err := cron.NewPaymentTimeoutJob(cron.PaymentTimeoutJobParams{
		Logger:           logg,
		Attempts:         attemptRepo,
		Settlement:       engine,
		StaleAfter:       cfg.Sweeper.StaleAfter,
		RefundWindowDays: cfg.Checkout.RefundWindowDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment timeout job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(timeoutJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		addr := ":" + cfg.Sweeper.MetricsPort
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logg.Error(context.Background(), "metrics server stopped unexpectedly", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
