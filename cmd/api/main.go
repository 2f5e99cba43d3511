package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/cigarro-in/cigarro-backend/api/routes"
	"github.com/cigarro-in/cigarro-backend/internal/cart"
	"github.com/cigarro-in/cigarro-backend/internal/checkout"
	"github.com/cigarro-in/cigarro-backend/internal/checkoutctx"
	"github.com/cigarro-in/cigarro-backend/internal/confirmation"
	"github.com/cigarro-in/cigarro-backend/internal/discount"
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

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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
	settlementMetrics := metrics.NewSettlementMetrics(promRegistry)

	deps, watcher, err := buildServices(cfg, logg, dbClient, redisClient, settlementMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	deps.Metrics = promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(deps),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error shutting down api server", err)
		}
		// In-flight confirmation loops drain here; the cron sweeper picks
		// up whatever a hard kill would have orphaned.
		watcher.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	settlementMetrics *metrics.SettlementMetrics,
) (routes.Deps, *confirmation.Watcher, error) {
	gormDB := dbClient.DB()

	cartService, err := cart.NewService(cart.NewRepository(gormDB))
	if err != nil {
		return routes.Deps{}, nil, err
	}
	discountService, err := discount.NewService(discount.NewRepository(gormDB), nil)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	referralService, err := referral.NewService(referral.NewRepository(gormDB))
	if err != nil {
		return routes.Deps{}, nil, err
	}
	walletService, err := wallet.NewService(wallet.NewRepository(gormDB))
	if err != nil {
		return routes.Deps{}, nil, err
	}

	displayIDs, err := orders.NewDisplayIDAllocator(redisClient)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	orderManager, err := orders.NewManager(dbClient, orders.NewRepository(gormDB), displayIDs, logg)
	if err != nil {
		return routes.Deps{}, nil, err
	}

	upiBuilder, err := upi.NewBuilder(cfg.UPI)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	notifier, err := notify.NewWebhookNotifier(cfg.Webhook, logg)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	engine, err := settlement.NewEngine(settlement.Deps{
		Tx:         dbClient,
		Attempts:   settlement.NewRepository(gormDB),
		Wallet:     wallet.NewRepository(gormDB),
		Orders:     orders.NewRepository(gormDB),
		Referrals:  referral.NewRepository(gormDB),
		UPIBuilder: upiBuilder,
		Notifier:   notifier,
		Logger:     logg,
		Metrics:    settlementMetrics,
	})
	if err != nil {
		return routes.Deps{}, nil, err
	}

	sessionStore, err := checkoutctx.NewStore(redisClient, cfg.Checkout.SessionTTL)
	if err != nil {
		return routes.Deps{}, nil, err
	}
	watcher, err := confirmation.NewWatcher(engine, cartService, sessionStore, logg, settlementMetrics, confirmation.Options{
		Deadline:         cfg.Checkout.ConfirmationDeadline,
		PollInterval:     cfg.Checkout.PollInterval,
		RefundWindowDays: cfg.Checkout.RefundWindowDays,
	})
	if err != nil {
		return routes.Deps{}, nil, err
	}

	checkoutService, err := checkout.NewService(
		sessionStore,
		cartService,
		discountService,
		orderManager,
		engine,
		settlement.NewRepository(gormDB),
		watcher,
		logg,
	)
	if err != nil {
		return routes.Deps{}, nil, err
	}

	return routes.Deps{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Redis:      redisClient,
		Checkout:   checkoutService,
		Discounts:  discountService,
		Referrals:  referralService,
		Wallets:    walletService,
		Orders:     orderManager,
		Settlement: engine,
	}, watcher, nil
}
