package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/quickcart-labs/quickcart-backend/internal/cron"
	"github.com/quickcart-labs/quickcart-backend/internal/deliveries"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/internal/payments"
	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/internal/subscriptions"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/metrics"
	"github.com/quickcart-labs/quickcart-backend/pkg/migrate"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/redis"
)

const lockNameFormat = "cron-worker:%s"

func main() {
	only := flag.String("jobs", "", "comma separated job names to run (default: all)")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registry, err := buildRegistry(cfg, dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}
	if registry, err = registry.Only(*only); err != nil {
		logg.Error(context.Background(), "invalid -jobs flag", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockName(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})

	if *once {
		service.RunOnce(ctx)
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, dbClient *db.Client, logg *logger.Logger) (*cron.Registry, error) {
	conn := dbClient.DB()
	catalog := products.NewRepository(conn)
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)

	orderSvc, err := orders.NewService(dbClient, orders.NewRepository(conn), catalog,
		deliveries.NewLifecycle(cfg.Delivery, emitter, logg), emitter, logg,
		orders.WithPaymentReader(payments.NewRepository(conn)))
	if err != nil {
		return nil, err
	}
	subscriptionSvc, err := subscriptions.NewService(dbClient, subscriptions.NewRepository(conn), catalog, emitter, logg)
	if err != nil {
		return nil, err
	}

	orderTTL, err := cron.NewOrderTTLJob(cron.OrderTTLJobParams{
		Logger: logg,
		Orders: orderSvc,
		TTL:    cfg.Checkout.PendingOrderTTL,
		Batch:  cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	subscriptionAdvance, err := cron.NewSubscriptionAdvanceJob(cron.SubscriptionAdvanceJobParams{
		Logger:        logg,
		Subscriptions: subscriptionSvc,
		Batch:         cfg.Cron.BatchSize,
	})
	if err != nil {
		return nil, err
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		Repository: outboxRepo,
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}

	return cron.NewRegistry(orderTTL, subscriptionAdvance, outboxRetention)
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockNameFormat, env)
}
