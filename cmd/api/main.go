package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/quickcart-labs/quickcart-backend/api/controllers"
	"github.com/quickcart-labs/quickcart-backend/api/routes"
	"github.com/quickcart-labs/quickcart-backend/internal/cart"
	"github.com/quickcart-labs/quickcart-backend/internal/checkout"
	"github.com/quickcart-labs/quickcart-backend/internal/deliveries"
	"github.com/quickcart-labs/quickcart-backend/internal/notifications"
	"github.com/quickcart-labs/quickcart-backend/internal/orders"
	"github.com/quickcart-labs/quickcart-backend/internal/payments"
	"github.com/quickcart-labs/quickcart-backend/internal/products"
	"github.com/quickcart-labs/quickcart-backend/internal/subscriptions"
	"github.com/quickcart-labs/quickcart-backend/internal/uow"
	"github.com/quickcart-labs/quickcart-backend/internal/users"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/db"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	"github.com/quickcart-labs/quickcart-backend/pkg/metrics"
	"github.com/quickcart-labs/quickcart-backend/pkg/migrate"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox"
	"github.com/quickcart-labs/quickcart-backend/pkg/outbox/idempotency"
	"github.com/quickcart-labs/quickcart-backend/pkg/razorpay"
	"github.com/quickcart-labs/quickcart-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	services, err := buildServices(context.Background(), cfg, dbClient, redisClient, registry, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("K_REVISION")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Infra{
			Pingers:     map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			Gatherer:    registry,
			Idempotency: redisClient,
			RateLimits:  redisClient,
		}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(ctx context.Context, cfg *config.Config, dbClient *db.Client, redisClient *redis.Client, reg prometheus.Registerer, logg *logger.Logger) (routes.Services, error) {
	conn := dbClient.DB()
	commerceMetrics := metrics.NewCommerceMetrics(reg)

	catalog := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	paymentRepo := payments.NewRepository(conn)
	deliveryRepo := deliveries.NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	lifecycle := deliveries.NewLifecycle(cfg.Delivery, emitter, logg)

	productSvc, err := products.NewService(catalog)
	if err != nil {
		return routes.Services{}, err
	}
	cartSvc, err := cart.NewService(dbClient, cartRepo, catalog, logg)
	if err != nil {
		return routes.Services{}, err
	}
	orderSvc, err := orders.NewService(dbClient, orderRepo, catalog, lifecycle, emitter, logg,
		orders.WithDeliveryReader(deliveryRepo),
		orders.WithPaymentReader(paymentRepo))
	if err != nil {
		return routes.Services{}, err
	}

	// payments run without a gateway when keys are absent; online checkout
	// then fails with a payment initiation error.
	var gateway payments.Gateway
	if client, gwErr := razorpay.NewClient(ctx, cfg.Razorpay, logg); gwErr != nil {
		logg.Warn(logg.WithField(ctx, "reason", gwErr.Error()), "razorpay gateway disabled")
	} else {
		gateway = client
	}

	guard, err := idempotency.NewManager(redisClient, cfg.Redis.IdempotencyTTL)
	if err != nil {
		return routes.Services{}, err
	}
	paymentSvc, err := payments.NewService(payments.ServiceParams{
		Tx:         dbClient,
		Payments:   paymentRepo,
		Orders:     orderRepo,
		Catalog:    catalog,
		Deliveries: lifecycle,
		Gateway:    gateway,
		Outbox:     emitter,
		Guard:      guard,
		Metrics:    commerceMetrics,
		Razorpay:   cfg.Razorpay,
		Checkout:   cfg.Checkout,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Runner:   uow.Select(ctx, dbClient, logg, commerceMetrics),
		Engine:   cart.NewEngine(cartRepo, catalog, logg),
		Carts:    cartRepo,
		Catalog:  catalog,
		Orders:   orderRepo,
		Payments: paymentSvc,
		Outbox:   emitter,
		Metrics:  commerceMetrics,
		Config:   cfg.Checkout,
		Logger:   logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	notifier, err := notifications.NewOTPNotifier(notifications.NewMailer(cfg.Sendgrid, logg))
	if err != nil {
		return routes.Services{}, err
	}
	deliverySvc, err := deliveries.NewService(deliveries.ServiceParams{
		Tx:         dbClient,
		Deliveries: deliveryRepo,
		Orders:     orderRepo,
		Users:      users.NewRepository(conn),
		Notifier:   notifier,
		Limiter:    redisClient,
		Outbox:     emitter,
		Metrics:    commerceMetrics,
		Config:     cfg.Delivery,
		OTPHash:    cfg.OTPHash,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	subscriptionSvc, err := subscriptions.NewService(dbClient, subscriptions.NewRepository(conn), catalog, emitter, logg)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Products:      productSvc,
		Cart:          cartSvc,
		Checkout:      checkoutSvc,
		Orders:        orderSvc,
		Payments:      paymentSvc,
		Deliveries:    deliverySvc,
		Subscriptions: subscriptionSvc,
	}, nil
}
