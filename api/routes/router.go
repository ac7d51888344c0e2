package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quickcart-labs/quickcart-backend/api/controllers"
	"github.com/quickcart-labs/quickcart-backend/api/middleware"
	"github.com/quickcart-labs/quickcart-backend/pkg/config"
	"github.com/quickcart-labs/quickcart-backend/pkg/enums"
	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
	pkgredis "github.com/quickcart-labs/quickcart-backend/pkg/redis"
)

// Services bundles everything the HTTP surface calls into.
type Services struct {
	Products      controllers.ProductService
	Cart          controllers.CartService
	Checkout      controllers.CheckoutService
	Orders        controllers.OrderService
	Payments      controllers.PaymentService
	Deliveries    controllers.DeliveryService
	Subscriptions controllers.SubscriptionService
}

// Infra holds the shared stores and probes used by middleware and health
// checks. Redis satisfies both store interfaces in production.
type Infra struct {
	Pingers     map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	Idempotency pkgredis.IdempotencyStore
	RateLimits  middleware.RateLimitStore
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Telemetry("quickcart-"+cfg.Service.Kind),
	)

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.IPLimit, cfg.RateLimit.UserLimit)
	webhookPolicy := middleware.NewRateLimitPolicy("webhook", cfg.RateLimit.Window, cfg.RateLimit.WebhookIPRate, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.Pingers))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(apiPolicy, infra.RateLimits, logg))
			r.Get("/products/{productRef}", controllers.ProductGet(svc.Products, logg))
		})

		r.With(middleware.RateLimit(webhookPolicy, infra.RateLimits, logg)).
			Post("/webhooks/razorpay", controllers.RazorpayWebhook(svc.Payments, logg))

		r.With(
			middleware.OptionalAuth(cfg.JWT, logg),
			middleware.RateLimit(apiPolicy, infra.RateLimits, logg),
		).Post("/payments/verify", controllers.PaymentVerify(svc.Payments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(apiPolicy, infra.RateLimits, logg))
			r.Use(middleware.Idempotency(infra.Idempotency, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Get("/validate", controllers.CartValidate(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderCreate(svc.Checkout, logg))
				r.Get("/", controllers.OrderList(svc.Orders, logg))
				r.Get("/{orderId}", controllers.OrderGet(svc.Orders, logg))
				r.Delete("/{orderId}", controllers.OrderCancel(svc.Orders, logg))
				r.With(middleware.RequireRole(logg, enums.RoleAdmin)).
					Put("/{orderId}/status", controllers.OrderUpdateStatus(svc.Orders, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Get("/history", controllers.PaymentHistory(svc.Payments, logg))
				r.Get("/{paymentId}", controllers.PaymentGet(svc.Payments, logg))
			})

			r.Route("/deliveries", func(r chi.Router) {
				r.Get("/", controllers.DeliveriesMine(svc.Deliveries, logg))
				r.Get("/order/{orderId}", controllers.DeliveryByOrder(svc.Deliveries, logg))
				r.Get("/{deliveryId}", controllers.DeliveryGet(svc.Deliveries, logg))
				r.Post("/{deliveryId}/request-otp", controllers.DeliveryRequestOTP(svc.Deliveries, logg))
				r.With(middleware.RequireRole(logg, enums.RoleDriver, enums.RoleAdmin)).
					Post("/{deliveryId}/verify-otp", controllers.DeliveryVerifyOTP(svc.Deliveries, logg))
				r.With(middleware.RequireRole(logg, enums.RoleDriver)).
					Put("/{deliveryId}/location", controllers.DeliveryUpdateLocation(svc.Deliveries, logg))
			})

			r.Route("/subscriptions", func(r chi.Router) {
				r.Post("/", controllers.SubscriptionCreate(svc.Subscriptions, logg))
				r.Get("/", controllers.SubscriptionList(svc.Subscriptions, logg))
				r.Put("/{subscriptionId}", controllers.SubscriptionUpdate(svc.Subscriptions, logg))
				r.Delete("/{subscriptionId}", controllers.SubscriptionCancel(svc.Subscriptions, logg))
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin))
				r.Put("/orders/{orderId}/status", controllers.OrderUpdateStatus(svc.Orders, logg))
				r.Post("/payments/{paymentId}/refund", controllers.PaymentRefund(svc.Payments, logg))
				r.Get("/deliveries", controllers.AdminDeliveriesList(svc.Deliveries, logg))
				r.Put("/deliveries/{deliveryId}", controllers.AdminDeliveryUpdate(svc.Deliveries, logg))
			})
		})
	})

	return r
}
