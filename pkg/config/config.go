package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Checkout     CheckoutConfig
	Razorpay     RazorpayConfig
	Delivery     DeliveryConfig
	OTPHash      OTPHashConfig
	Sendgrid     SendgridConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"QUICKCART_APP_ENV" required:"true"`
	Port         string   `envconfig:"QUICKCART_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"QUICKCART_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"QUICKCART_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"QUICKCART_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"QUICKCART_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"QUICKCART_DB_DSN"`

	LegacyHost     string `envconfig:"QUICKCART_DB_HOST"`
	LegacyPort     int    `envconfig:"QUICKCART_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"QUICKCART_DB_USER"`
	LegacyPassword string `envconfig:"QUICKCART_DB_PASSWORD"`
	LegacyName     string `envconfig:"QUICKCART_DB_NAME"`
	LegacySSLMode  string `envconfig:"QUICKCART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"QUICKCART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"QUICKCART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"QUICKCART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"QUICKCART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"QUICKCART_REDIS_URL" required:"true"`
	Password     string        `envconfig:"QUICKCART_REDIS_PASSWORD"`
	PoolSize     int           `envconfig:"QUICKCART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"QUICKCART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"QUICKCART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"QUICKCART_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"QUICKCART_REDIS_WRITE_TIMEOUT" default:"3s"`
	// IdempotencyTTL bounds how long Idempotency-Key replays are served.
	IdempotencyTTL time.Duration `envconfig:"QUICKCART_IDEMPOTENCY_TTL" default:"24h"`
}

type JWTConfig struct {
	Secret            string `envconfig:"QUICKCART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"QUICKCART_JWT_ISSUER" default:"quickcart"`
	ExpirationMinutes int    `envconfig:"QUICKCART_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig holds the pricing rules applied when an order is placed.
type CheckoutConfig struct {
	Currency              string          `envconfig:"QUICKCART_CURRENCY" default:"INR"`
	FreeShippingThreshold decimal.Decimal `envconfig:"QUICKCART_FREE_SHIPPING_THRESHOLD" default:"500"`
	ShippingFee           decimal.Decimal `envconfig:"QUICKCART_SHIPPING_FEE" default:"40"`
	HandlingFee           decimal.Decimal `envconfig:"QUICKCART_HANDLING_FEE" default:"5"`
	GatewayTimeout        time.Duration   `envconfig:"QUICKCART_GATEWAY_TIMEOUT" default:"10s"`
	PendingOrderTTL       time.Duration   `envconfig:"QUICKCART_PENDING_ORDER_TTL" default:"30m"`
}

func (c CheckoutConfig) validate() error {
	if c.ShippingFee.IsNegative() || c.HandlingFee.IsNegative() || c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("checkout fees and thresholds must be non-negative")
	}
	if strings.TrimSpace(c.Currency) == "" {
		return fmt.Errorf("%s must not be empty", EnvCurrency)
	}
	return nil
}

type RazorpayConfig struct {
	KeyID         string `envconfig:"QUICKCART_RAZORPAY_KEY_ID"`
	KeySecret     string `envconfig:"QUICKCART_RAZORPAY_KEY_SECRET"`
	WebhookSecret string `envconfig:"QUICKCART_RAZORPAY_WEBHOOK_SECRET"`
}

// WebhookSigningSecret falls back to the key secret when no dedicated webhook secret is set.
func (r RazorpayConfig) WebhookSigningSecret() string {
	if strings.TrimSpace(r.WebhookSecret) != "" {
		return r.WebhookSecret
	}
	return r.KeySecret
}

type DeliveryConfig struct {
	OTPTTL            time.Duration `envconfig:"QUICKCART_DELIVERY_OTP_TTL" default:"5m"`
	OTPRequestLimit   int           `envconfig:"QUICKCART_DELIVERY_OTP_REQUEST_LIMIT" default:"5"`
	OTPVerifyLimit    int           `envconfig:"QUICKCART_DELIVERY_OTP_VERIFY_LIMIT" default:"10"`
	OTPLimitWindow    time.Duration `envconfig:"QUICKCART_DELIVERY_OTP_LIMIT_WINDOW" default:"15m"`
	EstimatedETADays  int           `envconfig:"QUICKCART_DELIVERY_ETA_DAYS" default:"3"`
	TrackingCodeRetry int           `envconfig:"QUICKCART_DELIVERY_TRACKING_RETRIES" default:"3"`
}

// OTPHashConfig tunes the argon2id digest stored for delivery codes.
type OTPHashConfig struct {
	ArgonMemoryKB    int `envconfig:"QUICKCART_OTP_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime        int `envconfig:"QUICKCART_OTP_ARGON_TIME" default:"2"`
	ArgonParallelism int `envconfig:"QUICKCART_OTP_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen     int `envconfig:"QUICKCART_OTP_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"QUICKCART_OTP_ARGON_KEY_LEN" default:"32"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"QUICKCART_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"QUICKCART_SENDGRID_FROM_EMAIL" default:"no-reply@quickcart.local"`
	FromName    string `envconfig:"QUICKCART_SENDGRID_FROM_NAME" default:"QuickCart"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"QUICKCART_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"QUICKCART_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic     string `envconfig:"QUICKCART_PUBSUB_ORDERS_TOPIC" default:"quickcart-orders"`
	PaymentsTopic   string `envconfig:"QUICKCART_PUBSUB_PAYMENTS_TOPIC" default:"quickcart-payments"`
	DeliveriesTopic string `envconfig:"QUICKCART_PUBSUB_DELIVERIES_TOPIC" default:"quickcart-deliveries"`
	DomainTopic     string `envconfig:"QUICKCART_PUBSUB_DOMAIN_TOPIC" default:"quickcart-domain"`

	NotificationsSubscription string `envconfig:"QUICKCART_PUBSUB_NOTIFICATIONS_SUBSCRIPTION" default:"quickcart-order-notifications"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"QUICKCART_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"QUICKCART_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"QUICKCART_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"QUICKCART_OUTBOX_RETENTION" default:"720h"`
}

type CronConfig struct {
	Interval   time.Duration `envconfig:"QUICKCART_CRON_INTERVAL" default:"1m"`
	LockTTL    time.Duration `envconfig:"QUICKCART_CRON_LOCK_TTL" default:"55s"`
	JobTimeout time.Duration `envconfig:"QUICKCART_CRON_JOB_TIMEOUT" default:"30s"`
	BatchSize  int           `envconfig:"QUICKCART_CRON_BATCH_SIZE" default:"100"`
}

// RateLimitConfig bounds API traffic per caller. Zero disables a dimension.
type RateLimitConfig struct {
	Window        time.Duration `envconfig:"QUICKCART_RATE_LIMIT_WINDOW" default:"1m"`
	UserLimit     int           `envconfig:"QUICKCART_RATE_LIMIT_PER_USER" default:"120"`
	IPLimit       int           `envconfig:"QUICKCART_RATE_LIMIT_PER_IP" default:"300"`
	WebhookIPRate int           `envconfig:"QUICKCART_RATE_LIMIT_WEBHOOK_PER_IP" default:"600"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}
	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
