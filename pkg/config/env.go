package config

const EnvPrefix = "QUICKCART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv       = "QUICKCART_APP_ENV"
	EnvPort         = "QUICKCART_APP_PORT"
	EnvDBDSN        = "QUICKCART_DB_DSN"
	EnvDBHost       = "QUICKCART_DB_HOST"
	EnvDBUser       = "QUICKCART_DB_USER"
	EnvDBName       = "QUICKCART_DB_NAME"
	EnvRedisURL     = "QUICKCART_REDIS_URL"
	EnvJWTSecret    = "QUICKCART_JWT_SECRET"
	EnvCurrency     = "QUICKCART_CURRENCY"
	EnvShippingFee  = "QUICKCART_SHIPPING_FEE"
	EnvRazorpayKey  = "QUICKCART_RAZORPAY_KEY_ID"
	EnvRazorpayHook = "QUICKCART_RAZORPAY_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
