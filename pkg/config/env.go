package config

// EnvPrefix namespaces every storefront variable.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvJWTSecret  = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer  = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins = "STOREFRONT_JWT_EXPIRATION_MINUTES"

	EnvCheckoutTxTimeout   = "STOREFRONT_CHECKOUT_TX_TIMEOUT"
	EnvCheckoutMaxAttempts = "STOREFRONT_CHECKOUT_MAX_ATTEMPTS"

	EnvShippingFeePerItem    = "STOREFRONT_SHIPPING_DEFAULT_FEE_PER_ITEM"
	EnvShippingFeeAdditional = "STOREFRONT_SHIPPING_DEFAULT_FEE_ADDITIONAL_ITEM"
	EnvShippingFeePerKg      = "STOREFRONT_SHIPPING_DEFAULT_FEE_PER_KG"
	EnvShippingFeeFixed      = "STOREFRONT_SHIPPING_DEFAULT_FEE_FIXED"

	EnvCronInterval        = "STOREFRONT_CRON_INTERVAL"
	EnvCronOutboxRetention = "STOREFRONT_CRON_OUTBOX_RETENTION"

	EnvGCPProjectID        = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic   = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
	EnvDBCheckoutIsolation = "STOREFRONT_DB_CHECKOUT_ISOLATION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
