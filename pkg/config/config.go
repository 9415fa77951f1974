package config

import (
	"database/sql"
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
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Shipping     ShippingConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	if err := cfg.Shipping.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// MetricsAddr is where the background workers expose /metrics. Empty disables it.
	MetricsAddr string   `envconfig:"STOREFRONT_METRICS_ADDR" default:":9090"`
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000,https://storefront.example"`
	// WriteRatePerMinute caps authenticated writes per user. Zero disables the limiter.
	WriteRatePerMinute int `envconfig:"STOREFRONT_WRITE_RATE_PER_MINUTE" default:"60"`
	WriteRateBurst     int `envconfig:"STOREFRONT_WRITE_RATE_BURST" default:"10"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOREFRONT_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQueryThreshold logs statements slower than this at warn. Zero disables it.
	SlowQueryThreshold time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`

	// CheckoutIsolation is the isolation level used by the checkout unit of work.
	CheckoutIsolation string `envconfig:"STOREFRONT_DB_CHECKOUT_ISOLATION" default:"repeatable_read"`
}

// IsolationLevel maps the configured checkout isolation name onto database/sql.
func (db DBConfig) IsolationLevel() (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.TrimSpace(db.CheckoutIsolation)) {
	case "", "default":
		return sql.LevelDefault, nil
	case "read_committed":
		return sql.LevelReadCommitted, nil
	case "repeatable_read":
		return sql.LevelRepeatableRead, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, fmt.Errorf("unsupported checkout isolation %q", db.CheckoutIsolation)
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite         bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate       bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	ShippingRateCache bool `envconfig:"STOREFRONT_SHIPPING_RATE_CACHE" default:"true"`
}

// CheckoutConfig bounds the checkout unit of work.
type CheckoutConfig struct {
	TxTimeout       time.Duration `envconfig:"STOREFRONT_CHECKOUT_TX_TIMEOUT" default:"10s"`
	MaxAttempts     int           `envconfig:"STOREFRONT_CHECKOUT_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay  time.Duration `envconfig:"STOREFRONT_CHECKOUT_RETRY_BASE_DELAY" default:"50ms"`
	RetryMaxDelay   time.Duration `envconfig:"STOREFRONT_CHECKOUT_RETRY_MAX_DELAY" default:"1s"`
	LoadConcurrency int           `envconfig:"STOREFRONT_CHECKOUT_LOAD_CONCURRENCY" default:"8"`
}

func (c CheckoutConfig) validate() error {
	if c.TxTimeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvCheckoutTxTimeout)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%s must be at least 1", EnvCheckoutMaxAttempts)
	}
	return nil
}

// ShippingConfig carries the platform-wide shipping defaults used when a
// vendor has neither a country override nor its own value for a field.
type ShippingConfig struct {
	DefaultService              string          `envconfig:"STOREFRONT_SHIPPING_DEFAULT_SERVICE" default:"standard"`
	DefaultFeePerItem           decimal.Decimal `envconfig:"STOREFRONT_SHIPPING_DEFAULT_FEE_PER_ITEM" default:"5.00"`
	DefaultFeeForAdditionalItem decimal.Decimal `envconfig:"STOREFRONT_SHIPPING_DEFAULT_FEE_ADDITIONAL_ITEM" default:"2.00"`
	DefaultFeePerKg             decimal.Decimal `envconfig:"STOREFRONT_SHIPPING_DEFAULT_FEE_PER_KG" default:"3.00"`
	DefaultFeeFixed             decimal.Decimal `envconfig:"STOREFRONT_SHIPPING_DEFAULT_FEE_FIXED" default:"10.00"`
	DefaultDeliveryTimeMin      int             `envconfig:"STOREFRONT_SHIPPING_DEFAULT_DELIVERY_MIN_DAYS" default:"3"`
	DefaultDeliveryTimeMax      int             `envconfig:"STOREFRONT_SHIPPING_DEFAULT_DELIVERY_MAX_DAYS" default:"10"`
	DefaultReturnPolicy         string          `envconfig:"STOREFRONT_SHIPPING_DEFAULT_RETURN_POLICY" default:"Returns accepted within 30 days."`
	RateCacheTTL                time.Duration   `envconfig:"STOREFRONT_SHIPPING_RATE_CACHE_TTL" default:"10m"`
}

func (s ShippingConfig) validate() error {
	for name, fee := range map[string]decimal.Decimal{
		EnvShippingFeePerItem:    s.DefaultFeePerItem,
		EnvShippingFeeAdditional: s.DefaultFeeForAdditionalItem,
		EnvShippingFeePerKg:      s.DefaultFeePerKg,
		EnvShippingFeeFixed:      s.DefaultFeeFixed,
	} {
		if fee.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if s.DefaultDeliveryTimeMin < 0 || s.DefaultDeliveryTimeMax < s.DefaultDeliveryTimeMin {
		return fmt.Errorf("shipping default delivery window is invalid (%d..%d)", s.DefaultDeliveryTimeMin, s.DefaultDeliveryTimeMax)
	}
	return nil
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
	// CreateTopics creates missing topics on boot instead of failing. Meant
	// for the emulator and dev projects.
	CreateTopics bool `envconfig:"STOREFRONT_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// CronConfig drives the maintenance worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"STOREFRONT_CRON_INTERVAL" default:"6h"`
	LockTTL         time.Duration `envconfig:"STOREFRONT_CRON_LOCK_TTL" default:"30m"`
	OutboxRetention time.Duration `envconfig:"STOREFRONT_CRON_OUTBOX_RETENTION" default:"720h"`
	DLQRetention    time.Duration `envconfig:"STOREFRONT_CRON_DLQ_RETENTION" default:"2160h"`
	RetentionBatch  int           `envconfig:"STOREFRONT_CRON_RETENTION_BATCH" default:"1000"`
	CartIdleAfter   time.Duration `envconfig:"STOREFRONT_CRON_CART_IDLE_AFTER" default:"1440h"`
	JobTimeout      time.Duration `envconfig:"STOREFRONT_CRON_JOB_TIMEOUT" default:"10m"`
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
