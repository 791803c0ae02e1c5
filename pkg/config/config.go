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
	FeatureFlags FeatureFlagsConfig
	Admin        AdminConfig
	Marketplace  MarketplaceConfig
	RateLimit    RateLimitConfig
	Cron         CronConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	Stripe       StripeConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ARCHIVESURMER_APP_ENV" required:"true"`
	Port         string `envconfig:"ARCHIVESURMER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"ARCHIVESURMER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ARCHIVESURMER_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"ARCHIVESURMER_LOG_FORMAT" default:"json"`
	PublicOrigin string `envconfig:"ARCHIVESURMER_PUBLIC_ORIGIN"`
	CORSOrigin   string `envconfig:"ARCHIVESURMER_CORS_ALLOW_ORIGIN" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

type ServiceConfig struct {
	Kind string `envconfig:"ARCHIVESURMER_SERVICE_KIND" default:"api"`
	// MetricsAddr is the worker /metrics listener, e.g. ":9464". Empty disables it.
	MetricsAddr string `envconfig:"ARCHIVESURMER_WORKER_METRICS_ADDR"`
}

type DBConfig struct {
	DSN    string `envconfig:"ARCHIVESURMER_DB_DSN"`
	Driver string `envconfig:"ARCHIVESURMER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ARCHIVESURMER_DB_HOST"`
	LegacyPort     int    `envconfig:"ARCHIVESURMER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ARCHIVESURMER_DB_USER"`
	LegacyPassword string `envconfig:"ARCHIVESURMER_DB_PASSWORD"`
	LegacyName     string `envconfig:"ARCHIVESURMER_DB_NAME"`
	LegacySSLMode  string `envconfig:"ARCHIVESURMER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ARCHIVESURMER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ARCHIVESURMER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ARCHIVESURMER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ARCHIVESURMER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"ARCHIVESURMER_DB_SLOW_QUERY" default:"500ms"`
	TxAttempts      int           `envconfig:"ARCHIVESURMER_DB_TX_ATTEMPTS" default:"3"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ARCHIVESURMER_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ARCHIVESURMER_REDIS_ADDR"`
	Password     string        `envconfig:"ARCHIVESURMER_REDIS_PASSWORD"`
	DB           int           `envconfig:"ARCHIVESURMER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ARCHIVESURMER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ARCHIVESURMER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ARCHIVESURMER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ARCHIVESURMER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ARCHIVESURMER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ARCHIVESURMER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ARCHIVESURMER_AUTO_MIGRATE" default:"false"`
}

// AdminConfig holds the shared moderation token. An empty token disables moderation endpoints.
type AdminConfig struct {
	Token string `envconfig:"ARCHIVESURMER_MARKETPLACE_ADMIN_TOKEN"`
}

type MarketplaceConfig struct {
	PlatformFeePercent decimal.Decimal `envconfig:"ARCHIVESURMER_PLATFORM_FEE_PERCENT" default:"15"`
	ReservationTTL     time.Duration   `envconfig:"ARCHIVESURMER_RESERVATION_TTL" default:"15m"`
	OfferTTL           time.Duration   `envconfig:"ARCHIVESURMER_OFFER_TTL" default:"168h"`
	CheckoutReplayTTL  time.Duration   `envconfig:"ARCHIVESURMER_CHECKOUT_REPLAY_TTL" default:"10m"`
}

type RateLimitConfig struct {
	Window       time.Duration `envconfig:"ARCHIVESURMER_RATE_LIMIT_WINDOW" default:"1m"`
	WriteIPLimit int           `envconfig:"ARCHIVESURMER_RATE_LIMIT_WRITE_IP_LIMIT" default:"60"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"ARCHIVESURMER_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"ARCHIVESURMER_CRON_LOCK_TTL" default:"4m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ARCHIVESURMER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"ARCHIVESURMER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"ARCHIVESURMER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"ARCHIVESURMER_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"ARCHIVESURMER_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type MediaConfig struct {
	MaxUploadMB   int    `envconfig:"ARCHIVESURMER_MAX_UPLOAD_MB" default:"10"`
	DefaultFolder string `envconfig:"ARCHIVESURMER_MEDIA_DEFAULT_FOLDER" default:"listings"`
}

// MaxUploadBytes returns the decoded upload size ceiling.
func (m MediaConfig) MaxUploadBytes() int64 {
	if m.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(m.MaxUploadMB) << 20
}

type PubSubConfig struct {
	DomainTopic string `envconfig:"ARCHIVESURMER_PUBSUB_DOMAIN_TOPIC" default:"asm-domain-events"`
	// Ordered publishes with the aggregate as ordering key so a listing's
	// reserved/released/sold events arrive in the order they were emitted.
	Ordered bool `envconfig:"ARCHIVESURMER_PUBSUB_ORDERED" default:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"ARCHIVESURMER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"ARCHIVESURMER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"ARCHIVESURMER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"ARCHIVESURMER_STRIPE_SECRET_KEY"`
	WebhookSecret string        `envconfig:"ARCHIVESURMER_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"ARCHIVESURMER_STRIPE_ENV" default:"test"`
	WebhookTTL    time.Duration `envconfig:"ARCHIVESURMER_STRIPE_WEBHOOK_DEDUPE_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:archivesurmer.db?cache=shared"
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
