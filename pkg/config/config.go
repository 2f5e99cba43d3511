package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Checkout     CheckoutConfig
	UPI          UPIConfig
	Webhook      WebhookConfig
	Sweeper      SweeperConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CIGARRO_APP_ENV" required:"true"`
	Port         string `envconfig:"CIGARRO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CIGARRO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CIGARRO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CIGARRO_DB_DSN"`
	Driver string `envconfig:"CIGARRO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CIGARRO_DB_HOST"`
	LegacyPort     int    `envconfig:"CIGARRO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CIGARRO_DB_USER"`
	LegacyPassword string `envconfig:"CIGARRO_DB_PASSWORD"`
	LegacyName     string `envconfig:"CIGARRO_DB_NAME"`
	LegacySSLMode  string `envconfig:"CIGARRO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CIGARRO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CIGARRO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CIGARRO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CIGARRO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CIGARRO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CIGARRO_REDIS_ADDR"`
	Password     string        `envconfig:"CIGARRO_REDIS_PASSWORD"`
	DB           int           `envconfig:"CIGARRO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CIGARRO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CIGARRO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CIGARRO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CIGARRO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CIGARRO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// CheckoutConfig tunes the settlement engine and confirmation protocol.
type CheckoutConfig struct {
	ConfirmationDeadline time.Duration `envconfig:"CIGARRO_CHECKOUT_CONFIRMATION_DEADLINE" default:"8m"`
	PollInterval         time.Duration `envconfig:"CIGARRO_CHECKOUT_POLL_INTERVAL" default:"4s"`
	SessionTTL           time.Duration `envconfig:"CIGARRO_CHECKOUT_SESSION_TTL" default:"24h"`
	RefundWindowDays     int           `envconfig:"CIGARRO_CHECKOUT_REFUND_WINDOW_DAYS" default:"7"`
}

// UPIConfig identifies the payee for deep-link payment requests.
type UPIConfig struct {
	PayeeVPA  string `envconfig:"CIGARRO_UPI_PAYEE_VPA" required:"true"`
	PayeeName string `envconfig:"CIGARRO_UPI_PAYEE_NAME" required:"true"`
	Currency  string `envconfig:"CIGARRO_UPI_CURRENCY" default:"INR"`
}

// WebhookConfig points at the downstream notification endpoint.
type WebhookConfig struct {
	URL     string        `envconfig:"CIGARRO_NOTIFY_WEBHOOK_URL"`
	Timeout time.Duration `envconfig:"CIGARRO_NOTIFY_WEBHOOK_TIMEOUT" default:"5s"`
}

// SweeperConfig drives the scheduled payment-timeout sweep.
type SweeperConfig struct {
	Interval     time.Duration `envconfig:"CIGARRO_SWEEPER_INTERVAL" default:"5m"`
	StaleAfter   time.Duration `envconfig:"CIGARRO_SWEEPER_STALE_AFTER" default:"30m"`
	LockTTL      time.Duration `envconfig:"CIGARRO_SWEEPER_LOCK_TTL" default:"10m"`
	MetricsPort  string        `envconfig:"CIGARRO_SWEEPER_METRICS_PORT" default:"9102"`
	DisableSweep bool          `envconfig:"CIGARRO_SWEEPER_DISABLED" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CIGARRO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CIGARRO_AUTO_MIGRATE" default:"false"`
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
