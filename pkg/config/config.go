package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Sales         SalesConfig
	Reconciler    ReconcilerConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"SABROSITAS_APP_ENV" required:"true"`
	Port         string `envconfig:"SABROSITAS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"SABROSITAS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SABROSITAS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SABROSITAS_DB_DSN"`
	Driver string `envconfig:"SABROSITAS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SABROSITAS_DB_HOST"`
	LegacyPort     int    `envconfig:"SABROSITAS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SABROSITAS_DB_USER"`
	LegacyPassword string `envconfig:"SABROSITAS_DB_PASSWORD"`
	LegacyName     string `envconfig:"SABROSITAS_DB_NAME"`
	LegacySSLMode  string `envconfig:"SABROSITAS_DB_SSLMODE" default:"disable"`

	MaxOpenConns     int           `envconfig:"SABROSITAS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns     int           `envconfig:"SABROSITAS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime  time.Duration `envconfig:"SABROSITAS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime  time.Duration `envconfig:"SABROSITAS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	StatementTimeout time.Duration `envconfig:"SABROSITAS_DB_STATEMENT_TIMEOUT" default:"10s"`
}

// ensureDSN builds a DSN from the discrete host settings when one was not
// supplied directly.
func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.LegacyHost == "" || d.LegacyUser == "" || d.LegacyName == "" {
		return fmt.Errorf("either SABROSITAS_DB_DSN or host/user/name settings are required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.LegacyUser, d.LegacyPassword),
		Host:   fmt.Sprintf("%s:%d", d.LegacyHost, d.LegacyPort),
		Path:   d.LegacyName,
	}
	q := u.Query()
	q.Set("sslmode", d.LegacySSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"SABROSITAS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SABROSITAS_REDIS_ADDR"`
	Password     string        `envconfig:"SABROSITAS_REDIS_PASSWORD"`
	DB           int           `envconfig:"SABROSITAS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SABROSITAS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SABROSITAS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SABROSITAS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SABROSITAS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SABROSITAS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"SABROSITAS_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SABROSITAS_JWT_ISSUER" default:"sabrositas-pos"`
	ExpirationMinutes      int    `envconfig:"SABROSITAS_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"SABROSITAS_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SABROSITAS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SABROSITAS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SABROSITAS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SABROSITAS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SABROSITAS_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"SABROSITAS_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"SABROSITAS_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"SABROSITAS_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type SalesConfig struct {
	InvoicePrefix      string        `envconfig:"SABROSITAS_INVOICE_PREFIX" default:"TICKET"`
	CommitRetries      int           `envconfig:"SABROSITAS_SALE_COMMIT_RETRIES" default:"3"`
	RetryBackoff       time.Duration `envconfig:"SABROSITAS_SALE_RETRY_BACKOFF" default:"25ms"`
	IdempotencyTTL     time.Duration `envconfig:"SABROSITAS_IDEMPOTENCY_TTL" default:"24h"`
	LowStockThreshold  string        `envconfig:"SABROSITAS_LOW_STOCK_THRESHOLD" default:"5"`
	OperationDeadline  time.Duration `envconfig:"SABROSITAS_SALE_DEADLINE" default:"15s"`
}

type ReconcilerConfig struct {
	Interval  time.Duration `envconfig:"SABROSITAS_RECONCILER_INTERVAL" default:"24h"`
	Correct   bool          `envconfig:"SABROSITAS_RECONCILER_CORRECT" default:"false"`
	Tolerance string        `envconfig:"SABROSITAS_RECONCILER_TOLERANCE" default:"0.01"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SABROSITAS_AUTO_MIGRATE" default:"false"`
}
