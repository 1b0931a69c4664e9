package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
	Goody         GoodyConfig
	Rye           RyeConfig
	Email         EmailConfig
	Cron          CronConfig
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
	Env          string `envconfig:"GRATTIA_APP_ENV" required:"true"`
	Port         string `envconfig:"GRATTIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GRATTIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GRATTIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GRATTIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GRATTIA_DB_DSN"`
	Driver string `envconfig:"GRATTIA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GRATTIA_DB_HOST"`
	LegacyPort     int    `envconfig:"GRATTIA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GRATTIA_DB_USER"`
	LegacyPassword string `envconfig:"GRATTIA_DB_PASSWORD"`
	LegacyName     string `envconfig:"GRATTIA_DB_NAME"`
	LegacySSLMode  string `envconfig:"GRATTIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRATTIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRATTIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRATTIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRATTIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRATTIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GRATTIA_REDIS_ADDR"`
	Password     string        `envconfig:"GRATTIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRATTIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRATTIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRATTIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRATTIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRATTIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRATTIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GRATTIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GRATTIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GRATTIA_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"GRATTIA_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session lifetime configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GRATTIA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GRATTIA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GRATTIA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GRATTIA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GRATTIA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"GRATTIA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"GRATTIA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"GRATTIA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"GRATTIA_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	TestAPIKey        string `envconfig:"GRATTIA_STRIPE_TEST_API_KEY"`
	LiveAPIKey        string `envconfig:"GRATTIA_STRIPE_LIVE_API_KEY"`
	TestSigningSecret string `envconfig:"GRATTIA_STRIPE_TEST_WEBHOOK_SECRET"`
	LiveSigningSecret string `envconfig:"GRATTIA_STRIPE_LIVE_WEBHOOK_SECRET"`
	SeatPriceID       string `envconfig:"GRATTIA_STRIPE_SEAT_PRICE_ID"`
}

type GoodyConfig struct {
	APIKey  string        `envconfig:"GRATTIA_GOODY_API_KEY"`
	BaseURL string        `envconfig:"GRATTIA_GOODY_BASE_URL" default:"https://api.ongoody.com"`
	Timeout time.Duration `envconfig:"GRATTIA_GOODY_TIMEOUT" default:"15s"`
}

type RyeConfig struct {
	APIKey    string        `envconfig:"GRATTIA_RYE_API_KEY"`
	ShopperIP string        `envconfig:"GRATTIA_RYE_SHOPPER_IP"`
	BaseURL   string        `envconfig:"GRATTIA_RYE_BASE_URL" default:"https://graphql.api.rye.com/v1/query"`
	Timeout   time.Duration `envconfig:"GRATTIA_RYE_TIMEOUT" default:"15s"`
}

type EmailConfig struct {
	RelayURL    string        `envconfig:"GRATTIA_EMAIL_RELAY_URL"`
	RelayToken  string        `envconfig:"GRATTIA_EMAIL_RELAY_TOKEN"`
	FromAddress string        `envconfig:"GRATTIA_EMAIL_FROM" default:"hello@grattia.com"`
	Timeout     time.Duration `envconfig:"GRATTIA_EMAIL_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval    time.Duration `envconfig:"GRATTIA_CRON_INTERVAL" default:"15m"`
	LockTTL     time.Duration `envconfig:"GRATTIA_CRON_LOCK_TTL" default:"10m"`
	MetricsPort string        `envconfig:"GRATTIA_CRON_METRICS_PORT" default:"9091"`
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
