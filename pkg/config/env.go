package config

// EnvPrefix is passed to envconfig; explicit envconfig tags on every field
// keep the variable names stable regardless of struct layout.
const EnvPrefix = "GRATTIA"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "GRATTIA_APP_ENV"
	EnvPort     = "GRATTIA_APP_PORT"
	EnvLogLevel = "GRATTIA_LOG_LEVEL"

	EnvDBDSN  = "GRATTIA_DB_DSN"
	EnvDBHost = "GRATTIA_DB_HOST"
	EnvDBUser = "GRATTIA_DB_USER"
	EnvDBName = "GRATTIA_DB_NAME"

	EnvRedisURL = "GRATTIA_REDIS_URL"

	EnvJWTSecret            = "GRATTIA_JWT_SECRET"
	EnvJWTIssuer            = "GRATTIA_JWT_ISSUER"
	EnvJWTExpMins           = "GRATTIA_JWT_EXPIRATION_MINUTES"
	EnvSessionTTLMinutes    = "GRATTIA_SESSION_TTL_MINUTES"

	EnvStripeTestAPIKey = "GRATTIA_STRIPE_TEST_API_KEY"
	EnvStripeLiveAPIKey = "GRATTIA_STRIPE_LIVE_API_KEY"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
