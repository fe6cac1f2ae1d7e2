package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "BRICKLINE"

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "BRICKLINE_APP_ENV"
	EnvPort       = "BRICKLINE_APP_PORT"
	EnvDBDSN      = "BRICKLINE_DB_DSN"
	EnvDBHost     = "BRICKLINE_DB_HOST"
	EnvDBUser     = "BRICKLINE_DB_USER"
	EnvDBName     = "BRICKLINE_DB_NAME"
	EnvRedisURL   = "BRICKLINE_REDIS_URL"
	EnvJWTSecret  = "BRICKLINE_JWT_SECRET"
	EnvJWTIssuer  = "BRICKLINE_JWT_ISSUER"
	EnvJWTExpMins = "BRICKLINE_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
