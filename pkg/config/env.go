package config

const (
	EnvPrefix = "BAKERY"

	AppEnvDev  = "dev"
	AppEnvProd = "production"

	EnvAppEnv   = "BAKERY_APP_ENV"
	EnvPort     = "BAKERY_APP_PORT"
	EnvLogLevel = "BAKERY_LOG_LEVEL"

	EnvDBDSN  = "BAKERY_DB_DSN"
	EnvDBHost = "BAKERY_DB_HOST"
	EnvDBUser = "BAKERY_DB_USER"
	EnvDBName = "BAKERY_DB_NAME"

	EnvRedisURL = "BAKERY_REDIS_URL"

	EnvJWTSecret  = "BAKERY_JWT_SECRET"
	EnvJWTIssuer  = "BAKERY_JWT_ISSUER"
	EnvJWTExpMins = "BAKERY_JWT_EXPIRATION_MINUTES"

	EnvTaxRatePercent = "BAKERY_TAX_RATE_PERCENT"
	EnvDeliveryBands  = "BAKERY_DELIVERY_BANDS"
	EnvFreeDelivery   = "BAKERY_FREE_DELIVERY_THRESHOLD"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
