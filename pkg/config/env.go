package config

const (
	EnvPrefix = "ARCHIVESURMER"

	AppEnvDev = "dev"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	EnvAppEnv       = "ARCHIVESURMER_APP_ENV"
	EnvPort         = "ARCHIVESURMER_APP_PORT"
	EnvPublicOrigin = "ARCHIVESURMER_PUBLIC_ORIGIN"
	EnvDBDSN        = "ARCHIVESURMER_DB_DSN"
	EnvDBHost       = "ARCHIVESURMER_DB_HOST"
	EnvDBUser       = "ARCHIVESURMER_DB_USER"
	EnvDBName       = "ARCHIVESURMER_DB_NAME"
	EnvRedisURL     = "ARCHIVESURMER_REDIS_URL"
	EnvUseSQLite    = "ARCHIVESURMER_USE_SQLITE"
	EnvFeePercent   = "ARCHIVESURMER_PLATFORM_FEE_PERCENT"
	EnvAdminToken   = "ARCHIVESURMER_MARKETPLACE_ADMIN_TOKEN"
	EnvStripeKey    = "ARCHIVESURMER_STRIPE_SECRET_KEY"
	EnvStripeSecret = "ARCHIVESURMER_STRIPE_WEBHOOK_SECRET"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
