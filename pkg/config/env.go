package config

const EnvPrefix = "LOJAS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	MailBackendSMTP    = "smtp"
	MailBackendConsole = "console"
)

const (
	EnvAppEnv    = "LOJAS_APP_ENV"
	EnvPort      = "LOJAS_APP_PORT"
	EnvBaseURL   = "LOJAS_BASE_URL"
	EnvDBDSN     = "LOJAS_DB_DSN"
	EnvDBHost    = "LOJAS_DB_HOST"
	EnvDBUser    = "LOJAS_DB_USER"
	EnvDBName    = "LOJAS_DB_NAME"
	EnvRedisURL  = "LOJAS_REDIS_URL"
	EnvJWTSecret = "LOJAS_JWT_SECRET"
	EnvJWTIssuer = "LOJAS_JWT_ISSUER"
	EnvTokenKey  = "LOJAS_TOKEN_SECRET"
	EnvTokenTTL  = "LOJAS_TOKEN_TTL"
	EnvUseSQLite = "LOJAS_USE_SQLITE"

	EnvRequireEmailConfirmation = "LOJAS_REQUIRE_EMAIL_CONFIRMATION"

	EnvMailBackend     = "LOJAS_MAIL_BACKEND"
	EnvMailHost        = "LOJAS_MAIL_HOST"
	EnvMailUser        = "LOJAS_MAIL_USER"
	EnvMailDefaultFrom = "LOJAS_MAIL_DEFAULT_FROM"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
