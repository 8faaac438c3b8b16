package config

// EnvPrefix is passed to envconfig.Process; individual fields carry the
// fully qualified variable names so the prefix only matters for overrides.
const EnvPrefix = "AGENTIC"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "AGENTIC_APP_ENV"
	EnvPort     = "AGENTIC_APP_PORT"
	EnvLogLevel = "AGENTIC_LOG_LEVEL"

	EnvDBDSN      = "AGENTIC_DB_DSN"
	EnvDBHost     = "AGENTIC_DB_HOST"
	EnvDBUser     = "AGENTIC_DB_USER"
	EnvDBName     = "AGENTIC_DB_NAME"
	EnvRedisURL   = "AGENTIC_REDIS_URL"
	EnvOpenAIKey  = "AGENTIC_OPENAI_API_KEY"
	EnvOpenAIBase = "AGENTIC_OPENAI_BASE_URL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
