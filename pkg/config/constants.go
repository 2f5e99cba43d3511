package config

// EnvPrefix is passed to envconfig; individual fields carry fully
// prefixed names so the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "development"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv = "CIGARRO_APP_ENV"
	EnvPort   = "CIGARRO_APP_PORT"
	EnvDBDSN  = "CIGARRO_DB_DSN"
	EnvDBHost = "CIGARRO_DB_HOST"
	EnvDBUser = "CIGARRO_DB_USER"
	EnvDBName = "CIGARRO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
