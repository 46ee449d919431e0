package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "lotto"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LOTTO_DB_DSN"
	EnvDBHost = "LOTTO_DB_HOST"
	EnvDBUser = "LOTTO_DB_USER"
	EnvDBName = "LOTTO_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
