package config

const (
	EnvPrefix = "paycore"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "PAYCORE_DB_DSN"
	EnvDBHost = "PAYCORE_DB_HOST"
	EnvDBUser = "PAYCORE_DB_USER"
	EnvDBName = "PAYCORE_DB_NAME"
)

var requiredDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
