package config

// EnvPrefix is passed to envconfig; individual fields carry explicit names so
// the prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

// Environment variable names referenced outside struct tags.
const (
	EnvAppEnv                 = "CONTENTFORGE_APP_ENV"
	EnvPort                   = "CONTENTFORGE_APP_PORT"
	EnvDBDSN                  = "CONTENTFORGE_DB_DSN"
	EnvDBHost                 = "CONTENTFORGE_DB_HOST"
	EnvDBUser                 = "CONTENTFORGE_DB_USER"
	EnvDBName                 = "CONTENTFORGE_DB_NAME"
	EnvRedisURL               = "CONTENTFORGE_REDIS_URL"
	EnvJWTSecret              = "CONTENTFORGE_JWT_SECRET"
	EnvJWTIssuer              = "CONTENTFORGE_JWT_ISSUER"
	EnvJWTExpMins             = "CONTENTFORGE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CONTENTFORGE_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "CONTENTFORGE_GCP_PROJECT_ID"
	EnvGCSBucket              = "CONTENTFORGE_GCS_BUCKET_NAME"
	EnvPubSubDomainTopic      = "CONTENTFORGE_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub        = "CONTENTFORGE_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
