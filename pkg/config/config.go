package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Entitlement   EntitlementConfig
	Risk          RiskConfig
	Trial         TrialConfig
	Providers     ProvidersConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Stripe        StripeConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONTENTFORGE_APP_ENV" required:"true"`
	Port         string `envconfig:"CONTENTFORGE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CONTENTFORGE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONTENTFORGE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CONTENTFORGE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CONTENTFORGE_DB_DSN"`
	Driver string `envconfig:"CONTENTFORGE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONTENTFORGE_DB_HOST"`
	LegacyPort     int    `envconfig:"CONTENTFORGE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONTENTFORGE_DB_USER"`
	LegacyPassword string `envconfig:"CONTENTFORGE_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONTENTFORGE_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONTENTFORGE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONTENTFORGE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONTENTFORGE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONTENTFORGE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONTENTFORGE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONTENTFORGE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CONTENTFORGE_REDIS_ADDR"`
	Password     string        `envconfig:"CONTENTFORGE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONTENTFORGE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONTENTFORGE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONTENTFORGE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONTENTFORGE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONTENTFORGE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONTENTFORGE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CONTENTFORGE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CONTENTFORGE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CONTENTFORGE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CONTENTFORGE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CONTENTFORGE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CONTENTFORGE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CONTENTFORGE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CONTENTFORGE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CONTENTFORGE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CONTENTFORGE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CONTENTFORGE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CONTENTFORGE_AUTO_MIGRATE" default:"false"`
}

// EntitlementConfig carries the per-tier monthly generation quotas. Quotas are
// injected configuration so support can retune limits without a deploy.
type EntitlementConfig struct {
	FreeMonthlyQuota    int            `envconfig:"CONTENTFORGE_QUOTA_FREE" default:"10"`
	StarterMonthlyQuota int            `envconfig:"CONTENTFORGE_QUOTA_STARTER" default:"100"`
	ProMonthlyQuota     int            `envconfig:"CONTENTFORGE_QUOTA_PRO" default:"500"`
	EnterpriseUnbounded bool           `envconfig:"CONTENTFORGE_QUOTA_ENTERPRISE_UNBOUNDED" default:"true"`
	EnterpriseQuota     int            `envconfig:"CONTENTFORGE_QUOTA_ENTERPRISE" default:"0"`
	DefaultActionCost   int            `envconfig:"CONTENTFORGE_ACTION_COST_DEFAULT" default:"1"`
	ActionCostByType    map[string]int `envconfig:"CONTENTFORGE_ACTION_COSTS"`
}

// QuotaForTier resolves the monthly quota for the named tier. The second
// return value reports an unbounded quota.
func (e EntitlementConfig) QuotaForTier(tier string) (int, bool) {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "starter":
		return e.StarterMonthlyQuota, false
	case "pro":
		return e.ProMonthlyQuota, false
	case "enterprise":
		if e.EnterpriseUnbounded {
			return 0, true
		}
		return e.EnterpriseQuota, false
	default:
		return e.FreeMonthlyQuota, false
	}
}

// CostForType resolves the quota cost of one generation of the given content
// type, falling back to the flat default cost.
func (e EntitlementConfig) CostForType(contentType string) int {
	if cost, ok := e.ActionCostByType[strings.ToLower(strings.TrimSpace(contentType))]; ok && cost > 0 {
		return cost
	}
	if e.DefaultActionCost > 0 {
		return e.DefaultActionCost
	}
	return 1
}

// RiskConfig holds the risk-signal weights and the escalation threshold.
type RiskConfig struct {
	FingerprintReuseScore    int           `envconfig:"CONTENTFORGE_RISK_FINGERPRINT_REUSE_SCORE" default:"30"`
	FingerprintReuseAccounts int           `envconfig:"CONTENTFORGE_RISK_FINGERPRINT_REUSE_ACCOUNTS" default:"2"`
	FingerprintReuseWindow   time.Duration `envconfig:"CONTENTFORGE_RISK_FINGERPRINT_REUSE_WINDOW" default:"24h"`
	IPVelocityScore          int           `envconfig:"CONTENTFORGE_RISK_IP_VELOCITY_SCORE" default:"25"`
	IPVelocitySignups        int           `envconfig:"CONTENTFORGE_RISK_IP_VELOCITY_SIGNUPS" default:"3"`
	IPVelocityWindow         time.Duration `envconfig:"CONTENTFORGE_RISK_IP_VELOCITY_WINDOW" default:"1h"`
	ProxyIPScore             int           `envconfig:"CONTENTFORGE_RISK_PROXY_IP_SCORE" default:"20"`
	ProxyDenyList            []string      `envconfig:"CONTENTFORGE_RISK_PROXY_DENY_LIST"`
	MissingFingerprintScore  int           `envconfig:"CONTENTFORGE_RISK_MISSING_FINGERPRINT_SCORE" default:"10"`
	FlagThreshold            int           `envconfig:"CONTENTFORGE_RISK_FLAG_THRESHOLD" default:"50"`
}

// IsDenyListedIP reports whether the IP matches the configured proxy/disposable
// deny list. Entries are exact IPs or prefixes ending in '.'.
func (r RiskConfig) IsDenyListedIP(ip string) bool {
	trimmed := strings.TrimSpace(ip)
	if trimmed == "" {
		return false
	}
	for _, entry := range r.ProxyDenyList {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.HasSuffix(entry, ".") {
			if strings.HasPrefix(trimmed, entry) {
				return true
			}
			continue
		}
		if entry == trimmed {
			return true
		}
	}
	return false
}

type TrialConfig struct {
	Days int `envconfig:"CONTENTFORGE_TRIAL_DAYS" default:"3"`
}

// Duration returns the trial length.
func (t TrialConfig) Duration() time.Duration {
	days := t.Days
	if days <= 0 {
		days = 3
	}
	return time.Duration(days) * 24 * time.Hour
}

// ProvidersConfig holds credentials for the external generation providers.
// Provider behavior is owned by the third parties; requests pass through.
type ProvidersConfig struct {
	OpenAIAPIKey   string        `envconfig:"CONTENTFORGE_OPENAI_API_KEY"`
	OpenAIBaseURL  string        `envconfig:"CONTENTFORGE_OPENAI_BASE_URL" default:"https://api.openai.com/v1"`
	ImageAPIKey    string        `envconfig:"CONTENTFORGE_IMAGE_API_KEY"`
	ImageBaseURL   string        `envconfig:"CONTENTFORGE_IMAGE_BASE_URL"`
	TTSAPIKey      string        `envconfig:"CONTENTFORGE_TTS_API_KEY"`
	TTSBaseURL     string        `envconfig:"CONTENTFORGE_TTS_BASE_URL"`
	RequestTimeout time.Duration `envconfig:"CONTENTFORGE_PROVIDER_TIMEOUT" default:"60s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CONTENTFORGE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CONTENTFORGE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CONTENTFORGE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"CONTENTFORGE_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"CONTENTFORGE_GCS_DOWNLOAD_URL_EXPIRY" default:"24h"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"CONTENTFORGE_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription string `envconfig:"CONTENTFORGE_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset            string `envconfig:"CONTENTFORGE_BIGQUERY_DATASET" default:"contentforge"`
	UsageEventsTable   string `envconfig:"CONTENTFORGE_BIGQUERY_USAGE_TABLE" default:"usage_events"`
	AccountEventsTable string `envconfig:"CONTENTFORGE_BIGQUERY_ACCOUNT_TABLE" default:"account_events"`
}

type StripeConfig struct {
	APIKey string `envconfig:"CONTENTFORGE_STRIPE_API_KEY"`
	Secret string `envconfig:"CONTENTFORGE_STRIPE_SECRET"`
	Env    string `envconfig:"CONTENTFORGE_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"CONTENTFORGE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"CONTENTFORGE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"CONTENTFORGE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"CONTENTFORGE_OUTBOX_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	Interval            time.Duration `envconfig:"CONTENTFORGE_CRON_INTERVAL" default:"1h"`
	OutboxRetentionDays int           `envconfig:"CONTENTFORGE_CRON_OUTBOX_RETENTION_DAYS" default:"30"`
	MetricsPort         string        `envconfig:"CONTENTFORGE_CRON_METRICS_PORT" default:"9090"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
