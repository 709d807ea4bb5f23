package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	FeatureFlags FeatureFlagsConfig
	Square       SquareConfig
	Providers    ProvidersConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"PAYCORE_APP_ENV" required:"true"`
	Port         string `envconfig:"PAYCORE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PAYCORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PAYCORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"PAYCORE_DB_DSN"`
	Driver string `envconfig:"PAYCORE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"PAYCORE_DB_HOST"`
	Port     int    `envconfig:"PAYCORE_DB_PORT" default:"5432"`
	User     string `envconfig:"PAYCORE_DB_USER"`
	Password string `envconfig:"PAYCORE_DB_PASSWORD"`
	Name     string `envconfig:"PAYCORE_DB_NAME"`
	SSLMode  string `envconfig:"PAYCORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PAYCORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PAYCORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PAYCORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PAYCORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PAYCORE_REDIS_URL"`
	Address      string        `envconfig:"PAYCORE_REDIS_ADDR"`
	Password     string        `envconfig:"PAYCORE_REDIS_PASSWORD"`
	DB           int           `envconfig:"PAYCORE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PAYCORE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PAYCORE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PAYCORE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PAYCORE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PAYCORE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured at all. The
// collection lock degrades to process-local CAS retries when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"PAYCORE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"PAYCORE_AUTO_MIGRATE" default:"false"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"PAYCORE_SQUARE_ACCESS_TOKEN"`
	Env         string `envconfig:"PAYCORE_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"PAYCORE_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type ProvidersConfig struct {
	// Enabled lists the provider identifiers the process should register on
	// start, e.g. "system,square".
	Enabled []string `envconfig:"PAYCORE_PROVIDERS_ENABLED" default:"system"`

	CallTimeout time.Duration `envconfig:"PAYCORE_PROVIDER_CALL_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"PAYCORE_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"PAYCORE_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	PaymentEventsTopic string `envconfig:"PAYCORE_PUBSUB_PAYMENT_EVENTS_TOPIC" default:"payment-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PAYCORE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PAYCORE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PAYCORE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range requiredDBEnvVars {
		if parts[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
