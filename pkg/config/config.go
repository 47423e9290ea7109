package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix  = ""
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Dispatch     DispatchConfig
	Outbox       OutboxConfig
	HostLMS      HostLMSConfig
	Credentials  CredentialsConfig
	Milestones   MilestonesConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"LEARNPATHS_APP_ENV" default:"dev"`
	Port         string `envconfig:"LEARNPATHS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"LEARNPATHS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LEARNPATHS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LEARNPATHS_DB_DSN"`
	Driver string `envconfig:"LEARNPATHS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"LEARNPATHS_DB_HOST"`
	Port     int    `envconfig:"LEARNPATHS_DB_PORT" default:"5432"`
	User     string `envconfig:"LEARNPATHS_DB_USER"`
	Password string `envconfig:"LEARNPATHS_DB_PASSWORD"`
	Name     string `envconfig:"LEARNPATHS_DB_NAME"`
	SSLMode  string `envconfig:"LEARNPATHS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LEARNPATHS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LEARNPATHS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LEARNPATHS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LEARNPATHS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either LEARNPATHS_DB_DSN or host/user/name must be set")
	}
	dsn := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	query := dsn.Query()
	query.Set("sslmode", d.SSLMode)
	dsn.RawQuery = query.Encode()
	d.DSN = dsn.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"LEARNPATHS_REDIS_URL"`
	Address      string        `envconfig:"LEARNPATHS_REDIS_ADDR"`
	Password     string        `envconfig:"LEARNPATHS_REDIS_PASSWORD"`
	DB           int           `envconfig:"LEARNPATHS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LEARNPATHS_REDIS_POOL_SIZE" default:"10"`
	DialTimeout  time.Duration `envconfig:"LEARNPATHS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LEARNPATHS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LEARNPATHS_REDIS_WRITE_TIMEOUT" default:"5s"`
	GradeTTL     time.Duration `envconfig:"LEARNPATHS_REDIS_GRADE_TTL" default:"5m"`
}

// Enabled reports whether a redis endpoint was configured at all.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type GCPConfig struct {
	ProjectID string `envconfig:"LEARNPATHS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	EnrollmentsTopic        string `envconfig:"LEARNPATHS_PUBSUB_ENROLLMENTS_TOPIC" default:"learning-path-enrollments"`
	EnrollmentsSubscription string `envconfig:"LEARNPATHS_PUBSUB_ENROLLMENTS_SUBSCRIPTION"`
}

type DispatchConfig struct {
	// Mode selects how post-commit work is executed: "inline" runs the
	// callbacks synchronously after the transaction commits, "outbox"
	// persists an event in the same transaction for the worker to publish.
	Mode string `envconfig:"LEARNPATHS_DISPATCH_MODE" default:"inline"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"LEARNPATHS_OUTBOX_BATCH_SIZE" default:"50"`
	PollInterval   time.Duration `envconfig:"LEARNPATHS_OUTBOX_POLL_INTERVAL" default:"500ms"`
	PublishTimeout time.Duration `envconfig:"LEARNPATHS_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
	MaxAttempts    int           `envconfig:"LEARNPATHS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type HostLMSConfig struct {
	BaseURL string        `envconfig:"LEARNPATHS_HOST_BASE_URL"`
	Token   string        `envconfig:"LEARNPATHS_HOST_TOKEN"`
	Timeout time.Duration `envconfig:"LEARNPATHS_HOST_TIMEOUT" default:"10s"`
}

type CredentialsConfig struct {
	BaseURL string        `envconfig:"LEARNPATHS_CREDENTIALS_BASE_URL"`
	Token   string        `envconfig:"LEARNPATHS_CREDENTIALS_TOKEN"`
	Timeout time.Duration `envconfig:"LEARNPATHS_CREDENTIALS_TIMEOUT" default:"10s"`
}

type MilestonesConfig struct {
	// MinCompletionPercent is the completion share (0-100) a course needs
	// before its milestone can be fulfilled.
	MinCompletionPercent float64 `envconfig:"LEARNPATHS_MILESTONE_MIN_COMPLETION" default:"95"`
}

type FeatureFlagsConfig struct {
	AutoMigrate         bool `envconfig:"LEARNPATHS_AUTO_MIGRATE" default:"false"`
	SelfUnenrollAllowed bool `envconfig:"LEARNPATHS_ALLOW_SELF_UNENROLLMENT" default:"false"`
}
