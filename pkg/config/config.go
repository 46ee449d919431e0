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
	Settlement   SettlementConfig
	Reconciler   ReconcilerConfig
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
	Env          string `envconfig:"LOTTO_APP_ENV" required:"true"`
	Port         string `envconfig:"LOTTO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOTTO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOTTO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LOTTO_DB_DSN"`
	Driver string `envconfig:"LOTTO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOTTO_DB_HOST"`
	LegacyPort     int    `envconfig:"LOTTO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOTTO_DB_USER"`
	LegacyPassword string `envconfig:"LOTTO_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOTTO_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOTTO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOTTO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOTTO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOTTO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOTTO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOTTO_REDIS_URL"`
	Address      string        `envconfig:"LOTTO_REDIS_ADDR"`
	Password     string        `envconfig:"LOTTO_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOTTO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOTTO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOTTO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOTTO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOTTO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOTTO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SettlementConfig carries money-movement policy knobs.
type SettlementConfig struct {
	// AgentNegativeFloat permits agent accounts to go below zero on debits.
	// User accounts can never go negative regardless of this flag.
	AgentNegativeFloat bool `envconfig:"LOTTO_AGENT_NEGATIVE_FLOAT" default:"false"`
	// BetPageSize bounds how many pending bets a settlement run loads per batch.
	BetPageSize int `envconfig:"LOTTO_SETTLEMENT_BET_PAGE_SIZE" default:"200"`
}

// ReconcilerConfig drives the background loop that flags stale pending
// transactions and resumes interrupted settlements.
type ReconcilerConfig struct {
	PollInterval time.Duration `envconfig:"LOTTO_RECONCILER_POLL_INTERVAL" default:"1m"`
	PendingAge   time.Duration `envconfig:"LOTTO_RECONCILER_PENDING_AGE" default:"5m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LOTTO_AUTO_MIGRATE" default:"false"`
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
