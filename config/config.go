package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Custody   CustodyConfig   `mapstructure:"custody"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ChainConfig configures the blockchain bridge adapter.
type ChainConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	SigningSecret  string        `mapstructure:"signing_secret"` // HMAC key for payload content hashes
	MaxAttempts    int           `mapstructure:"max_attempts"`   // submission + confirmation retries
	BaseDelay      time.Duration `mapstructure:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay"`
}

// LedgerConfig holds the fraud and limit parameters of the credit ledger.
type LedgerConfig struct {
	SingleTxCap      int64         `mapstructure:"single_tx_cap"`      // hard cap for mints
	LargeTxThreshold int64         `mapstructure:"large_tx_threshold"` // FLAG threshold
	DailyCap         int64         `mapstructure:"daily_cap"`
	VelocityMax      int           `mapstructure:"velocity_max"` // K transactions per window
	VelocityWindow   time.Duration `mapstructure:"velocity_window"`
	OutlierSigma     float64       `mapstructure:"outlier_sigma"`
	OutlierMinSample int           `mapstructure:"outlier_min_sample"`
	HistoryWindow    int           `mapstructure:"history_window"` // trailing transactions fed to fraud checks
}

// ReconcileConfig controls the cache-vs-chain reconciliation job.
type ReconcileConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	Tolerance int64         `mapstructure:"tolerance"` // smallest-unit mismatch allowed before drift handling
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

// CustodyConfig holds wallet key custody material. MasterKey is the
// process-wide root key, hex-encoded, 32 bytes decoded. It is supplied via
// environment and never persisted alongside wallet data.
type CustodyConfig struct {
	MasterKey string `mapstructure:"master_key"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CCL_ (Campus Credit Ledger).
// Nested keys use underscore: CCL_DATABASE_HOST, CCL_CUSTODY_MASTER_KEY, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "credit_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("chain.base_url", "http://localhost:8545")
	v.SetDefault("chain.request_timeout", "10s")
	v.SetDefault("chain.signing_secret", "")
	v.SetDefault("chain.max_attempts", 5)
	v.SetDefault("chain.base_delay", "500ms")
	v.SetDefault("chain.max_delay", "30s")
	v.SetDefault("ledger.single_tx_cap", 100000)
	v.SetDefault("ledger.large_tx_threshold", 50000)
	v.SetDefault("ledger.daily_cap", 200000)
	v.SetDefault("ledger.velocity_max", 10)
	v.SetDefault("ledger.velocity_window", "5m")
	v.SetDefault("ledger.outlier_sigma", 3.0)
	v.SetDefault("ledger.outlier_min_sample", 5)
	v.SetDefault("ledger.history_window", 50)
	v.SetDefault("reconcile.interval", "15m")
	v.SetDefault("reconcile.tolerance", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "campus-credit-ledger")
	v.SetDefault("custody.master_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CCL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CCL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
