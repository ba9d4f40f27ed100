package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type Config struct {
	Env      string         `json:"env"`
	Http     HttpConfig     `json:"http"`
	Postgres PostgresConfig `json:"postgres"`
	Redis    RedisConfig    `json:"redis"`
	Storage  StorageConfig  `json:"storage"`
	Ingest   IngestConfig   `json:"ingest"`
	Dispatch DispatchConfig `json:"dispatch"`
	WS       WSConfig       `json:"ws"`
	Webhook  WebhookConfig  `json:"webhook"`
	APIKey   string         `json:"api_key,omitempty"`
}

type HttpConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode"`

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

// StorageConfig selects the incident store backend. The memory backend exists
// for demo deployments and tests; the selection is explicit, never inferred
// from the runtime environment.
type StorageConfig struct {
	Backend string `json:"backend"`
}

type IngestConfig struct {
	MaxRetries   int           `json:"max_retries"`
	RetryBackoff time.Duration `json:"retry_backoff"`
	StoreTimeout time.Duration `json:"store_timeout"`
}

type DispatchConfig struct {
	MaxAttempts    int           `json:"max_attempts"`
	AttemptTimeout time.Duration `json:"attempt_timeout"`
	RetryBackoff   time.Duration `json:"retry_backoff"`
}

type WSConfig struct {
	HeartbeatInterval   time.Duration `json:"heartbeat_interval"`
	MaxMissedHeartbeats int           `json:"max_missed_heartbeats"`
}

type WebhookConfig struct {
	URL      string `json:"url"`
	Disabled bool   `json:"disabled"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		Env: getEnv("ENV", "local"),
		Http: HttpConfig{
			Port:            getEnv("HTTP_PORT", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Database:        getEnv("POSTGRES_DB", "beacon_db"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConns:        int32(getEnvInt("POSTGRES_MAX_CONNS", 20)),
			MinConns:        int32(getEnvInt("POSTGRES_MIN_CONNS", 1)),
			MaxConnLifetime: getEnvDuration("POSTGRES_MAX_CONN_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", BackendPostgres),
		},
		Ingest: IngestConfig{
			MaxRetries:   getEnvInt("INGEST_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("INGEST_RETRY_BACKOFF", 100*time.Millisecond),
			StoreTimeout: getEnvDuration("INGEST_STORE_TIMEOUT", 5*time.Second),
		},
		Dispatch: DispatchConfig{
			MaxAttempts:    getEnvInt("DISPATCH_MAX_ATTEMPTS", 3),
			AttemptTimeout: getEnvDuration("DISPATCH_ATTEMPT_TIMEOUT", 2*time.Second),
			RetryBackoff:   getEnvDuration("DISPATCH_RETRY_BACKOFF", 50*time.Millisecond),
		},
		WS: WSConfig{
			HeartbeatInterval:   getEnvDuration("WS_HEARTBEAT_INTERVAL", 15*time.Second),
			MaxMissedHeartbeats: getEnvInt("WS_MAX_MISSED_HEARTBEATS", 3),
		},
		Webhook: WebhookConfig{
			URL:      getEnv("WEBHOOK_URL", ""),
			Disabled: getEnvBool("WEBHOOK_DISABLED", false),
		},
		APIKey: getEnv("API_KEY", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port == "" || c.Http.Port[0] != ':' {
		return errors.New("HTTP_PORT must start with ':' like ':8080'")
	}
	if c.Storage.Backend != BackendPostgres && c.Storage.Backend != BackendMemory {
		return errors.New("STORAGE_BACKEND must be 'postgres' or 'memory'")
	}
	if c.Storage.Backend == BackendPostgres && c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST required")
	}
	if c.Ingest.MaxRetries < 0 {
		return errors.New("INGEST_MAX_RETRIES must be >= 0")
	}
	if c.Dispatch.AttemptTimeout <= 0 {
		return errors.New("DISPATCH_ATTEMPT_TIMEOUT must be positive")
	}
	if c.Dispatch.RetryBackoff <= 0 {
		return errors.New("DISPATCH_RETRY_BACKOFF must be positive")
	}
	// The heartbeat ticker cannot run on a zero interval.
	if c.WS.HeartbeatInterval <= 0 {
		return errors.New("WS_HEARTBEAT_INTERVAL must be positive")
	}
	if c.WS.MaxMissedHeartbeats < 1 {
		return errors.New("WS_MAX_MISSED_HEARTBEATS must be >= 1")
	}
	if !c.Webhook.Disabled && c.Webhook.URL == "" {
		// No URL means nothing to alert; treat as disabled rather than failing boot.
		c.Webhook.Disabled = true
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
