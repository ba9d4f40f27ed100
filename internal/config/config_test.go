package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, ":8080", cfg.Http.Port)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.Ingest.RetryBackoff)
	assert.Equal(t, 15*time.Second, cfg.WS.HeartbeatInterval)
	assert.Equal(t, 3, cfg.WS.MaxMissedHeartbeats)
	// No webhook URL configured means the sender stays off.
	assert.True(t, cfg.Webhook.Disabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", ":9999")
	t.Setenv("STORAGE_BACKEND", BackendMemory)
	t.Setenv("INGEST_MAX_RETRIES", "7")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "5s")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/ops")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Http.Port)
	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, 7, cfg.Ingest.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.WS.HeartbeatInterval)
	assert.False(t, cfg.Webhook.Disabled)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("INGEST_MAX_RETRIES", "many")
	t.Setenv("WS_HEARTBEAT_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Ingest.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.WS.HeartbeatInterval)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}, wantErr: false},
		{name: "port without colon", mutate: func(c *Config) { c.Http.Port = "8080" }, wantErr: true},
		{name: "empty port", mutate: func(c *Config) { c.Http.Port = "" }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Storage.Backend = "sqlite" }, wantErr: true},
		{name: "postgres backend without host", mutate: func(c *Config) { c.Postgres.Host = "" }, wantErr: true},
		{name: "memory backend without host", mutate: func(c *Config) {
			c.Storage.Backend = BackendMemory
			c.Postgres.Host = ""
		}, wantErr: false},
		{name: "negative retries", mutate: func(c *Config) { c.Ingest.MaxRetries = -1 }, wantErr: true},
		{name: "zero heartbeat budget", mutate: func(c *Config) { c.WS.MaxMissedHeartbeats = 0 }, wantErr: true},
		{name: "zero heartbeat interval", mutate: func(c *Config) { c.WS.HeartbeatInterval = 0 }, wantErr: true},
		{name: "negative heartbeat interval", mutate: func(c *Config) { c.WS.HeartbeatInterval = -time.Second }, wantErr: true},
		{name: "zero dispatch attempt timeout", mutate: func(c *Config) { c.Dispatch.AttemptTimeout = 0 }, wantErr: true},
		{name: "zero dispatch backoff", mutate: func(c *Config) { c.Dispatch.RetryBackoff = 0 }, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{
				Http:     HttpConfig{Port: ":8080"},
				Postgres: PostgresConfig{Host: "localhost"},
				Storage:  StorageConfig{Backend: BackendPostgres},
				Dispatch: DispatchConfig{MaxAttempts: 3, AttemptTimeout: 2 * time.Second, RetryBackoff: 50 * time.Millisecond},
				WS:       WSConfig{HeartbeatInterval: 15 * time.Second, MaxMissedHeartbeats: 3},
			}
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_AutoDisablesWebhookWithoutURL(t *testing.T) {
	cfg := &Config{
		Http:     HttpConfig{Port: ":8080"},
		Storage:  StorageConfig{Backend: BackendMemory},
		Dispatch: DispatchConfig{MaxAttempts: 3, AttemptTimeout: 2 * time.Second, RetryBackoff: 50 * time.Millisecond},
		WS:       WSConfig{HeartbeatInterval: 15 * time.Second, MaxMissedHeartbeats: 3},
	}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Webhook.Disabled)
}
