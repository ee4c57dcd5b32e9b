package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDefaultViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

// TestLoad_Defaults verifies that the defaults alone form a valid configuration.
// This test ensures the service starts with an in-memory store and NATS disabled.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newDefaultViper())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.API.Address())
	assert.Equal(t, 30*time.Second, cfg.API.ShutdownTimeout)
	assert.Equal(t, 20*time.Second, cfg.Scoring.SimulatedLatency)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, 3, cfg.Database.ConnectRetries)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 4*time.Second, cfg.Acquisition.PollInterval)
	assert.Equal(t, 4*time.Minute, cfg.Acquisition.TimeoutBudget)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestLoad_YAML verifies that YAML values override defaults.
func TestLoad_YAML(t *testing.T) {
	v := newDefaultViper()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(`
api:
  port: "9090"
  allowed_origins: ["https://app.signalscore.dev"]
scoring:
  simulated_latency: 2s
  blocked_domains: [linkedin.com, facebook.com]
  seed_file: configs/pilot_scores.yaml
database:
  url: postgres://signal:secret@db:5432/signalscore
nats:
  enabled: true
  url: nats://nats:4222
acquisition:
  poll_interval: 1s
  timeout_budget: 30s
log:
  level: debug
  format: text
`)))

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.API.Address())
	assert.Equal(t, []string{"https://app.signalscore.dev"}, cfg.API.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Scoring.SimulatedLatency)
	assert.Equal(t, []string{"linkedin.com", "facebook.com"}, cfg.Scoring.BlockedDomains)
	assert.Equal(t, "configs/pilot_scores.yaml", cfg.Scoring.SeedFile)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres://signal:secret@db:5432/signalscore", cfg.Database.DSN())
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, time.Second, cfg.Acquisition.PollInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

// TestDatabaseConfig_DSN verifies DSN construction from discrete fields.
func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "signal", Password: "pw", Name: "signalscore", SSLMode: "disable"}

	assert.True(t, d.Enabled())
	assert.Equal(t, "host=db port=5432 user=signal password=pw dbname=signalscore sslmode=disable", d.DSN())
}

// TestConfig_Validate verifies struct tag and cross-field validation failures.
func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr string
	}{
		{name: "unknown log level", key: "log.level", value: "verbose", wantErr: "Log.Level"},
		{name: "unknown log format", key: "log.format", value: "xml", wantErr: "Log.Format"},
		{name: "non numeric port", key: "api.port", value: "http", wantErr: "API.Port"},
		{name: "zero poll interval", key: "acquisition.poll_interval", value: "0s", wantErr: "Acquisition.PollInterval"},
		{name: "negative latency", key: "scoring.simulated_latency", value: "-1s", wantErr: "Scoring.SimulatedLatency"},
		{name: "budget below interval", key: "acquisition.timeout_budget", value: "1s", wantErr: "timeout_budget"},
		{name: "host without user", key: "database.host", value: "db", wantErr: "database.user"},
		{name: "blank blocked domain", key: "scoring.blocked_domains", value: []string{"a.com", " "}, wantErr: "blocked_domains"},
		{name: "bad sslmode", key: "database.sslmode", value: "sometimes", wantErr: "Database.SSLMode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newDefaultViper()
			v.Set(tt.key, tt.value)

			_, err := Load(v)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestConfig_Validate_NATS verifies that an enabled NATS connection needs a nats:// URL.
func TestConfig_Validate_NATS(t *testing.T) {
	v := newDefaultViper()
	v.Set("nats.enabled", true)
	v.Set("nats.url", "http://nats:4222")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nats://")

	v.Set("nats.test_mode", true)
	_, err = Load(v)
	assert.NoError(t, err, "test mode never connects")
}

// TestNew_PanicsOnInvalidConfig verifies the panicking constructor.
func TestNew_PanicsOnInvalidConfig(t *testing.T) {
	v := newDefaultViper()
	v.Set("log.level", "loud")

	assert.Panics(t, func() { New(v) })
	assert.NotPanics(t, func() { New(newDefaultViper()) })
}
