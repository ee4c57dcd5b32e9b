package config

import "github.com/spf13/viper"

// SetDefaults registers the default value of every configuration key.
func SetDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", "8080")
	v.SetDefault("api.read_timeout", "10s")
	v.SetDefault("api.write_timeout", "10s")
	v.SetDefault("api.shutdown_timeout", "30s")
	v.SetDefault("api.allowed_origins", []string{})

	// Scoring defaults
	v.SetDefault("scoring.simulated_latency", "20s")
	v.SetDefault("scoring.blocked_domains", []string{})
	v.SetDefault("scoring.seed_file", "")

	// Database defaults (empty host and url keep scores in memory). Every key needs a
	// default so that AutomaticEnv values are visible to Unmarshal.
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "signalscore")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 0)
	v.SetDefault("database.connect_retries", 3)

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.max_reconnects", 5)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.test_mode", false)

	// Acquisition defaults
	v.SetDefault("acquisition.poll_interval", "4s")
	v.SetDefault("acquisition.timeout_budget", "4m")

	// Logging defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
