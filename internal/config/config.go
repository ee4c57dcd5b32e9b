package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds the complete application configuration.
type Config struct {
	API         APIConfig         `mapstructure:"api"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Acquisition AcquisitionConfig `mapstructure:"acquisition"`
	Log         LogConfig         `mapstructure:"log"`
}

// APIConfig holds API server configuration.
type APIConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"             validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
	// AllowedOrigins restricts websocket upgrades. Empty allows same-origin requests only.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Address returns the listen address.
func (a APIConfig) Address() string {
	return net.JoinHostPort(a.Host, a.Port)
}

// ScoringConfig holds the reference scoring service configuration.
type ScoringConfig struct {
	SimulatedLatency time.Duration `mapstructure:"simulated_latency" validate:"gte=0"`
	BlockedDomains   []string      `mapstructure:"blocked_domains"`
	// SeedFile is a YAML catalog of precomputed scores that resolving jobs draw from.
	SeedFile string `mapstructure:"seed_file"`
}

// DatabaseConfig holds database configuration. Scores are kept in memory unless a URL
// or host is configured.
type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"            validate:"gte=0,lte=65535"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Name           string `mapstructure:"name"`
	SSLMode        string `mapstructure:"sslmode"         validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxConnections int    `mapstructure:"max_connections" validate:"gte=0"`
	MinConnections int    `mapstructure:"min_connections" validate:"gte=0"`
	// ConnectRetries is how often startup retries a failed connection before giving up.
	ConnectRetries int `mapstructure:"connect_retries" validate:"gte=0"`
}

// Enabled reports whether a Postgres store is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != "" || d.Host != ""
}

// DSN returns the database connection string. URL takes precedence over the discrete fields.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// NATSConfig holds NATS configuration.
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	MaxReconnects int           `mapstructure:"max_reconnects" validate:"gte=0"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait" validate:"gte=0"`
	// TestMode records events in memory instead of connecting.
	TestMode bool `mapstructure:"test_mode"`
}

// AcquisitionConfig holds the polling parameters of server-side acquisition sessions.
type AcquisitionConfig struct {
	PollInterval  time.Duration `mapstructure:"poll_interval"  validate:"gt=0"`
	TimeoutBudget time.Duration `mapstructure:"timeout_budget" validate:"gt=0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"  validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// New creates a new Config instance from Viper. It panics on invalid configuration.
func New(v *viper.Viper) *Config {
	config, err := Load(v)
	if err != nil {
		panic(err)
	}
	return config
}

// Validate checks struct constraints and the rules that span fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Database.URL == "" && c.Database.Host != "" {
		if c.Database.Name == "" {
			return errors.New("database.name is required when database.host is set")
		}
		if c.Database.User == "" {
			return errors.New("database.user is required when database.host is set")
		}
	}

	if c.NATS.Enabled && !c.NATS.TestMode {
		if c.NATS.URL == "" {
			return errors.New("nats.url is required when nats is enabled")
		}
		if !strings.HasPrefix(c.NATS.URL, "nats://") {
			return errors.New("nats.url must use the nats:// scheme")
		}
	}

	if c.Acquisition.TimeoutBudget < c.Acquisition.PollInterval {
		return errors.New("acquisition.timeout_budget must not be shorter than acquisition.poll_interval")
	}

	for _, domain := range c.Scoring.BlockedDomains {
		if strings.TrimSpace(domain) == "" {
			return errors.New("scoring.blocked_domains cannot contain empty entries")
		}
	}

	return nil
}
