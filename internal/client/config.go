package client

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Default configuration values.
const (
	// DefaultAPIURL is the default API server URL.
	DefaultAPIURL = "http://localhost:8080"

	// DefaultTimeout is the default HTTP client timeout.
	DefaultTimeout = 30 * time.Second

	// EnvAPIURL is the environment variable name for the API URL.
	EnvAPIURL = "SIGNALSCORE_CLIENT_API_URL"

	// EnvTimeout is the environment variable name for the timeout duration.
	EnvTimeout = "SIGNALSCORE_CLIENT_TIMEOUT"
)

// Supported URL schemes.
const (
	schemeHTTP  = "http://"
	schemeHTTPS = "https://"
)

// Config holds the client configuration for connecting to the SignalScore API server.
type Config struct {
	// APIURL is the base URL of the API server (e.g., "http://localhost:8080").
	// Must include the scheme (http:// or https://).
	APIURL string

	// Timeout bounds each HTTP request, not a whole analysis.
	Timeout time.Duration
}

// DefaultConfig returns a Config pointing at a local server with a 30 second timeout.
func DefaultConfig() Config {
	return Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}
}

// LoadConfig loads configuration from environment variables, falling back to defaults.
//
// Environment variables:
//   - SIGNALSCORE_CLIENT_API_URL: API server URL (optional, defaults to http://localhost:8080)
//   - SIGNALSCORE_CLIENT_TIMEOUT: Request timeout as a duration string (optional, defaults to 30s)
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	if apiURL := os.Getenv(EnvAPIURL); apiURL != "" {
		cfg.APIURL = apiURL
	}

	if timeoutStr, ok := os.LookupEnv(EnvTimeout); ok {
		if timeoutStr == "" {
			return nil, fmt.Errorf("environment variable %s is set but empty: timeout cannot be empty", EnvTimeout)
		}

		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout duration in %s: %w", EnvTimeout, err)
		}

		cfg.Timeout = timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client configuration from environment: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration and returns an error if any field is invalid.
//
// Validation rules:
//   - APIURL must not be empty
//   - APIURL must start with http:// or https:// and have no trailing slash
//   - Timeout must be positive (greater than zero)
func (c Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("invalid configuration: API URL cannot be empty")
	}

	if !strings.HasPrefix(c.APIURL, schemeHTTP) && !strings.HasPrefix(c.APIURL, schemeHTTPS) {
		return fmt.Errorf("invalid configuration: API URL must have http:// or https:// scheme, got %q", c.APIURL)
	}

	if strings.HasSuffix(c.APIURL, "/") {
		return fmt.Errorf("invalid configuration: API URL must not have a trailing slash, got %q", c.APIURL)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid configuration: timeout must be positive, got %v", c.Timeout)
	}

	return nil
}
