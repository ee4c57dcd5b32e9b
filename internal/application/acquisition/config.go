package acquisition

import (
	"errors"
	"fmt"
	"time"
)

// Default timings for the submit and poll protocol.
const (
	DefaultPollInterval  = 4000 * time.Millisecond
	DefaultTimeoutBudget = 240000 * time.Millisecond
)

// User-facing messages.
const (
	ErrMsgStartFailed    = "Failed to start analysis"
	ErrMsgAnalysisFailed = "Analysis failed. The site might be blocking our scrapers or is inaccessible."
	ErrMsgMachineClosed  = "acquisition machine is closed"
	TimeoutAdvisory      = "Taking longer than usual. You can wait, or check back later."
)

var (
	// ErrAnalysisFailed marks sessions the scoring service reported as failed.
	ErrAnalysisFailed = errors.New("analysis failed")
	// ErrMachineClosed is recorded on sessions rejected after Close.
	ErrMachineClosed = errors.New(ErrMsgMachineClosed)
	// ErrEmptyResponse is used when the scoring service returns neither a result nor an error.
	ErrEmptyResponse = errors.New("empty response from scoring service")
)

// Config holds the polling parameters of a Machine.
type Config struct {
	PollInterval  time.Duration `mapstructure:"poll_interval" validate:"gt=0"`
	TimeoutBudget time.Duration `mapstructure:"timeout_budget" validate:"gt=0"`
}

// DefaultConfig returns the standard 4s poll interval and 4 minute timeout budget.
func DefaultConfig() Config {
	return Config{
		PollInterval:  DefaultPollInterval,
		TimeoutBudget: DefaultTimeoutBudget,
	}
}

// Validate checks that both durations are positive.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.TimeoutBudget <= 0 {
		return fmt.Errorf("timeout budget must be positive, got %s", c.TimeoutBudget)
	}
	return nil
}
