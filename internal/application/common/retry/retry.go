// Package retry retries transient failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"strings"
	"time"

	"signalscore/internal/application/common/slogger"
)

// Config defines retry behavior.
type Config struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        bool
}

// DefaultConfig returns the policy used when connecting to dependencies on startup.
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// Operation is a unit of work that may be retried.
type Operation func(ctx context.Context) error

// Checker classifies errors as retryable.
type Checker interface {
	IsRetryable(err error) bool
}

// Executor runs operations with retry logic.
type Executor struct {
	config  Config
	checker Checker
	name    string
}

// NewExecutor creates an executor that retries the transient errors recognised by
// TransientChecker. name identifies the operation in logs.
func NewExecutor(name string, config Config) *Executor {
	return NewExecutorWithChecker(name, config, TransientChecker{})
}

// NewExecutorWithChecker creates an executor with custom error classification.
func NewExecutorWithChecker(name string, config Config, checker Checker) *Executor {
	if checker == nil {
		checker = TransientChecker{}
	}
	if config.BackoffFactor < 1 {
		config.BackoffFactor = 1
	}
	return &Executor{config: config, checker: checker, name: name}
}

// Execute runs operation until it succeeds, fails with a non-retryable error, exhausts
// MaxRetries, or ctx is done.
func (e *Executor) Execute(ctx context.Context, operation Operation) error {
	var lastErr error

	for attempt := 0; attempt <= e.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.Delay(attempt)
			slogger.Debug(ctx, "Retrying operation after delay", slogger.Fields3(
				"operation", e.name,
				"attempt", attempt,
				"delay_ms", delay.Milliseconds(),
			))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := operation(ctx)
		if err == nil {
			if attempt > 0 {
				slogger.Info(ctx, "Operation succeeded after retries", slogger.Fields2(
					"operation", e.name,
					"attempt", attempt+1,
				))
			}
			return nil
		}
		lastErr = err

		if !e.checker.IsRetryable(err) {
			return err
		}

		slogger.Warn(ctx, "Operation failed, will retry", slogger.Fields{
			"operation":   e.name,
			"error":       err.Error(),
			"attempt":     attempt + 1,
			"max_retries": e.config.MaxRetries,
		})
	}

	return fmt.Errorf("%s failed after %d retries: %w", e.name, e.config.MaxRetries, lastErr)
}

// Delay returns the backoff before the given retry attempt (1-based).
func (e *Executor) Delay(attempt int) time.Duration {
	delay := float64(e.config.InitialDelay) * math.Pow(e.config.BackoffFactor, float64(attempt-1))
	if maxDelay := float64(e.config.MaxDelay); maxDelay > 0 && delay > maxDelay {
		delay = maxDelay
	}

	// Up to 25% either way.
	if e.config.Jitter {
		delay += (rand.Float64()*2 - 1) * delay * 0.25
	}
	return time.Duration(delay)
}

// TransientChecker treats network failures and common transient database errors as
// retryable. Context cancellation never is.
type TransientChecker struct{}

// IsRetryable reports whether err looks transient.
func (TransientChecker) IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection refused",
	"connection reset",
	"connection timed out",
	"no route to host",
	"network is unreachable",
	"too many connections",
	"the database system is starting up",
	"no servers available",
	"try again",
}
