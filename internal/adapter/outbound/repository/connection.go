package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool defaults.
const (
	defaultMaxConnections    = 10
	defaultHealthCheckPeriod = 30 * time.Second
	defaultPingTimeout       = 5 * time.Second
)

// DatabaseConfig represents database connection configuration.
type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MinConnections  int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Validate validates the database configuration.
func (c DatabaseConfig) Validate() error {
	if c.DSN == "" {
		return errors.New("connection string is required")
	}
	if c.MaxConnections < 0 {
		return errors.New("max connections cannot be negative")
	}
	if c.MinConnections < 0 {
		return errors.New("min connections cannot be negative")
	}
	if c.MaxConnections > 0 && c.MinConnections > c.MaxConnections {
		return errors.New("min connections cannot exceed max connections")
	}
	return nil
}

// poolConfig converts c into a pgxpool configuration.
func (c DatabaseConfig) poolConfig() (*pgxpool.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	poolConfig, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConnections
	if c.MaxConnections > 0 {
		poolConfig.MaxConns = int32(c.MaxConnections)
	}
	poolConfig.MinConns = int32(c.MinConnections)
	poolConfig.HealthCheckPeriod = defaultHealthCheckPeriod

	if c.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = c.ConnMaxLifetime
	}
	if c.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = c.ConnMaxIdleTime
	}

	return poolConfig, nil
}

// NewDatabaseConnection creates a connection pool and verifies it with a ping.
func NewDatabaseConnection(ctx context.Context, config DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := config.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if pingErr := pool.Ping(pingCtx); pingErr != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", pingErr)
	}

	return pool, nil
}
