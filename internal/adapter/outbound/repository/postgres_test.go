package repository

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"testing"
	"time"

	"signalscore/internal/application/dto"
	"signalscore/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ outbound.ScoreStore            = (*PostgreSQLScoreStore)(nil)
	_ outbound.SessionEventPublisher = (*PostgreSQLSessionEventStore)(nil)
)

// testDatabaseURLEnv names the database used by the integration tests in this file.
const testDatabaseURLEnv = "SIGNALSCORE_TEST_DATABASE_URL"

// setupTestPool connects to the test database and applies migrations, or skips the test.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDatabaseURLEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL integration test", testDatabaseURLEnv)
	}

	ctx := context.Background()
	pool, err := NewDatabaseConnection(ctx, DatabaseConfig{DSN: dsn, MaxConnections: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := NewMigrator(pool)
	require.NoError(t, err)
	t.Cleanup(func() { _ = migrator.Close() })
	_, err = migrator.Up(ctx)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, "TRUNCATE company_scores, acquisition_sessions")
	require.NoError(t, err)
	return pool
}

// TestMigrationsFS verifies the embedded migrations are goose-annotated and ordered.
func TestMigrationsFS(t *testing.T) {
	t.Parallel()

	names, err := fs.Glob(MigrationsFS(), "*.sql")
	require.NoError(t, err)
	require.Equal(t, []string{"00001_create_company_scores.sql", "00002_create_session_events.sql"}, names)

	for _, name := range names {
		data, err := fs.ReadFile(MigrationsFS(), name)
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- +goose Up", name)
		assert.Contains(t, string(data), "-- +goose Down", name)
	}
}

// TestDatabaseConfig_Validate verifies pool configuration checks.
func TestDatabaseConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr string
	}{
		{name: "valid", config: DatabaseConfig{DSN: "postgres://localhost/signalscore"}},
		{name: "missing dsn", config: DatabaseConfig{}, wantErr: "connection string is required"},
		{name: "negative max", config: DatabaseConfig{DSN: "x", MaxConnections: -1}, wantErr: "max connections"},
		{
			name:    "min above max",
			config:  DatabaseConfig{DSN: "x", MaxConnections: 2, MinConnections: 3},
			wantErr: "cannot exceed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestDatabaseConfig_PoolConfig verifies pool sizing defaults.
func TestDatabaseConfig_PoolConfig(t *testing.T) {
	t.Parallel()

	cfg, err := DatabaseConfig{DSN: "postgres://signal@localhost:5432/signalscore"}.poolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(defaultMaxConnections), cfg.MaxConns)
	assert.Equal(t, defaultHealthCheckPeriod, cfg.HealthCheckPeriod)

	cfg, err = DatabaseConfig{DSN: "postgres://signal@localhost:5432/signalscore", MaxConnections: 3, MinConnections: 1}.poolConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(3), cfg.MaxConns)
	assert.Equal(t, int32(1), cfg.MinConns)

	_, err = DatabaseConfig{DSN: "postgres://%zz"}.poolConfig()
	assert.Error(t, err)
}

// TestWrapError verifies error classification.
func TestWrapError(t *testing.T) {
	t.Parallel()

	assert.NoError(t, WrapError(nil, "noop"))
	assert.ErrorIs(t, WrapError(pgx.ErrNoRows, "find score"), outbound.ErrScoreNotFound)
	assert.ErrorIs(t, WrapError(&pgconn.PgError{Code: "23505"}, "save score"), ErrConstraintViolation)
	assert.ErrorIs(t, WrapError(&pgconn.PgError{Code: "08006"}, "save score"), ErrConnectionFailed)

	other := errors.New("boom")
	wrapped := WrapError(other, "list scores")
	assert.ErrorIs(t, wrapped, other)
	assert.True(t, strings.HasPrefix(wrapped.Error(), "list scores failed"))
}

// TestScoreDocumentRoundTrip verifies that the row id replaces any id stored in the document.
func TestScoreDocumentRoundTrip(t *testing.T) {
	t.Parallel()

	stale := int64(99)
	doc, err := encodeScoreDocument(&dto.ScoreResponse{CompanyID: &stale, CompanyName: "Stripe", Evidence: []string{"MLOps"}})
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "company_id")

	score, err := decodeScoreDocument(7, doc)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *score.CompanyID)
	assert.Equal(t, []string{"MLOps"}, score.Evidence)

	_, err = decodeScoreDocument(8, []byte("{"))
	assert.Error(t, err)
}

// TestPostgreSQLScoreStore_Integration verifies the store against a real database.
func TestPostgreSQLScoreStore_Integration(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	store := NewPostgreSQLScoreStore(pool)

	require.NoError(t, store.Ping(ctx))

	scoredAt := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	stripe := &dto.ScoreResponse{
		Status: "completed", CompanyName: "Stripe", Score: 81, Category: dto.CategoryHigh, ScoredAt: &scoredAt,
	}
	require.NoError(t, store.SaveAll(ctx, []*dto.ScoreResponse{
		stripe,
		{Status: "completed", CompanyName: "Acme", Score: 12, Category: dto.CategoryLow},
	}))
	require.NotNil(t, stripe.CompanyID)

	found, err := store.FindByCompanyName(ctx, "STRIPE")
	require.NoError(t, err)
	assert.Equal(t, *stripe.CompanyID, *found.CompanyID)
	assert.True(t, scoredAt.Equal(*found.ScoredAt))

	stripe.Score = 85
	require.NoError(t, store.Save(ctx, stripe))

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].CompanyName)
	assert.InDelta(t, 85, all[1].Score, 0.001)

	_, err = store.FindByCompanyName(ctx, "Nobody")
	assert.ErrorIs(t, err, outbound.ErrScoreNotFound)

	err = store.Save(ctx, &dto.ScoreResponse{CompanyName: "Broken", Score: 150})
	assert.ErrorIs(t, err, ErrConstraintViolation)
}

// TestPostgreSQLSessionEventStore_Integration verifies session event upserts.
func TestPostgreSQLSessionEventStore_Integration(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()
	store := NewPostgreSQLSessionEventStore(pool)

	id := uuid.NewString()
	event := outbound.SessionEvent{
		SessionID: id, Status: "analyzing", Query: "target.com", IsTimedOut: true, PollCount: 61,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	require.NoError(t, store.PublishSessionEvent(ctx, event))

	event.Status = "completed"
	event.PollCount = 70
	require.NoError(t, store.PublishSessionEvent(ctx, event))

	var status string
	var polls int
	require.NoError(t, pool.QueryRow(ctx,
		"SELECT status, poll_count FROM acquisition_sessions WHERE session_id = $1", id).Scan(&status, &polls))
	assert.Equal(t, "completed", status)
	assert.Equal(t, 70, polls)

	assert.ErrorIs(t, store.PublishSessionEvent(ctx, outbound.SessionEvent{SessionID: "nope"}), ErrInvalidArgument)
}

// TestMigrator_Integration verifies status and rollback.
func TestMigrator_Integration(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	migrator, err := NewMigrator(pool)
	require.NoError(t, err)
	defer migrator.Close()

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	states, err := migrator.Status(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.True(t, states[0].Applied)

	rolled, err := migrator.Down(ctx)
	require.NoError(t, err)
	require.NotNil(t, rolled)
	assert.Equal(t, int64(2), rolled.Version)

	applied, err := migrator.Up(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, int64(2), applied[0].Version)
}
