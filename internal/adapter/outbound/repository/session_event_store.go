package repository

import (
	"context"
	"time"

	"signalscore/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQLSessionEventStore records the latest published event of each acquisition
// session in the acquisition_sessions table. It implements outbound.SessionEventPublisher.
type PostgreSQLSessionEventStore struct {
	pool *pgxpool.Pool
}

// NewPostgreSQLSessionEventStore creates a new session event store.
func NewPostgreSQLSessionEventStore(pool *pgxpool.Pool) *PostgreSQLSessionEventStore {
	return &PostgreSQLSessionEventStore{pool: pool}
}

// PublishSessionEvent upserts the session row described by event.
func (s *PostgreSQLSessionEventStore) PublishSessionEvent(ctx context.Context, event outbound.SessionEvent) error {
	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		return ErrInvalidArgument
	}

	updatedAt, err := time.Parse(time.RFC3339, event.OccurredAt)
	if err != nil {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO acquisition_sessions (
			session_id, query, normalized_url, company_name, status,
			is_timed_out, poll_count, error_message, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (session_id) DO UPDATE SET
			company_name  = EXCLUDED.company_name,
			status        = EXCLUDED.status,
			is_timed_out  = EXCLUDED.is_timed_out,
			poll_count    = EXCLUDED.poll_count,
			error_message = EXCLUDED.error_message,
			updated_at    = EXCLUDED.updated_at`

	qi := GetQueryInterface(ctx, s.pool)
	_, err = qi.Exec(ctx, query,
		sessionID,
		event.Query,
		event.NormalizedURL,
		event.CompanyName,
		event.Status,
		event.IsTimedOut,
		event.PollCount,
		event.ErrorMessage,
		updatedAt,
	)
	return WrapError(err, "record session event")
}
