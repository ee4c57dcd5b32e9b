package outbound

import (
	"context"
	"errors"

	"signalscore/internal/application/dto"
)

// ScoringService defines the outbound port to the remote scoring service.
// Implementations return a distinguishable error for unknown companies; callers that
// only care about liveness may treat it like any other transport error.
type ScoringService interface {
	// CreateJob submits a URL for scoring. A cached score is returned as a completed result.
	CreateJob(ctx context.Context, url string) (*dto.JobResult, error)
	// GetJobStatus reports the state of the job identified by companyName.
	GetJobStatus(ctx context.Context, companyName string) (*dto.JobResult, error)
}

// SessionEvent is published when an acquisition session reaches a notable state.
type SessionEvent struct {
	SessionID     string  `json:"session_id"`
	Status        string  `json:"status"`
	Query         string  `json:"query"`
	CompanyName   string  `json:"company_name,omitempty"`
	NormalizedURL string  `json:"normalized_url,omitempty"`
	IsTimedOut    bool    `json:"is_timed_out"`
	PollCount     int     `json:"poll_count"`
	ErrorMessage  string  `json:"error_message,omitempty"`
	Score         float64 `json:"score,omitempty"`
	Category      string  `json:"category,omitempty"`
	OccurredAt    string  `json:"occurred_at"`
}

// SessionEventPublisher defines the outbound port for broadcasting session events.
type SessionEventPublisher interface {
	PublishSessionEvent(ctx context.Context, event SessionEvent) error
}

// ScoreStore defines the outbound port for persisted company scores.
type ScoreStore interface {
	// FindByCompanyName returns ErrScoreNotFound when no score exists.
	FindByCompanyName(ctx context.Context, companyName string) (*dto.ScoreResponse, error)
	FindAll(ctx context.Context) ([]dto.ScoreResponse, error)
	Save(ctx context.Context, score *dto.ScoreResponse) error
	Ping(ctx context.Context) error
}

// ErrScoreNotFound is returned by ScoreStore lookups for unknown companies.
var ErrScoreNotFound = errors.New("score not found")

// ErrJobNotFound is matched (via errors.Is) by ScoringService errors for unknown companies.
var ErrJobNotFound = errors.New("job not found")
