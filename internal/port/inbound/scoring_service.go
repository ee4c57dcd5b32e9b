// Package inbound defines the inbound ports (interfaces) for the application layer.
// These ports represent the entry points into the application's core business logic.
package inbound

import (
	"context"

	"signalscore/internal/application/dto"
)

// ScoringService defines the inbound port for the scoring API.
type ScoringService interface {
	CreateJob(ctx context.Context, url string) (*dto.JobResult, error)
	GetJobStatus(ctx context.Context, companyName string) (*dto.JobResult, error)
	ListScores(ctx context.Context) (*dto.ScoreListResponse, error)
}

// HealthService defines the inbound port for health check operations.
type HealthService interface {
	GetHealth(ctx context.Context) (*dto.HealthResponse, error)
}
