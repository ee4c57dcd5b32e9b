package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"signalscore/internal/domain/valueobject"
)

// Score categories reported by the scoring service.
const (
	CategoryTransformational = "transformational"
	CategoryHigh             = "high"
	CategoryMediumHigh       = "medium_high"
	CategoryMediumLow        = "medium_low"
	CategoryLow              = "low"
	CategoryNoSignal         = "no_signal"
)

var categoryLabels = map[string]string{
	CategoryTransformational: "Transformational",
	CategoryHigh:             "High",
	CategoryMediumHigh:       "Medium-High",
	CategoryMediumLow:        "Medium-Low",
	CategoryLow:              "Low",
	CategoryNoSignal:         "No Signal",
}

// CategoryLabel returns the display label of a score category, or the category itself when unknown.
func CategoryLabel(category string) string {
	if label, ok := categoryLabels[category]; ok {
		return label
	}
	return category
}

// CategoryForScore buckets a 0-100 score into its category.
func CategoryForScore(score float64) string {
	switch {
	case score >= 95:
		return CategoryTransformational
	case score >= 80:
		return CategoryHigh
	case score >= 60:
		return CategoryMediumHigh
	case score >= 30:
		return CategoryMediumLow
	default:
		return CategoryLow
	}
}

// ScoreRequest is the body of POST /api/v1/scores.
type ScoreRequest struct {
	URL string `json:"url" validate:"required"`
}

// SignalResponse holds the raw hiring signals behind a score.
type SignalResponse struct {
	AIKeywords        int                 `json:"ai_keywords" yaml:"ai_keywords"`
	AgenticSignals    int                 `json:"agentic_signals" yaml:"agentic_signals"`
	ToolStack         []string            `json:"tool_stack" yaml:"tool_stack"`
	NonEngAIRoles     int                 `json:"non_eng_ai_roles" yaml:"non_eng_ai_roles"`
	AIInITSignals     int                 `json:"ai_in_it_signals" yaml:"ai_in_it_signals"`
	HasAIPlatformTeam bool                `json:"has_ai_platform_team" yaml:"has_ai_platform_team"`
	JobsAnalyzed      int                 `json:"jobs_analyzed" yaml:"jobs_analyzed"`
	MarketingOnly     bool                `json:"marketing_only" yaml:"marketing_only"`
	SourceAttribution map[string][]string `json:"source_attribution" yaml:"source_attribution"`
	ConfidenceScore   float64             `json:"confidence_score" yaml:"confidence_score"`
	NewsSourcesFound  int                 `json:"news_sources_found" yaml:"news_sources_found"`
}

// ComponentScoresResponse breaks a score down into its weighted components.
type ComponentScoresResponse struct {
	AIKeywords     float64 `json:"ai_keywords" yaml:"ai_keywords"`
	AgenticSignals float64 `json:"agentic_signals" yaml:"agentic_signals"`
	ToolStack      float64 `json:"tool_stack" yaml:"tool_stack"`
	NonEngAI       float64 `json:"non_eng_ai" yaml:"non_eng_ai"`
	AIInIT         float64 `json:"ai_in_it" yaml:"ai_in_it"`
}

// SourceResponse is a page the score was derived from.
type SourceResponse struct {
	URL        string `json:"url" yaml:"url"`
	SourceType string `json:"source_type" yaml:"source_type"`
}

// ScoreResponse is a completed AI readiness assessment.
type ScoreResponse struct {
	Status          string                  `json:"status" yaml:"-"`
	CompanyID       *int64                  `json:"company_id,omitempty" yaml:"-"`
	CompanyName     string                  `json:"company_name" yaml:"company_name"`
	CareersURL      string                  `json:"careers_url,omitempty" yaml:"careers_url"`
	Score           float64                 `json:"score" yaml:"score"`
	Category        string                  `json:"category" yaml:"category"`
	CategoryLabel   string                  `json:"category_label" yaml:"category_label"`
	Signals         SignalResponse          `json:"signals" yaml:"signals"`
	ComponentScores ComponentScoresResponse `json:"component_scores" yaml:"component_scores"`
	Evidence        []string                `json:"evidence" yaml:"evidence"`
	Sources         []SourceResponse        `json:"sources" yaml:"sources"`
	ScoredAt        *time.Time              `json:"scored_at,omitempty" yaml:"scored_at"`
}

// ScoringStatusResponse is returned while a job is processing or after it failed.
type ScoringStatusResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message,omitempty"`
	JobID       string `json:"job_id,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	CareersURL  string `json:"careers_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ScoreListResponse is the body of GET /api/v1/scores.
type ScoreListResponse struct {
	Companies []ScoreResponse `json:"companies"`
	Count     int             `json:"count"`
}

// Company is the record presented for a completed assessment.
type Company struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
	URL    string `json:"url"`
}

// JobResult is the outcome of a job submission or status query.
// Score is set only for completed jobs and Reason only for failed ones.
type JobResult struct {
	Status      valueobject.JobStatus `json:"status"`
	JobID       string                `json:"job_id,omitempty"`
	CompanyName string                `json:"company_name,omitempty"`
	CareersURL  string                `json:"careers_url,omitempty"`
	Message     string                `json:"message,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	Score       *ScoreResponse        `json:"score,omitempty"`
}

// ProcessingResult builds a JobResult for a job that is still running.
func ProcessingResult(jobID, companyName string) *JobResult {
	return &JobResult{Status: valueobject.JobStatusProcessing, JobID: jobID, CompanyName: companyName}
}

// CompletedResult builds a JobResult carrying a finished score.
func CompletedResult(score *ScoreResponse) *JobResult {
	return &JobResult{
		Status:      valueobject.JobStatusCompleted,
		CompanyName: score.CompanyName,
		CareersURL:  score.CareersURL,
		Score:       score,
	}
}

// FailedResult builds a JobResult for a job the service gave up on.
func FailedResult(companyName, reason string) *JobResult {
	return &JobResult{Status: valueobject.JobStatusFailed, CompanyName: companyName, Reason: reason}
}

// ErrMalformedJobResult is returned when a scoring response cannot be interpreted.
var ErrMalformedJobResult = errors.New("malformed scoring response")

// ParseJobResult decodes a scoring service response body into a JobResult.
// Completed responses carry the full score document; anything else is a status document.
func ParseJobResult(data []byte) (*JobResult, error) {
	var probe struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJobResult, err)
	}

	status, err := valueobject.NewJobStatus(probe.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJobResult, err)
	}

	if status == valueobject.JobStatusCompleted {
		var score ScoreResponse
		if err := json.Unmarshal(data, &score); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedJobResult, err)
		}
		return CompletedResult(&score), nil
	}

	var body ScoringStatusResponse
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJobResult, err)
	}

	return &JobResult{
		Status:      status,
		JobID:       body.JobID,
		CompanyName: body.CompanyName,
		CareersURL:  body.CareersURL,
		Message:     body.Message,
		Reason:      body.Error,
	}, nil
}
