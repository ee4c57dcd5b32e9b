// Package service implements the server side of the scoring API: job submission, delayed
// resolution and score lookups.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/application/dto"
	"signalscore/internal/domain/normalization"
	"signalscore/internal/domain/valueobject"
	"signalscore/internal/port/outbound"

	"github.com/google/uuid"
)

const (
	// MessageAnalysisStarted accompanies a freshly created job.
	MessageAnalysisStarted = "Analysis started. Please check back later."
	// MessageBlockedDomain is the failure reason for domains the service refuses to analyze.
	MessageBlockedDomain = "Careers page could not be retrieved"

	jobIDLength = 12
	saveTimeout = 10 * time.Second
)

// ErrServiceClosed is returned by CreateJob after Close.
var ErrServiceClosed = errors.New("scoring service closed")

// ScoringJobConfig configures a ScoringJobService.
type ScoringJobConfig struct {
	// SimulatedLatency is how long a job stays processing before it resolves.
	SimulatedLatency time.Duration
	// BlockedDomains lists root domains whose jobs always fail.
	BlockedDomains []string
	Catalog        *ScoreCatalog
	Clock          acquisition.Clock
	Logger         logging.ApplicationLogger
}

type scoringJob struct {
	id          string
	companyName string
	careersURL  string
	status      valueobject.JobStatus
	reason      string
	timer       acquisition.Timer
}

// ScoringJobService accepts scoring jobs, resolves them after a delay and serves
// the resulting scores from a ScoreStore.
type ScoringJobService struct {
	store   outbound.ScoreStore
	catalog *ScoreCatalog
	latency time.Duration
	blocked map[string]bool
	clock   acquisition.Clock
	logger  logging.ApplicationLogger

	mu     sync.Mutex
	jobs   map[string]*scoringJob
	closed bool
}

// NewScoringJobService creates a service backed by store.
func NewScoringJobService(store outbound.ScoreStore, cfg ScoringJobConfig) (*ScoringJobService, error) {
	if store == nil {
		return nil, errors.New("score store is required")
	}
	if cfg.SimulatedLatency < 0 {
		return nil, fmt.Errorf("simulated latency cannot be negative: %s", cfg.SimulatedLatency)
	}

	blocked := make(map[string]bool, len(cfg.BlockedDomains))
	for _, domain := range cfg.BlockedDomains {
		if d := strings.ToLower(strings.TrimSpace(domain)); d != "" {
			blocked[d] = true
		}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = acquisition.RealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slogger.WithComponent("scoring-jobs")
	}
	catalog := cfg.Catalog
	if catalog == nil {
		catalog = NewScoreCatalog(nil)
	}

	return &ScoringJobService{
		store:   store,
		catalog: catalog,
		latency: cfg.SimulatedLatency,
		blocked: blocked,
		clock:   clock,
		logger:  logger,
		jobs:    make(map[string]*scoringJob),
	}, nil
}

// CreateJob validates rawURL and either returns the stored score or starts a job.
// Submitting a company whose job is still processing returns that job.
func (s *ScoringJobService) CreateJob(ctx context.Context, rawURL string) (*dto.JobResult, error) {
	careersURL, err := normalization.NormalizeSubmissionURL(rawURL)
	if err != nil {
		return nil, err
	}
	companyName, err := normalization.CompanyNameFromURL(careersURL)
	if err != nil {
		return nil, err
	}

	score, err := s.store.FindByCompanyName(ctx, companyName)
	switch {
	case err == nil:
		score.Status = valueobject.JobStatusCompleted.String()
		return dto.CompletedResult(score), nil
	case !errors.Is(err, outbound.ErrScoreNotFound):
		return nil, fmt.Errorf("failed to look up score for %s: %w", companyName, err)
	}

	key := companyKey(companyName)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}
	if job, ok := s.jobs[key]; ok && job.status == valueobject.JobStatusProcessing {
		return s.processingResult(job), nil
	}

	job := &scoringJob{
		id:          newJobID(),
		companyName: companyName,
		careersURL:  careersURL,
		status:      valueobject.JobStatusProcessing,
	}
	s.jobs[key] = job
	job.timer = s.clock.AfterFunc(s.latency, func() { s.resolve(key, job.id) })

	s.logger.Info(ctx, "Scoring job created", logging.Fields{
		"job_id":       job.id,
		"company_name": companyName,
		"careers_url":  careersURL,
	})

	return s.processingResult(job), nil
}

// GetJobStatus reports the stored score, or the live job, for companyName.
// Unknown companies yield an error matching outbound.ErrJobNotFound.
func (s *ScoringJobService) GetJobStatus(ctx context.Context, companyName string) (*dto.JobResult, error) {
	score, err := s.store.FindByCompanyName(ctx, companyName)
	switch {
	case err == nil:
		score.Status = valueobject.JobStatusCompleted.String()
		return dto.CompletedResult(score), nil
	case !errors.Is(err, outbound.ErrScoreNotFound):
		return nil, fmt.Errorf("failed to look up score for %s: %w", companyName, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[companyKey(companyName)]
	if !ok {
		return nil, fmt.Errorf("%w: Company '%s' not found", outbound.ErrJobNotFound, companyName)
	}
	if job.status == valueobject.JobStatusFailed {
		result := dto.FailedResult(job.companyName, job.reason)
		result.JobID = job.id
		result.CareersURL = job.careersURL
		return result, nil
	}
	return s.processingResult(job), nil
}

// ListScores returns every stored score.
func (s *ScoringJobService) ListScores(ctx context.Context) (*dto.ScoreListResponse, error) {
	scores, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}
	if scores == nil {
		scores = []dto.ScoreResponse{}
	}
	for i := range scores {
		scores[i].Status = valueobject.JobStatusCompleted.String()
	}
	return &dto.ScoreListResponse{Companies: scores, Count: len(scores)}, nil
}

// PendingJobs returns the number of jobs still processing.
func (s *ScoringJobService) PendingJobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, job := range s.jobs {
		if job.status == valueobject.JobStatusProcessing {
			n++
		}
	}
	return n
}

// Close stops every pending job timer. Jobs still processing never resolve.
func (s *ScoringJobService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for _, job := range s.jobs {
		if job.timer != nil {
			job.timer.Stop()
		}
	}
}

func (s *ScoringJobService) processingResult(job *scoringJob) *dto.JobResult {
	result := dto.ProcessingResult(job.id, job.companyName)
	result.CareersURL = job.careersURL
	result.Message = MessageAnalysisStarted
	return result
}

// resolve finishes the job identified by key and id unless it was replaced meanwhile.
func (s *ScoringJobService) resolve(key, id string) {
	s.mu.Lock()
	job, ok := s.jobs[key]
	if !ok || job.id != id || job.status != valueobject.JobStatusProcessing || s.closed {
		s.mu.Unlock()
		return
	}
	companyName, careersURL := job.companyName, job.careersURL
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if domain, ok := normalization.ExtractRootDomain(careersURL); ok && s.blocked[domain] {
		s.fail(ctx, key, id, MessageBlockedDomain)
		return
	}

	score := s.assess(companyName, careersURL)
	if err := s.store.Save(ctx, score); err != nil {
		s.logger.ErrorWithError(ctx, err, "Failed to save score", logging.Fields{"job_id": id, "company_name": companyName})
		s.fail(ctx, key, id, "Failed to save score")
		return
	}

	s.mu.Lock()
	if current, ok := s.jobs[key]; ok && current.id == id {
		delete(s.jobs, key)
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "Scoring job completed", logging.Fields{
		"job_id":       id,
		"company_name": companyName,
		"score":        score.Score,
		"category":     score.Category,
	})
}

func (s *ScoringJobService) fail(ctx context.Context, key, id, reason string) {
	s.mu.Lock()
	if job, ok := s.jobs[key]; ok && job.id == id {
		job.status = valueobject.JobStatusFailed
		job.reason = reason
	}
	s.mu.Unlock()

	s.logger.Warn(ctx, "Scoring job failed", logging.Fields{"job_id": id, "reason": reason})
}

// assess builds the score for a company from the catalog, or an empty no-signal score.
func (s *ScoringJobService) assess(companyName, careersURL string) *dto.ScoreResponse {
	score, ok := s.catalog.Lookup(companyName)
	if !ok {
		score = &dto.ScoreResponse{
			CompanyName: companyName,
			Category:    dto.CategoryNoSignal,
			Evidence:    []string{},
			Sources:     []dto.SourceResponse{},
		}
	}

	score.CompanyName = companyName
	score.CompanyID = nil
	score.Status = valueobject.JobStatusCompleted.String()
	if score.CareersURL == "" {
		score.CareersURL = careersURL
	}
	if score.Category == "" {
		score.Category = dto.CategoryForScore(score.Score)
	}
	score.CategoryLabel = dto.CategoryLabel(score.Category)
	scoredAt := s.clock.Now().UTC()
	score.ScoredAt = &scoredAt
	return score
}

func newJobID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:jobIDLength]
}
