// Package acquisition drives the submit, poll and terminal-state lifecycle of a company
// assessment against the remote scoring service.
//
// A Machine owns exactly one Session at a time. Submitting a new query discards the
// previous session, cancelling its pending poll and its context, before any network call
// is made for the new one. Callbacks that belong to a discarded session are no-ops.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/application/dto"
	"signalscore/internal/domain/normalization"
	"signalscore/internal/domain/valueobject"
	"signalscore/internal/port/outbound"

	"github.com/google/uuid"
)

// Observer is notified with a snapshot after every session change.
// Observers run while the machine is locked and must not call back into it.
type Observer func(Session)

// Option configures a Machine.
type Option func(*Machine)

// WithClock replaces the wall clock used for scheduling polls.
func WithClock(clock Clock) Option {
	return func(m *Machine) { m.clock = clock }
}

// WithConfig overrides the poll interval and timeout budget.
func WithConfig(config Config) Option {
	return func(m *Machine) { m.config = config }
}

// WithLogger sets the logger; the component is forced to "acquisition".
func WithLogger(logger logging.ApplicationLogger) Option {
	return func(m *Machine) { m.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(m *Machine) { m.metrics = metrics }
}

// WithEventPublisher publishes terminal and timeout events for every session.
func WithEventPublisher(publisher outbound.SessionEventPublisher) Option {
	return func(m *Machine) { m.publisher = publisher }
}

// WithObserver registers a callback for session changes.
func WithObserver(observer Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, observer) }
}

// Machine is the acquisition state machine. It is safe for concurrent use.
type Machine struct {
	service   outbound.ScoringService
	clock     Clock
	config    Config
	logger    logging.ApplicationLogger
	metrics   Metrics
	publisher outbound.SessionEventPublisher
	observers []Observer

	mu      sync.Mutex
	current *activeSession
	closed  bool
	changed chan struct{}
}

// activeSession is the mutable record behind a Session. Only the machine's current
// activeSession may be mutated; pointer identity decides whether a callback is stale.
type activeSession struct {
	state      Session
	ctx        context.Context
	cancel     context.CancelFunc
	stopExpiry func() bool
	timer      Timer
	pollSeq    uint64
}

// NewMachine creates an idle Machine that talks to service.
func NewMachine(service outbound.ScoringService, opts ...Option) (*Machine, error) {
	if service == nil {
		return nil, errors.New("scoring service cannot be nil")
	}

	m := &Machine{
		service: service,
		clock:   RealClock(),
		config:  DefaultConfig(),
		metrics: noopMetrics{},
		changed: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := m.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid acquisition config: %w", err)
	}
	if m.logger == nil {
		m.logger = slogger.WithComponent("acquisition")
	} else {
		m.logger = m.logger.WithComponent("acquisition")
	}

	m.current = newIdleSession("", "")
	return m, nil
}

func newIdleSession(query, errorMessage string) *activeSession {
	return &activeSession{
		state: Session{
			ID:           uuid.NewString(),
			Status:       valueobject.SessionStatusIdle,
			Query:        query,
			ErrorMessage: errorMessage,
		},
	}
}

// Snapshot returns a copy of the current session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.state
}

// Submit validates raw and, when valid, starts a new session against the scoring service.
// It blocks until the job creation call returns and reports the session as of that moment;
// polling then continues in the background. Cancelling ctx discards a session that is
// still analyzing.
func (m *Machine) Submit(ctx context.Context, raw string) Session {
	snapshot, create := m.Start(ctx, raw)
	if create == nil {
		return snapshot
	}
	return create()
}

// Start replaces the current session with one for raw and returns its snapshot. For valid
// input it also returns create, which issues the job creation call and reports the session
// once that call returns. Callers that must not block may run create on another goroutine;
// a Start, Submit or Reset made in the meantime supersedes the session, and create then
// leaves the newer one untouched.
func (m *Machine) Start(ctx context.Context, raw string) (snapshot Session, create func() Session) {
	result := normalization.Validate(raw)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.metrics.RecordSubmission(ctx, OutcomeRejected)
		rejected := newIdleSession(raw, ErrMsgMachineClosed).state
		rejected.Err = ErrMachineClosed
		return rejected, nil
	}

	m.discardLocked(ctx)

	if !result.IsValid {
		m.current = newIdleSession(raw, result.Error)
		m.notifyLocked()
		snapshot = m.current.state
		m.mu.Unlock()

		m.metrics.RecordSubmission(ctx, OutcomeInvalid)
		m.logger.Debug(ctx, "Submission rejected by validation", logging.Fields{
			"query": raw,
			"error": result.Error,
		})
		return snapshot, nil
	}

	sess := newIdleSession(raw, "")
	sessCtx := logging.WithSessionID(ctx, sess.state.ID)
	if logging.CorrelationIDFromContext(ctx) == "" {
		sessCtx = logging.WithCorrelationID(sessCtx, sess.state.ID)
	}
	sessCtx, sess.cancel = context.WithCancel(sessCtx)
	sess.ctx = sessCtx

	startedAt := m.clock.Now()
	m.transitionLocked(sess, valueobject.SessionStatusAnalyzing)
	sess.state.NormalizedURL = result.NormalizedURL
	sess.state.Warning = result.Warning
	sess.state.StartedAt = &startedAt

	m.current = sess
	sess.stopExpiry = context.AfterFunc(sessCtx, func() { m.expire(sess) })
	m.notifyLocked()
	snapshot = sess.state
	m.mu.Unlock()

	m.logger.Info(sessCtx, "Analysis submitted", logging.Fields{
		"query":          raw,
		"normalized_url": result.NormalizedURL,
		"warning":        result.Warning,
	})

	return snapshot, func() Session { return m.createJob(sess, raw, result.NormalizedURL) }
}

// createJob asks the scoring service for a job and applies the answer to sess, unless sess
// has been superseded in the meantime.
func (m *Machine) createJob(sess *activeSession, raw, normalizedURL string) Session {
	sessCtx := sess.ctx
	res, err := m.service.CreateJob(sessCtx, normalizedURL)
	if err == nil && res == nil {
		err = ErrEmptyResponse
	}

	m.mu.Lock()
	if m.current != sess {
		snapshot := m.current.state
		m.mu.Unlock()
		return snapshot
	}

	var events []outbound.SessionEvent
	switch {
	case err != nil && sessCtx.Err() != nil:
		// The caller gave up; treat it like a reset.
		m.discardLocked(sessCtx)
		m.current = newIdleSession("", "")
		m.notifyLocked()
	case err != nil:
		m.metrics.RecordSubmission(sessCtx, OutcomeError)
		m.logger.ErrorWithError(sessCtx, err, "Failed to create scoring job", logging.Fields{
			"normalized_url": normalizedURL,
		})
		events = m.failLocked(sess, ErrMsgStartFailed, fmt.Errorf("create job: %w", err))
	case res.Status == valueobject.JobStatusCompleted:
		m.metrics.RecordSubmission(sessCtx, OutcomeCached)
		if res.CompanyName != "" {
			sess.state.CompanyName = res.CompanyName
		}
		events = m.completeLocked(sess, res)
	case res.Status == valueobject.JobStatusFailed:
		m.metrics.RecordSubmission(sessCtx, OutcomeFailed)
		events = m.failLocked(sess, ErrMsgAnalysisFailed, analysisError(res))
	default:
		m.metrics.RecordSubmission(sessCtx, OutcomeProcessing)
		sess.state.CompanyName = res.CompanyName
		if sess.state.CompanyName == "" {
			sess.state.CompanyName = strings.TrimSpace(raw)
		}
		m.scheduleLocked(sess)
		m.notifyLocked()
		m.logger.Info(sessCtx, "Scoring job accepted, polling for status", logging.Fields{
			"company_name":  sess.state.CompanyName,
			"job_id":        res.JobID,
			"poll_interval": m.config.PollInterval.String(),
		})
	}
	snapshot := m.current.state
	m.mu.Unlock()

	m.publish(sessCtx, events)
	return snapshot
}

// Reset discards the current session and returns a fresh idle one.
func (m *Machine) Reset() Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.discardLocked(context.Background())
	m.current = newIdleSession("", "")
	m.notifyLocked()
	return m.current.state
}

// Close tears the machine down. Pending polls are cancelled and later submissions are rejected.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	m.discardLocked(context.Background())
	m.current = newIdleSession("", "")
	m.notifyLocked()
}

// Wait blocks until the current session is no longer analyzing or ctx is done.
func (m *Machine) Wait(ctx context.Context) (Session, error) {
	for {
		m.mu.Lock()
		snapshot := m.current.state
		changed := m.changed
		m.mu.Unlock()

		if snapshot.Status != valueobject.SessionStatusAnalyzing {
			return snapshot, nil
		}

		select {
		case <-ctx.Done():
			return snapshot, ctx.Err()
		case <-changed:
		}
	}
}

// tick runs one scheduled poll for sess. seq identifies the poll handle that fired.
func (m *Machine) tick(sess *activeSession, seq uint64) {
	m.mu.Lock()
	if m.current != sess || sess.timer == nil || sess.pollSeq != seq {
		m.mu.Unlock()
		return
	}
	sess.timer = nil
	sess.state.PollPending = false

	var events []outbound.SessionEvent
	elapsed := sess.state.Elapsed(m.clock.Now())
	if !sess.state.IsTimedOut && elapsed > m.config.TimeoutBudget {
		sess.state.IsTimedOut = true
		m.metrics.RecordTimeout(sess.ctx)
		m.logger.Warn(sess.ctx, "Analysis exceeded timeout budget, still polling", logging.Fields{
			"company_name":   sess.state.CompanyName,
			"elapsed":        elapsed.String(),
			"timeout_budget": m.config.TimeoutBudget.String(),
		})
		events = append(events, m.eventLocked(sess))
	}

	sess.state.PollCount++
	companyName := sess.state.CompanyName
	ctx := sess.ctx
	m.notifyLocked()
	m.mu.Unlock()

	m.publish(ctx, events)

	res, err := m.service.GetJobStatus(ctx, companyName)
	if err == nil && res == nil {
		err = ErrEmptyResponse
	}

	m.mu.Lock()
	if m.current != sess {
		m.mu.Unlock()
		return
	}

	events = nil
	switch {
	case err != nil:
		m.recordPollError(ctx, sess, err)
		m.scheduleLocked(sess)
		m.notifyLocked()
	case res.Status == valueobject.JobStatusCompleted:
		m.metrics.RecordPoll(ctx, PollResultCompleted)
		events = m.completeLocked(sess, res)
	case res.Status == valueobject.JobStatusFailed:
		m.metrics.RecordPoll(ctx, PollResultFailed)
		events = m.failLocked(sess, ErrMsgAnalysisFailed, analysisError(res))
	default:
		m.metrics.RecordPoll(ctx, PollResultProcessing)
		m.scheduleLocked(sess)
		m.notifyLocked()
	}
	m.mu.Unlock()

	m.publish(ctx, events)
}

// recordPollError logs a swallowed transport error. Polling always continues.
func (m *Machine) recordPollError(ctx context.Context, sess *activeSession, err error) {
	fields := logging.Fields{
		"company_name": sess.state.CompanyName,
		"poll_count":   sess.state.PollCount,
	}
	if errors.Is(err, outbound.ErrJobNotFound) {
		m.metrics.RecordPoll(ctx, PollResultNotFound)
		fields["not_found"] = true
		m.logger.Warn(ctx, "Job status not found yet, retrying", fields)
		return
	}
	m.metrics.RecordPoll(ctx, PollResultError)
	m.logger.ErrorWithError(ctx, err, "Job status query failed, retrying", fields)
}

// expire discards sess when its context ends while it is still analyzing.
func (m *Machine) expire(sess *activeSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != sess || sess.state.Status != valueobject.SessionStatusAnalyzing {
		return
	}
	m.discardLocked(context.Background())
	m.current = newIdleSession("", "")
	m.notifyLocked()
}

func (m *Machine) scheduleLocked(sess *activeSession) {
	sess.pollSeq++
	seq := sess.pollSeq
	sess.timer = m.clock.AfterFunc(m.config.PollInterval, func() { m.tick(sess, seq) })
	sess.state.PollPending = true
}

// releaseLocked cancels the poll handle and the context of sess.
func (m *Machine) releaseLocked(sess *activeSession) {
	if sess.timer != nil {
		sess.timer.Stop()
		sess.timer = nil
	}
	sess.state.PollPending = false
	if sess.stopExpiry != nil {
		sess.stopExpiry()
	}
	if sess.cancel != nil {
		sess.cancel()
	}
}

// discardLocked releases the current session. An analyzing session is recorded as discarded.
func (m *Machine) discardLocked(ctx context.Context) {
	sess := m.current
	if sess == nil {
		return
	}
	if sess.state.Status == valueobject.SessionStatusAnalyzing {
		elapsed := sess.state.Elapsed(m.clock.Now())
		m.metrics.RecordSessionDuration(ctx, OutcomeDiscarded, elapsed)
		m.logger.Info(ctx, "Analysis discarded", logging.Fields{
			"session_id":   sess.state.ID,
			"company_name": sess.state.CompanyName,
			"poll_count":   sess.state.PollCount,
		})
	}
	m.releaseLocked(sess)
	m.current = nil
}

func (m *Machine) completeLocked(sess *activeSession, res *dto.JobResult) []outbound.SessionEvent {
	m.releaseLocked(sess)
	m.transitionLocked(sess, valueobject.SessionStatusCompleted)
	sess.state.Score = res.Score
	sess.state.Company = companyFor(sess.state, res.Score)
	m.notifyLocked()

	elapsed := sess.state.Elapsed(m.clock.Now())
	m.metrics.RecordSessionDuration(sess.ctx, OutcomeCompleted, elapsed)
	m.logger.LogPerformance(sess.ctx, "acquisition_session", elapsed, logging.Fields{
		"outcome":      OutcomeCompleted,
		"company_name": sess.state.Company.Name,
		"poll_count":   sess.state.PollCount,
	})
	return []outbound.SessionEvent{m.eventLocked(sess)}
}

func (m *Machine) failLocked(sess *activeSession, message string, cause error) []outbound.SessionEvent {
	m.releaseLocked(sess)
	m.transitionLocked(sess, valueobject.SessionStatusFailed)
	sess.state.ErrorMessage = message
	sess.state.Err = cause
	m.notifyLocked()

	elapsed := sess.state.Elapsed(m.clock.Now())
	m.metrics.RecordSessionDuration(sess.ctx, OutcomeFailed, elapsed)
	m.logger.ErrorWithError(sess.ctx, cause, "Analysis failed", logging.Fields{
		"company_name": sess.state.CompanyName,
		"poll_count":   sess.state.PollCount,
		"elapsed":      elapsed.String(),
	})
	return []outbound.SessionEvent{m.eventLocked(sess)}
}

func (m *Machine) transitionLocked(sess *activeSession, to valueobject.SessionStatus) {
	if !sess.state.Status.CanTransitionTo(to) {
		m.logger.Error(context.Background(), "Unexpected session transition", logging.Fields{
			"session_id": sess.state.ID,
			"from":       sess.state.Status.String(),
			"to":         to.String(),
		})
	}
	sess.state.Status = to
}

// notifyLocked wakes Wait callers and runs observers.
func (m *Machine) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})

	if len(m.observers) == 0 {
		return
	}
	snapshot := m.current.state
	for _, observer := range m.observers {
		observer(snapshot)
	}
}

func (m *Machine) eventLocked(sess *activeSession) outbound.SessionEvent {
	event := outbound.SessionEvent{
		SessionID:     sess.state.ID,
		Status:        sess.state.Status.String(),
		Query:         sess.state.Query,
		CompanyName:   sess.state.CompanyName,
		NormalizedURL: sess.state.NormalizedURL,
		IsTimedOut:    sess.state.IsTimedOut,
		PollCount:     sess.state.PollCount,
		ErrorMessage:  sess.state.ErrorMessage,
		OccurredAt:    m.clock.Now().UTC().Format(time.RFC3339),
	}
	if sess.state.Score != nil {
		event.Score = sess.state.Score.Score
		event.Category = sess.state.Score.Category
	}
	return event
}

// publish sends events outside the machine lock. Failures are logged only.
func (m *Machine) publish(ctx context.Context, events []outbound.SessionEvent) {
	if m.publisher == nil || len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, event := range events {
		if err := m.publisher.PublishSessionEvent(ctx, event); err != nil {
			m.logger.ErrorWithError(ctx, err, "Failed to publish session event", logging.Fields{
				"session_id": event.SessionID,
				"status":     event.Status,
			})
		}
	}
}

func analysisError(res *dto.JobResult) error {
	reason := res.Reason
	if reason == "" {
		reason = res.Message
	}
	if reason == "" {
		return ErrAnalysisFailed
	}
	return fmt.Errorf("%w: %s", ErrAnalysisFailed, reason)
}
