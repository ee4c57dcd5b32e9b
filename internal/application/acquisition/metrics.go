package acquisition

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

// Metric names for acquisition sessions.
const (
	SubmissionsCounterName       = "signalscore_acquisition_submissions_total"
	PollsCounterName             = "signalscore_acquisition_polls_total"
	TimeoutsCounterName          = "signalscore_acquisition_timeouts_total"
	SessionDurationHistogramName = "signalscore_acquisition_session_duration_seconds"
)

// Attribute keys.
const (
	AttrOutcome = "outcome"
	AttrResult  = "result"
)

// Submission outcomes.
const (
	OutcomeInvalid    = "invalid"
	OutcomeRejected   = "rejected"
	OutcomeProcessing = "processing"
	OutcomeCached     = "cached"
	OutcomeFailed     = "failed"
	OutcomeError      = "error"
	OutcomeCompleted  = "completed"
	OutcomeDiscarded  = "discarded"
)

// Poll results.
const (
	PollResultProcessing = "processing"
	PollResultCompleted  = "completed"
	PollResultFailed     = "failed"
	PollResultNotFound   = "not_found"
	PollResultError      = "error"
)

// Metrics records acquisition activity.
type Metrics interface {
	RecordSubmission(ctx context.Context, outcome string)
	RecordPoll(ctx context.Context, result string)
	RecordTimeout(ctx context.Context)
	RecordSessionDuration(ctx context.Context, outcome string, duration time.Duration)
}

// MetricsConfig identifies the service emitting acquisition metrics.
type MetricsConfig struct {
	ServiceName    string
	ServiceVersion string
}

// OTelMetrics implements Metrics with OpenTelemetry instruments.
type OTelMetrics struct {
	submissions     metric.Int64Counter
	polls           metric.Int64Counter
	timeouts        metric.Int64Counter
	sessionDuration metric.Float64Histogram
}

// NewMetrics creates OTelMetrics backed by a private meter provider with a manual reader.
func NewMetrics(config MetricsConfig) (*OTelMetrics, error) {
	if config.ServiceName == "" {
		return nil, errors.New("service name cannot be empty")
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", config.ServiceName),
			attribute.String("service.version", config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewManualReader()),
	)

	return NewMetricsWithProvider(provider)
}

// NewMetricsWithProvider creates OTelMetrics using the given meter provider.
func NewMetricsWithProvider(provider metric.MeterProvider) (*OTelMetrics, error) {
	if provider == nil {
		return nil, errors.New("meter provider cannot be nil")
	}

	meter := provider.Meter("signalscore/acquisition")

	submissions, err := meter.Int64Counter(SubmissionsCounterName,
		metric.WithDescription("Total number of acquisition submissions by outcome"),
	)
	if err != nil {
		return nil, err
	}

	polls, err := meter.Int64Counter(PollsCounterName,
		metric.WithDescription("Total number of job status polls by result"),
	)
	if err != nil {
		return nil, err
	}

	timeouts, err := meter.Int64Counter(TimeoutsCounterName,
		metric.WithDescription("Total number of sessions that exceeded the timeout budget"),
	)
	if err != nil {
		return nil, err
	}

	sessionDuration, err := meter.Float64Histogram(SessionDurationHistogramName,
		metric.WithDescription("Duration of acquisition sessions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelMetrics{
		submissions:     submissions,
		polls:           polls,
		timeouts:        timeouts,
		sessionDuration: sessionDuration,
	}, nil
}

func (m *OTelMetrics) RecordSubmission(ctx context.Context, outcome string) {
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOutcome, outcome)))
}

func (m *OTelMetrics) RecordPoll(ctx context.Context, result string) {
	m.polls.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrResult, result)))
}

func (m *OTelMetrics) RecordTimeout(ctx context.Context) {
	m.timeouts.Add(ctx, 1)
}

func (m *OTelMetrics) RecordSessionDuration(ctx context.Context, outcome string, duration time.Duration) {
	m.sessionDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String(AttrOutcome, outcome)),
	)
}

type noopMetrics struct{}

func (noopMetrics) RecordSubmission(context.Context, string)                     {}
func (noopMetrics) RecordPoll(context.Context, string)                           {}
func (noopMetrics) RecordTimeout(context.Context)                                {}
func (noopMetrics) RecordSessionDuration(context.Context, string, time.Duration) {}
