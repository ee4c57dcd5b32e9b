package acquisition_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/dto"
	"signalscore/internal/port/outbound"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeClock fires timers only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	due     time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) acquisition.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, due: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward, running due callbacks in order on the calling goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.due.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].due.Before(due[j].due) })
		next := due[0]
		next.fired = true
		c.now = next.due
		c.mu.Unlock()

		next.f()
	}
}

// Pending counts timers that have neither fired nor been stopped.
func (c *fakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// MockScoringService mocks the remote scoring service.
type MockScoringService struct {
	mock.Mock
}

func (m *MockScoringService) CreateJob(ctx context.Context, url string) (*dto.JobResult, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobResult), args.Error(1)
}

func (m *MockScoringService) GetJobStatus(ctx context.Context, companyName string) (*dto.JobResult, error) {
	args := m.Called(ctx, companyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JobResult), args.Error(1)
}

// MockSessionEventPublisher mocks the session event port.
type MockSessionEventPublisher struct {
	mock.Mock
}

func (m *MockSessionEventPublisher) PublishSessionEvent(ctx context.Context, event outbound.SessionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestMachine(
	t *testing.T,
	svc outbound.ScoringService,
	clock *fakeClock,
	opts ...acquisition.Option,
) *acquisition.Machine {
	t.Helper()
	base := []acquisition.Option{
		acquisition.WithClock(clock),
		acquisition.WithLogger(logging.NewNoopLogger()),
	}
	machine, err := acquisition.NewMachine(svc, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(machine.Close)
	return machine
}

func completedScore(company, careersURL string, score float64) *dto.ScoreResponse {
	return &dto.ScoreResponse{
		Status:      "completed",
		CompanyName: company,
		CareersURL:  careersURL,
		Score:       score,
		Category:    dto.CategoryHigh,
	}
}
