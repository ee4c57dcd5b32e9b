package service_test

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/dto"
	"signalscore/internal/port/outbound"

	"github.com/stretchr/testify/mock"
)

// manualClock records scheduled callbacks and runs them on demand.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) acquisition.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// FireAll runs every pending callback on the calling goroutine.
func (c *manualClock) FireAll() {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// Delays returns the delay of every timer scheduled so far.
func (c *manualClock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	delays := make([]time.Duration, 0, len(c.timers))
	for _, t := range c.timers {
		delays = append(delays, t.delay)
	}
	return delays
}

// mapStore is an in-memory ScoreStore keyed by lowercased company name.
type mapStore struct {
	mu     sync.Mutex
	scores map[string]dto.ScoreResponse
}

func newMapStore(seed ...dto.ScoreResponse) *mapStore {
	s := &mapStore{scores: map[string]dto.ScoreResponse{}}
	for _, score := range seed {
		s.scores[strings.ToLower(score.CompanyName)] = score
	}
	return s
}

func (s *mapStore) FindByCompanyName(_ context.Context, companyName string) (*dto.ScoreResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	score, ok := s.scores[strings.ToLower(companyName)]
	if !ok {
		return nil, outbound.ErrScoreNotFound
	}
	return &score, nil
}

func (s *mapStore) FindAll(_ context.Context) ([]dto.ScoreResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]dto.ScoreResponse, 0, len(s.scores))
	for _, score := range s.scores {
		all = append(all, score)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CompanyName < all[j].CompanyName })
	return all, nil
}

func (s *mapStore) Save(_ context.Context, score *dto.ScoreResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[strings.ToLower(score.CompanyName)] = *score
	return nil
}

func (s *mapStore) Ping(context.Context) error { return nil }

// MockScoreStore mocks the score persistence port.
type MockScoreStore struct {
	mock.Mock
}

func (m *MockScoreStore) FindByCompanyName(ctx context.Context, companyName string) (*dto.ScoreResponse, error) {
	args := m.Called(ctx, companyName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ScoreResponse), args.Error(1)
}

func (m *MockScoreStore) FindAll(ctx context.Context) ([]dto.ScoreResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dto.ScoreResponse), args.Error(1)
}

func (m *MockScoreStore) Save(ctx context.Context, score *dto.ScoreResponse) error {
	args := m.Called(ctx, score)
	return args.Error(0)
}

func (m *MockScoreStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
