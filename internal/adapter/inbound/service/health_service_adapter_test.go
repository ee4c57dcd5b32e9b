package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"signalscore/internal/application/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPinger mocks a dependency health probe.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type countingPinger struct {
	calls atomic.Int32
	err   error
}

func (c *countingPinger) Ping(context.Context) error {
	c.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	return c.err
}

// TestHealthServiceAdapter_GetHealth verifies overall status aggregation.
// This test ensures store failures are fatal while NATS failures only degrade the service.
func TestHealthServiceAdapter_GetHealth(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name           string
		storeErr       error
		natsErr        error
		withNATS       bool
		expectedStatus string
	}{
		{name: "store only healthy", expectedStatus: dto.HealthStatusHealthy},
		{name: "store and nats healthy", withNATS: true, expectedStatus: dto.HealthStatusHealthy},
		{name: "nats down", withNATS: true, natsErr: boom, expectedStatus: dto.HealthStatusDegraded},
		{name: "store down", storeErr: boom, expectedStatus: dto.HealthStatusUnhealthy},
		{name: "both down", withNATS: true, storeErr: boom, natsErr: boom, expectedStatus: dto.HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &MockPinger{}
			store.On("Ping", mock.Anything).Return(tt.storeErr)

			var nats Pinger
			if tt.withNATS {
				natsMock := &MockPinger{}
				natsMock.On("Ping", mock.Anything).Return(tt.natsErr)
				nats = natsMock
			}

			health, err := NewHealthServiceAdapter(store, nats, "1.2.3").GetHealth(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, health.Status)
			assert.Equal(t, "1.2.3", health.Version)
			assert.Contains(t, health.Dependencies, "store")
			if tt.withNATS {
				assert.Contains(t, health.Dependencies, "nats")
			} else {
				assert.NotContains(t, health.Dependencies, "nats")
			}
			if tt.storeErr != nil {
				assert.Contains(t, health.Dependencies["store"].Message, "boom")
			}
		})
	}
}

// TestHealthServiceAdapter_NATSCache verifies that NATS is probed once per TTL under concurrency.
func TestHealthServiceAdapter_NATSCache(t *testing.T) {
	nats := &countingPinger{}
	adapter := NewHealthServiceAdapter(nil, nats, "dev").(*HealthServiceAdapter)
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	var clockMu sync.Mutex
	adapter.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = adapter.GetHealth(context.Background())
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), nats.calls.Load())

	clockMu.Lock()
	now = now.Add(healthCacheTTL + time.Second)
	clockMu.Unlock()
	_, err := adapter.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), nats.calls.Load())

	adapter.ClearCache()
	_, err = adapter.GetHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(3), nats.calls.Load())
}
