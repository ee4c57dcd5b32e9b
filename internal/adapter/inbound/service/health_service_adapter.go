package service

import (
	"context"
	"sync"
	"time"

	"signalscore/internal/application/dto"
	"signalscore/internal/port/inbound"

	"golang.org/x/sync/singleflight"
)

// Configuration constants for health monitoring.
const (
	healthCacheTTL     = 5 * time.Second
	storeHealthTimeout = 2 * time.Second
	natsHealthTimeout  = 1 * time.Second
)

// Pinger is implemented by dependencies that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// cacheEntry represents a cached health check result.
type cacheEntry struct {
	status    dto.DependencyStatus
	timestamp time.Time
}

// HealthServiceAdapter reports the health of the score store and, optionally, NATS.
// A failing store makes the service unhealthy; a failing NATS connection only degrades it.
type HealthServiceAdapter struct {
	store   Pinger
	nats    Pinger
	version string
	now     func() time.Time

	cacheMutex sync.RWMutex
	natsCache  *cacheEntry
	flight     singleflight.Group
}

// NewHealthServiceAdapter creates a HealthServiceAdapter. nats may be nil when NATS is disabled.
func NewHealthServiceAdapter(store Pinger, nats Pinger, version string) inbound.HealthService {
	return &HealthServiceAdapter{
		store:   store,
		nats:    nats,
		version: version,
		now:     time.Now,
	}
}

// GetHealth checks every configured dependency.
func (h *HealthServiceAdapter) GetHealth(ctx context.Context) (*dto.HealthResponse, error) {
	response := &dto.HealthResponse{
		Status:       dto.HealthStatusHealthy,
		Timestamp:    h.now().UTC(),
		Version:      h.version,
		Dependencies: make(map[string]dto.DependencyStatus),
	}

	if h.store != nil {
		status := checkPinger(ctx, h.store, storeHealthTimeout, "Score store unreachable")
		response.Dependencies["store"] = status
		if status.Status != dto.HealthStatusHealthy {
			response.Status = dto.HealthStatusUnhealthy
		}
	}

	if h.nats != nil {
		status := h.natsHealth(ctx)
		response.Dependencies["nats"] = status
		if status.Status != dto.HealthStatusHealthy && response.Status == dto.HealthStatusHealthy {
			response.Status = dto.HealthStatusDegraded
		}
	}

	return response, nil
}

// natsHealth returns the cached NATS status, refreshing it at most once per TTL
// no matter how many requests arrive concurrently.
func (h *HealthServiceAdapter) natsHealth(ctx context.Context) dto.DependencyStatus {
	if status, ok := h.cachedNATSHealth(); ok {
		return status
	}

	result, _, _ := h.flight.Do("nats", func() (interface{}, error) {
		if status, ok := h.cachedNATSHealth(); ok {
			return status, nil
		}
		status := checkPinger(ctx, h.nats, natsHealthTimeout, "NATS connection unavailable")
		h.cacheMutex.Lock()
		h.natsCache = &cacheEntry{status: status, timestamp: h.now()}
		h.cacheMutex.Unlock()
		return status, nil
	})
	return result.(dto.DependencyStatus)
}

func (h *HealthServiceAdapter) cachedNATSHealth() (dto.DependencyStatus, bool) {
	h.cacheMutex.RLock()
	defer h.cacheMutex.RUnlock()

	if h.natsCache == nil || h.now().Sub(h.natsCache.timestamp) > healthCacheTTL {
		return dto.DependencyStatus{}, false
	}
	return h.natsCache.status, true
}

// ClearCache drops the cached NATS status.
func (h *HealthServiceAdapter) ClearCache() {
	h.cacheMutex.Lock()
	defer h.cacheMutex.Unlock()
	h.natsCache = nil
}

func checkPinger(ctx context.Context, p Pinger, timeout time.Duration, message string) dto.DependencyStatus {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		return dto.DependencyStatus{Status: dto.HealthStatusUnhealthy, Message: message + ": " + err.Error()}
	}
	return dto.DependencyStatus{Status: dto.HealthStatusHealthy}
}
