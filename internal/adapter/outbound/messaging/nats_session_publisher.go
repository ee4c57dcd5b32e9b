package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"signalscore/internal/config"
	"signalscore/internal/domain/valueobject"
	"signalscore/internal/port/outbound"

	"github.com/nats-io/nats.go"
)

const (
	// NATS connection timeout.
	natsConnectionTimeoutSeconds = 5

	// Stream configuration.
	streamMaxAgeHours     = 24
	streamDuplicateWindow = 2 * time.Minute

	// Circuit breaker configuration.
	circuitBreakerMaxFailures  = 3
	circuitBreakerOpenDuration = 30 * time.Second
)

// Stream and subject names for session events.
const (
	SessionStreamName    = "SIGNALSCORE_SESSIONS"
	SessionSubjectPrefix = "signalscore.sessions."
)

// SessionSubject returns the subject an event with the given status is published on.
func SessionSubject(status string) string {
	return SessionSubjectPrefix + status
}

// ConnectionHealthStatus represents the health status of the NATS connection.
type ConnectionHealthStatus struct {
	Connected      bool   `json:"connected"`
	TestMode       bool   `json:"test_mode"`
	LastError      string `json:"last_error,omitempty"`
	Uptime         string `json:"uptime"`
	Reconnects     int    `json:"reconnects"`
	CircuitBreaker string `json:"circuit_breaker"`
}

// MessageMetrics tracks message publishing metrics.
type MessageMetrics struct {
	PublishedCount    int64         `json:"published_count"`
	FailedCount       int64         `json:"failed_count"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastPublishedTime time.Time     `json:"last_published_time"`
}

// RecordedMessage is a message captured in test mode instead of being sent.
type RecordedMessage struct {
	Subject string
	MsgID   string
	Data    []byte
}

// NATSSessionPublisher publishes acquisition session events to NATS JetStream.
// It implements outbound.SessionEventPublisher.
//
// With config.TestMode set the publisher never dials NATS: Connect only marks the
// publisher connected and published messages are kept in memory (see Recorded).
type NATSSessionPublisher struct {
	config      config.NATSConfig
	conn        *nats.Conn
	js          nats.JetStreamContext
	isTestMode  bool
	isConnected bool
	metrics     MessageMetrics
	mutex       sync.RWMutex
	connectedAt time.Time
	reconnects  int
	lastError   error
	recorded    []RecordedMessage
	// Circuit breaker state
	circuitBreakerOpen bool
	lastFailureTime    time.Time
	failureCount       int
}

// NewNATSSessionPublisher validates cfg and creates an unconnected publisher.
func NewNATSSessionPublisher(cfg config.NATSConfig) (*NATSSessionPublisher, error) {
	if !cfg.TestMode {
		if cfg.URL == "" {
			return nil, errors.New("NATS URL cannot be empty")
		}
		if !strings.HasPrefix(cfg.URL, "nats://") {
			return nil, errors.New("invalid NATS URL scheme")
		}
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}

	return &NATSSessionPublisher{
		config:     cfg,
		isTestMode: cfg.TestMode,
	}, nil
}

// Connect establishes the connection to the NATS server and creates the JetStream context.
func (n *NATSSessionPublisher) Connect() error {
	if n.isTestMode {
		n.updateConnectionHealth(true, nil)
		return nil
	}

	opts := []nats.Option{
		nats.Name("signalscore"),
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.Timeout(natsConnectionTimeoutSeconds * time.Second),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			n.mutex.Lock()
			n.reconnects++
			n.mutex.Unlock()
			n.updateConnectionHealth(true, nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = errors.New("connection lost")
			}
			n.updateConnectionHealth(false, err)
		}),
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		n.updateConnectionHealth(false, err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		n.updateConnectionHealth(false, err)
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	n.mutex.Lock()
	n.conn = conn
	n.js = js
	n.mutex.Unlock()
	n.updateConnectionHealth(true, nil)
	return nil
}

// Disconnect drains and closes the NATS connection.
func (n *NATSSessionPublisher) Disconnect() error {
	n.mutex.Lock()
	conn := n.conn
	n.conn = nil
	n.js = nil
	n.isConnected = false
	n.mutex.Unlock()

	if conn != nil {
		if err := conn.Drain(); err != nil {
			conn.Close()
			return fmt.Errorf("failed to drain NATS connection: %w", err)
		}
	}
	return nil
}

// EnsureStream creates the session event stream if it doesn't exist.
func (n *NATSSessionPublisher) EnsureStream() error {
	n.mutex.RLock()
	js := n.js
	connected := n.isConnected
	n.mutex.RUnlock()

	if !connected {
		return errors.New("not connected to NATS server")
	}
	if n.isTestMode {
		return nil
	}

	streamConfig := &nats.StreamConfig{
		Name:       SessionStreamName,
		Subjects:   []string{SessionSubjectPrefix + ">"},
		Storage:    nats.FileStorage,
		Retention:  nats.LimitsPolicy,
		MaxAge:     streamMaxAgeHours * time.Hour,
		Duplicates: streamDuplicateWindow,
		Replicas:   1,
	}

	if _, err := js.AddStream(streamConfig); err != nil {
		if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil
		}
		// Stream exists with a different configuration; keep it.
		if _, infoErr := js.StreamInfo(SessionStreamName); infoErr == nil {
			return nil
		}
		return fmt.Errorf("failed to create stream: %w", err)
	}
	return nil
}

// PublishSessionEvent publishes event on signalscore.sessions.<status>. The message id
// deduplicates redelivery of the same snapshot within the stream's duplicate window.
func (n *NATSSessionPublisher) PublishSessionEvent(ctx context.Context, event outbound.SessionEvent) error {
	start := time.Now()

	select {
	case <-ctx.Done():
		n.updateMetrics(false, time.Since(start))
		return ctx.Err()
	default:
	}

	if err := validateEvent(event); err != nil {
		return err
	}

	if n.isCircuitBreakerOpen() {
		n.updateMetrics(false, time.Since(start))
		return errors.New("circuit breaker open: too many recent failures")
	}

	n.mutex.RLock()
	js := n.js
	connected := n.isConnected
	n.mutex.RUnlock()

	if !connected || (!n.isTestMode && js == nil) {
		n.updateMetrics(false, time.Since(start))
		return errors.New("publish failed: not connected to NATS")
	}

	data, err := json.Marshal(event)
	if err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	subject := SessionSubject(event.Status)
	msgID := messageID(event)

	if n.isTestMode {
		n.mutex.Lock()
		n.recorded = append(n.recorded, RecordedMessage{Subject: subject, MsgID: msgID, Data: data})
		n.mutex.Unlock()
		n.updateMetrics(true, time.Since(start))
		return nil
	}

	if _, err := js.Publish(subject, data, nats.Context(ctx), nats.MsgId(msgID)); err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("publish failed: %w", err)
	}

	n.updateMetrics(true, time.Since(start))
	return nil
}

func validateEvent(event outbound.SessionEvent) error {
	if event.SessionID == "" {
		return errors.New("session ID cannot be empty")
	}
	if _, err := valueobject.NewSessionStatus(event.Status); err != nil {
		return err
	}
	return nil
}

func messageID(event outbound.SessionEvent) string {
	timedOut := "0"
	if event.IsTimedOut {
		timedOut = "1"
	}
	return event.SessionID + "-" + event.Status + "-" + strconv.Itoa(event.PollCount) + "-" + timedOut
}

// Recorded returns the messages captured in test mode.
func (n *NATSSessionPublisher) Recorded() []RecordedMessage {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return append([]RecordedMessage(nil), n.recorded...)
}

// ConnectionHealth returns the current connection health status.
func (n *NATSSessionPublisher) ConnectionHealth() ConnectionHealthStatus {
	n.mutex.RLock()
	defer n.mutex.RUnlock()

	status := ConnectionHealthStatus{
		Connected:      n.isConnected,
		TestMode:       n.isTestMode,
		Reconnects:     n.reconnects,
		Uptime:         "0s",
		CircuitBreaker: "closed",
	}
	if n.isConnected && !n.connectedAt.IsZero() {
		status.Uptime = time.Since(n.connectedAt).Round(time.Second).String()
	}
	if n.lastError != nil {
		status.LastError = n.lastError.Error()
	}
	if n.circuitBreakerOpen {
		status.CircuitBreaker = "open"
	}
	return status
}

// Ping reports an error unless the publisher is connected.
func (n *NATSSessionPublisher) Ping(_ context.Context) error {
	health := n.ConnectionHealth()
	if !health.Connected {
		if health.LastError != "" {
			return fmt.Errorf("NATS disconnected: %s", health.LastError)
		}
		return errors.New("NATS disconnected")
	}
	return nil
}

// Metrics returns current message publishing metrics.
func (n *NATSSessionPublisher) Metrics() MessageMetrics {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.metrics
}

// updateConnectionHealth updates the connection health status.
func (n *NATSSessionPublisher) updateConnectionHealth(connected bool, err error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	n.isConnected = connected
	if err != nil {
		n.lastError = err
	}
	if connected && n.connectedAt.IsZero() {
		n.connectedAt = time.Now()
	}
}

// updateMetrics updates message publishing metrics.
func (n *NATSSessionPublisher) updateMetrics(success bool, latency time.Duration) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if success {
		n.metrics.PublishedCount++
		n.metrics.LastPublishedTime = time.Now()

		// Exponential moving average with alpha = 0.1
		if n.metrics.AverageLatency == 0 {
			n.metrics.AverageLatency = latency
		} else {
			n.metrics.AverageLatency = time.Duration(
				0.9*float64(n.metrics.AverageLatency) + 0.1*float64(latency),
			)
		}
		n.updateCircuitBreaker(true)
		return
	}

	n.metrics.FailedCount++
	n.updateCircuitBreaker(false)
}

// updateCircuitBreaker updates circuit breaker state. Callers hold the mutex.
func (n *NATSSessionPublisher) updateCircuitBreaker(success bool) {
	if success {
		n.failureCount = 0
		n.circuitBreakerOpen = false
		return
	}

	n.failureCount++
	n.lastFailureTime = time.Now()
	if n.failureCount >= circuitBreakerMaxFailures {
		n.circuitBreakerOpen = true
	}
}

// isCircuitBreakerOpen checks if the circuit breaker is open, closing it once the open
// duration has passed since the last failure.
func (n *NATSSessionPublisher) isCircuitBreakerOpen() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.circuitBreakerOpen && time.Since(n.lastFailureTime) > circuitBreakerOpenDuration {
		n.circuitBreakerOpen = false
		n.failureCount = 0
	}
	return n.circuitBreakerOpen
}

// ResetCircuitBreaker resets the circuit breaker state.
func (n *NATSSessionPublisher) ResetCircuitBreaker() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.circuitBreakerOpen = false
	n.failureCount = 0
	n.lastFailureTime = time.Time{}
}
