package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"signalscore/internal/application/common/logging"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/config"
	"signalscore/internal/port/inbound"
)

// Server represents the HTTP API server.
type Server struct {
	config     config.APIConfig
	httpServer *http.Server
	handler    http.Handler
	logger     logging.ApplicationLogger
	listener   net.Listener
	isRunning  bool
	mu         sync.RWMutex
	serveErr   chan error
}

// ServerBuilder provides a fluent interface for building Server instances.
type ServerBuilder struct {
	config         *config.Config
	healthService  inbound.HealthService
	scoringService inbound.ScoringService
	machineFactory MachineFactory
	errorHandler   ErrorHandler
	logger         logging.ApplicationLogger
	middleware     []MiddlewareFunc
}

// NewServerBuilder creates a new ServerBuilder.
func NewServerBuilder(config *config.Config) *ServerBuilder {
	return &ServerBuilder{config: config}
}

// WithHealthService sets the health service.
func (b *ServerBuilder) WithHealthService(service inbound.HealthService) *ServerBuilder {
	b.healthService = service
	return b
}

// WithScoringService sets the scoring service.
func (b *ServerBuilder) WithScoringService(service inbound.ScoringService) *ServerBuilder {
	b.scoringService = service
	return b
}

// WithSessionMachines enables the websocket session relay.
func (b *ServerBuilder) WithSessionMachines(factory MachineFactory) *ServerBuilder {
	b.machineFactory = factory
	return b
}

// WithErrorHandler sets the error handler.
func (b *ServerBuilder) WithErrorHandler(handler ErrorHandler) *ServerBuilder {
	b.errorHandler = handler
	return b
}

// WithLogger sets the logger used for request logs.
func (b *ServerBuilder) WithLogger(logger logging.ApplicationLogger) *ServerBuilder {
	b.logger = logger
	return b
}

// WithMiddleware adds middleware to the chain. Middleware runs in the order added.
func (b *ServerBuilder) WithMiddleware(middleware MiddlewareFunc) *ServerBuilder {
	b.middleware = append(b.middleware, middleware)
	return b
}

// WithDefaultMiddleware adds the standard middleware chain.
func (b *ServerBuilder) WithDefaultMiddleware() *ServerBuilder {
	var origins []string
	if b.config != nil {
		origins = b.config.API.AllowedOrigins
	}
	return b.
		WithMiddleware(NewRecoveryMiddleware()).
		WithMiddleware(NewLoggingMiddleware(b.logger)).
		WithMiddleware(NewSecurityMiddleware()).
		WithMiddleware(NewCORSMiddleware(origins))
}

// Build creates the Server instance.
func (b *ServerBuilder) Build() (*Server, error) {
	if err := b.validate(); err != nil {
		return nil, fmt.Errorf("server builder validation failed: %w", err)
	}

	errorHandler := b.errorHandler
	if errorHandler == nil {
		errorHandler = NewDefaultErrorHandler()
	}
	logger := b.logger
	if logger == nil {
		logger = slogger.WithComponent("api")
	}

	var sessions http.Handler
	if b.machineFactory != nil {
		sessions = NewSessionSocketHandler(b.machineFactory, b.config.API.AllowedOrigins)
	}

	handler := newRouter(
		b.middleware,
		NewHealthHandler(b.healthService, errorHandler),
		NewScoreHandler(b.scoringService, errorHandler),
		sessions,
	)

	return &Server{
		config: b.config.API,
		httpServer: &http.Server{
			Addr:              b.config.API.Address(),
			Handler:           handler,
			ReadTimeout:       b.config.API.ReadTimeout,
			ReadHeaderTimeout: b.config.API.ReadTimeout,
			WriteTimeout:      b.config.API.WriteTimeout,
		},
		handler:  handler,
		logger:   logger,
		serveErr: make(chan error, 1),
	}, nil
}

func (b *ServerBuilder) validate() error {
	if b.config == nil {
		return errors.New("config is required")
	}
	if b.healthService == nil {
		return errors.New("health service is required")
	}
	if b.scoringService == nil {
		return errors.New("scoring service is required")
	}
	return nil
}

// NewServer creates an API server with the default middleware chain.
func NewServer(
	cfg *config.Config,
	healthService inbound.HealthService,
	scoringService inbound.ScoringService,
	machineFactory MachineFactory,
) (*Server, error) {
	return NewServerBuilder(cfg).
		WithHealthService(healthService).
		WithScoringService(scoringService).
		WithSessionMachines(machineFactory).
		WithDefaultMiddleware().
		Build()
}

// Handler returns the routed handler, for serving from tests without a listener.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("server is already running")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.isRunning = true

	go func() {
		err := s.httpServer.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorWithError(context.Background(), err, "HTTP server stopped unexpectedly", nil)
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			s.serveErr <- err
		}
	}()

	s.logger.Info(ctx, "HTTP server listening", logging.Fields{"address": listener.Addr().String()})
	return nil
}

// Errors reports a failure of the background serve loop.
func (s *Server) Errors() <-chan error {
	return s.serveErr
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false
	return s.httpServer.Shutdown(ctx)
}

// Address returns the listening address, or the configured one before Start.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// ShutdownTimeout returns the configured graceful shutdown budget.
func (s *Server) ShutdownTimeout() time.Duration {
	return s.config.ShutdownTimeout
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
