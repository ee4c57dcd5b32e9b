package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"signalscore/internal/adapter/inbound/api"
	inboundservice "signalscore/internal/adapter/inbound/service"
	"signalscore/internal/adapter/outbound/messaging"
	"signalscore/internal/adapter/outbound/repository"
	"signalscore/internal/application/acquisition"
	"signalscore/internal/application/common/slogger"
	"signalscore/internal/application/service"
	"signalscore/internal/config"
	"signalscore/internal/port/inbound"
	"signalscore/internal/port/outbound"
	"signalscore/internal/version"

	"github.com/spf13/cobra"
)

const serviceName = "signalscore"

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "serve",
		Aliases: []string{"api"},
		Short:   "Start the API server",
		Long: `Start the HTTP API server.

The server provides endpoints for:
- Health checks
- Submitting careers URLs for scoring and polling their status
- Listing stored scores
- Websocket acquisition sessions at /ws/sessions

Scores live in memory unless database.url or database.host is set, in which case
pending migrations are applied on startup.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, GetConfig())
		},
	}
}

// dependencies holds the services shared by every request and session.
type dependencies struct {
	store     outbound.ScoreStore
	scoring   *service.ScoringJobService
	health    inbound.HealthService
	publisher outbound.SessionEventPublisher
	metrics   acquisition.Metrics
	polling   acquisition.Config
	closers   []func()
}

// Close releases dependencies in reverse order of creation.
func (d *dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// machineFactory builds one acquisition machine per websocket connection.
func (d *dependencies) machineFactory() api.MachineFactory {
	return func(observer acquisition.Observer) (*acquisition.Machine, error) {
		return acquisition.NewMachine(d.scoring,
			acquisition.WithConfig(d.polling),
			acquisition.WithEventPublisher(d.publisher),
			acquisition.WithMetrics(d.metrics),
			acquisition.WithObserver(observer),
			acquisition.WithLogger(slogger.WithComponent("acquisition")),
		)
	}
}

func buildDependencies(ctx context.Context, cfg *config.Config) (deps *dependencies, err error) {
	logger := slogger.WithComponent("serve")
	deps = &dependencies{
		polling: acquisition.Config{
			PollInterval:  cfg.Acquisition.PollInterval,
			TimeoutBudget: cfg.Acquisition.TimeoutBudget,
		},
	}
	defer func() {
		if err != nil {
			deps.Close()
			deps = nil
		}
	}()

	var publishers messaging.FanoutPublisher

	if cfg.Database.Enabled() {
		pool, err := connectDatabase(ctx, cfg.Database)
		if err != nil {
			return deps, err
		}
		deps.closers = append(deps.closers, pool.Close)

		applied, err := migrateUp(ctx, pool)
		if err != nil {
			return deps, err
		}
		logger.Info(ctx, "Database ready", slogger.Field("migrations_applied", len(applied)))

		deps.store = repository.NewPostgreSQLScoreStore(pool)
		publishers = append(publishers, repository.NewPostgreSQLSessionEventStore(pool))
	} else {
		logger.Info(ctx, "No database configured, keeping scores in memory", nil)
		deps.store = repository.NewMemoryScoreStore()
	}

	// Left untyped nil when NATS is disabled so that health reporting skips it.
	var natsPinger inboundservice.Pinger
	if cfg.NATS.Enabled {
		publisher, err := connectNATS(cfg.NATS)
		if err != nil {
			return deps, err
		}
		deps.closers = append(deps.closers, func() {
			if err := publisher.Disconnect(); err != nil {
				logger.ErrorWithError(context.Background(), err, "Failed to disconnect from NATS", nil)
			}
		})
		publishers = append(publishers, publisher)
		natsPinger = publisher
	}
	deps.publisher = publishers

	catalog, err := service.LoadScoreCatalog(cfg.Scoring.SeedFile)
	if err != nil {
		return deps, err
	}
	logger.Info(ctx, "Score catalog loaded", slogger.Fields2("path", cfg.Scoring.SeedFile, "companies", catalog.Len()))

	deps.scoring, err = service.NewScoringJobService(deps.store, service.ScoringJobConfig{
		SimulatedLatency: cfg.Scoring.SimulatedLatency,
		BlockedDomains:   cfg.Scoring.BlockedDomains,
		Catalog:          catalog,
		Logger:           slogger.WithComponent("scoring"),
	})
	if err != nil {
		return deps, fmt.Errorf("failed to create scoring service: %w", err)
	}
	deps.closers = append(deps.closers, deps.scoring.Close)

	deps.health = inboundservice.NewHealthServiceAdapter(deps.store, natsPinger, version.GetVersion().Version)

	deps.metrics, err = acquisition.NewMetrics(acquisition.MetricsConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetVersion().Version,
	})
	if err != nil {
		return deps, fmt.Errorf("failed to create metrics: %w", err)
	}

	return deps, nil
}

func connectNATS(cfg config.NATSConfig) (*messaging.NATSSessionPublisher, error) {
	publisher, err := messaging.NewNATSSessionPublisher(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid NATS configuration: %w", err)
	}
	if err := publisher.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	if err := publisher.EnsureStream(); err != nil {
		_ = publisher.Disconnect()
		return nil, fmt.Errorf("failed to ensure session stream: %w", err)
	}
	return publisher, nil
}

// runServe serves until ctx is cancelled or the listener fails, then shuts down gracefully.
func runServe(ctx context.Context, cfg *config.Config) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	logger := slogger.WithComponent("serve")

	deps, err := buildDependencies(ctx, cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	server, err := api.NewServerBuilder(cfg).
		WithHealthService(deps.health).
		WithScoringService(deps.scoring).
		WithSessionMachines(deps.machineFactory()).
		WithLogger(slogger.WithComponent("api")).
		WithDefaultMiddleware().
		Build()
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info(ctx, "API server started", slogger.Field("address", server.Address()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info(context.Background(), "Shutdown signal received", nil)
	case serveErr = <-server.Errors():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Join(serveErr, fmt.Errorf("error during server shutdown: %w", err))
	}
	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}

	logger.Info(context.Background(), "API server shut down gracefully", nil)
	return nil
}
