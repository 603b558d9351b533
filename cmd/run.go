package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"dkpauction/application"
	"dkpauction/config"
	"dkpauction/database"
	"dkpauction/domain/events"
	"dkpauction/domain/interfaces"
	"dkpauction/infrastructure"
	"dkpauction/infrastructure/observability"
	"dkpauction/transport/httpapi"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the auction service
func Run(ctx context.Context) error {
	cfg := config.Get()
	if err := configureLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}
	log.WithField("environment", cfg.Environment).Info("Starting dkpauction...")

	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Failed to shut down metrics provider")
		}
	}()

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	if err := database.RunMigrationsWithURL(cfg.GetDatabaseURL()); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	localBus := events.NewBus()
	subscribeAuditLog(localBus)

	publisher, natsClient := newEventPublisher(ctx, cfg, localBus, metricsProvider)
	if natsClient != nil {
		defer func() {
			if err := natsClient.Close(); err != nil {
				log.WithError(err).Warn("Failed to close NATS connection")
			}
		}()
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, publisher)

	jobs, err := infrastructure.NewJobScheduler()
	if err != nil {
		return fmt.Errorf("failed to create job scheduler: %w", err)
	}

	scheduler := application.NewSnipeScheduler(jobs)
	engine := application.NewAuctionEngine(uowFactory, scheduler, metricsProvider, nil)

	sweeper := application.NewSettlementSweeper(engine, cfg.SettlementSweepInterval, cfg.SettlementTimeout)
	if err := sweeper.Start(ctx, jobs); err != nil {
		return fmt.Errorf("failed to start settlement sweeper: %w", err)
	}
	jobs.Start()

	armed, err := engine.Rehydrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to rehydrate auction deadlines: %w", err)
	}
	log.WithField("armed", armed).Info("Auction deadlines restored")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := httpapi.NewHandler(engine, func(ctx context.Context) error { return db.Ping(ctx) })
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutting down dkpauction...")
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("http server failed: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("HTTP server did not shut down cleanly")
	}

	// Pending deadlines are rebuilt by Rehydrate on the next start
	engine.Stop()
	if err := jobs.Shutdown(); err != nil {
		log.WithError(err).Warn("Job scheduler did not shut down cleanly")
	}
	localBus.Wait()

	log.Info("Shutdown completed")
	return runErr
}

// newEventPublisher connects to NATS when enabled. Without a broker, events
// still reach in-process subscribers.
func newEventPublisher(
	ctx context.Context,
	cfg *config.Config,
	localBus *events.Bus,
	metrics *observability.MetricsProvider,
) (interfaces.EventPublisher, *infrastructure.NATSClient) {
	if !cfg.NATSEnabled {
		log.Info("NATS disabled, events are delivered in-process only")
		return infrastructure.NewNoopEventPublisher(localBus), nil
	}

	client := infrastructure.NewNATSClient(cfg.NATSServers)
	if err := client.Connect(ctx); err != nil {
		log.WithError(err).Warn("Failed to connect to NATS, events are delivered in-process only")
		return infrastructure.NewNoopEventPublisher(localBus), nil
	}

	mapper := infrastructure.NewEventSubjectMapper()
	if err := infrastructure.EnsureDomainEventStream(client, mapper); err != nil {
		log.WithError(err).Warn("Failed to ensure NATS stream, publishing without persistence")
	}

	return infrastructure.NewNATSEventPublisher(client, mapper, localBus, metrics), client
}
