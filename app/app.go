package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	analysisservice "github.com/pedrolmn/chess-report/app/modules/analysis/application"
	engineservice "github.com/pedrolmn/chess-report/app/modules/engine/application"
	"github.com/pedrolmn/chess-report/app/modules/ingest"
	reportservice "github.com/pedrolmn/chess-report/app/modules/report/application"
	reportcache "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/cache"
	reporthandlers "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/handlers"
	reportqueue "github.com/pedrolmn/chess-report/app/modules/report/infrastructure/queue"
	"github.com/pedrolmn/chess-report/config"
	"github.com/pedrolmn/chess-report/db/bundb"
	"github.com/pedrolmn/chess-report/internal/eventbus"
	"github.com/pedrolmn/chess-report/internal/observability"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

// App owns every long-lived component of the report service.
type App struct {
	Cfg           *config.Config
	Observability *observability.Observability
	ReportService *reportservice.Service

	db     *bundb.DBService
	bus    eventbus.EventBus
	cache  reportcache.Cache
	queue  reportqueue.QueueService
	server *http.Server
}

// NewApp initializes the application with the necessary services and configuration.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.Init(observability.Config{
		ServiceName:    "chess_report",
		Environment:    cfg.Observability.Environment,
		LogLevel:       cfg.Observability.LogLevel,
		MetricsAddress: cfg.Observability.MetricsAddress,
	})
	logger := obs.Logger

	dbService, err := bundb.NewBunDBService(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database service: %w", err)
	}

	var bus eventbus.EventBus
	if cfg.NATS.URL != "" {
		bus, err = eventbus.NewJetStreamEventBus(cfg.NATS.URL, watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize event bus: %w", err)
		}
	} else {
		logger.Warn("NATS not configured, report events will not be published")
		bus = eventbus.NoOpEventBus{}
	}

	var cache reportcache.Cache
	if cfg.Redis.Addr != "" {
		cache, err = reportcache.NewRedisCache(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize cache: %w", err)
		}
	} else {
		logger.Warn("Redis not configured, report payloads will not be cached")
		cache = reportcache.NoOpCache{}
	}

	lichess := ingest.NewLichessClient(ctx, cfg.Lichess.Token, logger)

	resolver, err := ingest.NewOpeningResolver(cfg.Report.OpeningsPath, cfg.Report.EcoPath)
	if err != nil {
		logger.Warn("Opening resolver unavailable, chess.com openings will be unnamed", attr.Error(err))
	}

	sources := map[string]ingest.Source{
		ingest.PlatformLichess:  lichess,
		ingest.PlatformChessCom: ingest.NewChessComClient(resolver, logger),
	}

	var evaluator *engineservice.Evaluator
	if cfg.Engine.Enabled {
		evaluator = engineservice.NewEvaluator(engineservice.Config{
			Path:           cfg.Engine.Path,
			Depth:          cfg.Engine.Depth,
			MoveTime:       time.Duration(cfg.Engine.MoveTimeMS) * time.Millisecond,
			UseDepth:       cfg.Engine.UseDepth,
			Workers:        cfg.Engine.Workers,
			FallbackCutoff: cfg.Report.FallbackCutoff,
		}, logger, obs.Metrics, obs.Tracer)
	}

	reference, err := analysisservice.LoadReferenceSnapshot(cfg.Report.SnapshotPath)
	if err != nil {
		logger.Warn("Reference snapshot unavailable, comparative insights disabled", attr.Error(err))
	}

	service := reportservice.NewService(
		cfg.Report,
		sources,
		evaluator,
		dbService.ReportDB,
		dbService.GameDB,
		dbService.UserDB,
		cache,
		bus,
		reference,
		logger,
		obs.Metrics,
		obs.Tracer,
	)

	var queue reportqueue.QueueService
	if cfg.Report.QueueEnabled {
		queue, err = reportqueue.NewService(ctx, cfg.Postgres.DSN, logger, obs.Metrics, service)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize report queue: %w", err)
		}
		service.SetQueue(queue)
	} else {
		logger.Info("Report queue disabled, builds run synchronously")
	}

	tokens := reportservice.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.ShareTTL)
	handler := reporthandlers.NewHandler(service, tokens, logger)

	server := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		Cfg:           cfg,
		Observability: obs,
		ReportService: service,
		db:            dbService,
		bus:           bus,
		cache:         cache,
		queue:         queue,
		server:        server,
	}, nil
}

// Run starts the queue workers, the metrics endpoint and the HTTP API, then
// blocks until the context is cancelled or the server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	if app.queue != nil {
		if err := app.queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start report queue: %w", err)
		}
	}

	if err := app.subscribeOutcomeMetrics(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to report events: %w", err)
	}

	go func() {
		if err := app.Observability.Serve(); err != nil {
			logger.Error("Metrics server failed", attr.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", attr.String("address", app.Cfg.HTTP.Address))
		if err := app.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// subscribeOutcomeMetrics counts completed and failed builds seen on the
// event bus, so build outcomes are visible even for jobs run by other
// instances.
func (app *App) subscribeOutcomeMetrics(ctx context.Context) error {
	metrics := app.Observability.Metrics

	if err := app.bus.Subscribe(ctx, eventbus.TopicReportCompleted, func(ctx context.Context, msg *message.Message) error {
		metrics.RecordOperationSuccess(ctx, "report_build_event", "eventbus")
		return nil
	}); err != nil {
		return err
	}
	return app.bus.Subscribe(ctx, eventbus.TopicReportFailed, func(ctx context.Context, msg *message.Message) error {
		metrics.RecordOperationFailure(ctx, "report_build_event", "eventbus")
		return nil
	})
}

// Shutdown stops every component, newest first.
func (app *App) Shutdown(ctx context.Context) {
	logger := app.Observability.Logger

	if err := app.server.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down HTTP server", attr.Error(err))
	}

	if app.queue != nil {
		if err := app.queue.Stop(ctx); err != nil {
			logger.Error("Failed to stop report queue", attr.Error(err))
		}
	}

	if err := app.bus.Close(); err != nil {
		logger.Error("Failed to close event bus", attr.Error(err))
	}

	if err := app.cache.Close(); err != nil {
		logger.Error("Failed to close cache", attr.Error(err))
	}

	if err := app.db.GetDB().Close(); err != nil {
		logger.Error("Failed to close database connection", attr.Error(err))
	}

	if err := app.Observability.Shutdown(ctx); err != nil {
		logger.Error("Failed to shut down observability", attr.Error(err))
	}
}
