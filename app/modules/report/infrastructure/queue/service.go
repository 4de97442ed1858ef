package reportqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/pedrolmn/chess-report/internal/observability"
	"github.com/pedrolmn/chess-report/internal/observability/attr"
)

// Builder runs the full report build pipeline for an already-created report.
type Builder interface {
	BuildReport(ctx context.Context, publicID string) error
}

// ReportBuildArgs is the payload for a queued report build.
type ReportBuildArgs struct {
	PublicID string `json:"public_id"`
	Username string `json:"username"`
	Platform string `json:"platform"`
}

// Kind identifies the job type in the river_job table.
func (ReportBuildArgs) Kind() string { return "report_build" }

// ReportBuildWorker executes queued report builds.
type ReportBuildWorker struct {
	river.WorkerDefaults[ReportBuildArgs]
	builder Builder
	logger  *slog.Logger
}

// NewReportBuildWorker creates the worker that drives the build pipeline.
func NewReportBuildWorker(logger *slog.Logger, builder Builder) *ReportBuildWorker {
	return &ReportBuildWorker{builder: builder, logger: logger}
}

// Work runs one report build job.
func (w *ReportBuildWorker) Work(ctx context.Context, job *river.Job[ReportBuildArgs]) error {
	ctxLogger := w.logger.With(
		attr.ReportID(job.Args.PublicID),
		attr.Username(job.Args.Username),
		attr.Int64("job_id", job.ID),
	)
	ctxLogger.Info("Starting report build job")

	if err := w.builder.BuildReport(ctx, job.Args.PublicID); err != nil {
		ctxLogger.Error("Report build job failed", attr.Error(err))
		return fmt.Errorf("report build failed: %w", err)
	}

	ctxLogger.Info("Report build job completed")
	return nil
}

// QueueService defines the contract for report job scheduling.
type QueueService interface {
	EnqueueReportBuild(ctx context.Context, args ReportBuildArgs) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ QueueService = (*Service)(nil)

// Service handles report build scheduling using River.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics observability.Metrics
}

// NewService creates a River-based queue service for report builds.
// River requires pgx, so the service owns its own pool next to the bun one.
func NewService(ctx context.Context, dsn string, logger *slog.Logger, metrics observability.Metrics, builder Builder) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_report_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing report queue service")

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewReportBuildWorker(ctxLogger, builder))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
			"report":           {MaxWorkers: 2},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	service := &Service{
		client:  riverClient,
		pool:    pool,
		logger:  ctxLogger,
		metrics: metrics,
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Report queue service initialized successfully")
	return service, nil
}

// EnqueueReportBuild schedules a report build to run as soon as a worker is free.
func (s *Service) EnqueueReportBuild(ctx context.Context, args ReportBuildArgs) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_report_build", "river")

	ctxLogger := s.logger.With(
		attr.ReportID(args.PublicID),
		attr.Username(args.Username),
	)

	jobResult, err := s.client.Insert(ctx, args, &river.InsertOpts{
		Queue: "report",
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to enqueue report build", attr.Error(err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_report_build", "river")
		return fmt.Errorf("failed to enqueue report build: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_report_build", "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_report_build", "river", time.Since(start))

	ctxLogger.Info("Report build enqueued", attr.Int64("job_id", jobResult.Job.ID))
	return nil
}

// Start starts the River queue service.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting report queue service")
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start River client: %w", err)
	}
	return nil
}

// Stop stops the River queue service and releases its pool.
func (s *Service) Stop(ctx context.Context) error {
	s.logger.Info("Stopping report queue service")
	if err := s.client.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.pool.Close()
	return nil
}
