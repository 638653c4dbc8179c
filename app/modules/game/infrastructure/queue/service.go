package gamequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
)

// Options configures the clock and settlement queues.
type Options struct {
	ClockEnabled  bool
	ClockInterval time.Duration
	ValidWindow   int
}

// Service owns the River client running the game clock and score settlement.
type Service struct {
	client  *river.Client[pgx.Tx]
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.OperationMetrics
}

// NewService creates the River client. River needs pgx, so it gets its own
// pool next to the bun connection.
func NewService(
	ctx context.Context,
	logger *slog.Logger,
	dsn string,
	m metrics.OperationMetrics,
	advancer TickAdvancer,
	settler ScoreSettler,
	opts Options,
) (*Service, error) {
	ctxLogger := logger.With(
		attr.String("operation", "new_game_queue_service"),
		attr.String("component", "river_queue"),
	)

	start := time.Now()
	m.RecordOperationAttempt(ctx, "initialize_service", "river")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, NewClockWorker(ctxLogger, advancer, opts.ValidWindow, nil))
	river.AddWorker(workers, NewSettleWorker(ctxLogger, settler))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Logger: ctxLogger,
		Queues: map[string]river.QueueConfig{
			QueueClock:   {MaxWorkers: 1},
			QueueScoring: {MaxWorkers: 4},
		},
		Workers:      workers,
		PeriodicJobs: periodicJobs(opts),
	})
	if err != nil {
		pool.Close()
		m.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	m.RecordOperationSuccess(ctx, "initialize_service", "river")
	m.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))
	ctxLogger.Info("Game queue service initialized",
		attr.Bool("clock_enabled", opts.ClockEnabled),
		attr.Duration("clock_interval", opts.ClockInterval),
	)

	return &Service{client: riverClient, pool: pool, logger: ctxLogger, metrics: m}, nil
}

func periodicJobs(opts Options) []*river.PeriodicJob {
	if !opts.ClockEnabled {
		return nil
	}
	interval := opts.ClockInterval
	if interval <= 0 {
		interval = time.Second
	}
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(interval),
			func() (river.JobArgs, *river.InsertOpts) {
				return ClockCheckJob{}, &river.InsertOpts{Queue: QueueClock, MaxAttempts: 1}
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start starts working jobs. Only the elected leader enqueues periodic jobs.
func (s *Service) Start(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")
	if err := s.client.Start(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.logger.Info("Game queue service started")
	return nil
}

// Stop drains running jobs and closes the pool.
func (s *Service) Stop(ctx context.Context) error {
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")
	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}
	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.logger.Info("Game queue service stopped")
	return nil
}

// EnqueueSettle schedules settlement of tick outside of a worker.
func (s *Service) EnqueueSettle(ctx context.Context, tick sharedtypes.TickID) error {
	res, err := s.client.Insert(ctx, ScoreSettleJob{TickID: tick}, settleInsertOpts())
	if err != nil {
		return fmt.Errorf("failed to enqueue score settlement: %w", err)
	}
	s.logger.InfoContext(ctx, "Score settlement enqueued",
		attr.TickID("tick_id", tick),
		attr.Int64("job_id", res.Job.ID),
		attr.Bool("duplicate", res.UniqueSkippedAsDuplicate),
	)
	return nil
}

// HealthCheck verifies the queue's database connection.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
