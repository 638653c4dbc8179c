package gamequeue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/jackc/pgx/v5"
	"github.com/riverqueue/river"
)

// TickAdvancer is the part of the game service the clock drives.
type TickAdvancer interface {
	AdvanceTickIfDue(ctx context.Context, now time.Time) (sharedtypes.TickID, bool, error)
}

// ScoreSettler computes and caches the scores of a settled tick.
type ScoreSettler interface {
	SettleTick(ctx context.Context, tick sharedtypes.TickID) error
}

// SettleEnqueuer schedules settlement of a tick.
type SettleEnqueuer func(ctx context.Context, tick sharedtypes.TickID) error

// ClockWorker advances the tick when it is due and schedules settlement of
// the tick that just became final.
type ClockWorker struct {
	river.WorkerDefaults[ClockCheckJob]

	advancer    TickAdvancer
	validWindow int
	logger      *slog.Logger
	now         func() time.Time
	enqueue     SettleEnqueuer
}

// NewClockWorker creates a ClockWorker. When enqueue is nil the worker uses
// the River client found in the job context.
func NewClockWorker(logger *slog.Logger, advancer TickAdvancer, validWindow int, enqueue SettleEnqueuer) *ClockWorker {
	w := &ClockWorker{
		advancer:    advancer,
		validWindow: validWindow,
		logger:      logger,
		now:         time.Now,
		enqueue:     enqueue,
	}
	if w.enqueue == nil {
		w.enqueue = enqueueFromContext
	}
	return w
}

func (w *ClockWorker) Work(ctx context.Context, job *river.Job[ClockCheckJob]) error {
	tick, advanced, err := w.advancer.AdvanceTickIfDue(ctx, w.now())
	if err != nil {
		w.logger.ErrorContext(ctx, "Clock check failed", attr.Int64("job_id", job.ID), attr.Error(err))
		return err
	}
	if !advanced {
		return nil
	}

	settled := sharedtypes.LastSettled(tick, w.validWindow)
	if settled < 1 {
		return nil
	}
	if err := w.enqueue(ctx, settled); err != nil {
		w.logger.WarnContext(ctx, "Failed to enqueue score settlement",
			attr.TickID("tick_id", settled),
			attr.Error(err),
		)
	}
	return nil
}

func (w *ClockWorker) Timeout(*river.Job[ClockCheckJob]) time.Duration { return 30 * time.Second }

func enqueueFromContext(ctx context.Context, tick sharedtypes.TickID) error {
	client, err := river.ClientFromContextSafely[pgx.Tx](ctx)
	if err != nil {
		return fmt.Errorf("no river client in context: %w", err)
	}
	_, err = client.Insert(ctx, ScoreSettleJob{TickID: tick}, settleInsertOpts())
	return err
}

func settleInsertOpts() *river.InsertOpts {
	return &river.InsertOpts{
		Queue:       QueueScoring,
		MaxAttempts: 3,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	}
}

// SettleWorker fills the score cache for one settled tick.
type SettleWorker struct {
	river.WorkerDefaults[ScoreSettleJob]

	settler ScoreSettler
	logger  *slog.Logger
}

// NewSettleWorker creates a SettleWorker.
func NewSettleWorker(logger *slog.Logger, settler ScoreSettler) *SettleWorker {
	return &SettleWorker{settler: settler, logger: logger}
}

func (w *SettleWorker) Work(ctx context.Context, job *river.Job[ScoreSettleJob]) error {
	if err := w.settler.SettleTick(ctx, job.Args.TickID); err != nil {
		w.logger.ErrorContext(ctx, "Score settlement failed",
			attr.TickID("tick_id", job.Args.TickID),
			attr.Int("attempt", job.Attempt),
			attr.Error(err),
		)
		return err
	}
	w.logger.InfoContext(ctx, "Score settled", attr.TickID("tick_id", job.Args.TickID))
	return nil
}
