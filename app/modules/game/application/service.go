package gameservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// GameService implements the Service interface.
type GameService struct {
	repo     gamedb.Repository
	bus      eventbus.Publisher
	logger   *slog.Logger
	run      *operation.Runner
	settings Settings
	settler  SettleScheduler
	now      func() time.Time
}

// NewGameService creates a new GameService.
func NewGameService(
	repo gamedb.Repository,
	bus eventbus.Publisher,
	settings Settings,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &GameService{
		repo:     repo,
		bus:      bus,
		logger:   logger,
		run:      operation.NewRunner("GameService", logger, metrics, tracer, db),
		settings: settings,
		now:      time.Now,
	}
}

// Start moves the game from INIT to RUNNING and opens the first tick.
func (s *GameService) Start(ctx context.Context) (sharedtypes.TickID, error) {
	tick, err := operation.Do(s.run, ctx, "Start", "game", func(ctx context.Context, db bun.IDB) (results.OperationResult[*gamedb.Tick, error], error) {
		// The state check and the first tick share the tick lock, so two
		// concurrent starts cannot both see INIT.
		if err := s.repo.LockTicks(ctx, db); err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		state, err := s.currentStateValue(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		if state != sharedtypes.GameStateInit {
			return results.FailureResult[*gamedb.Tick, error](apperrors.Preconditionf("game is %s, start requires INIT", state)), nil
		}
		if _, err := s.repo.AppendState(ctx, db, sharedtypes.GameStateRunning); err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		tick, err := s.repo.CreateNextTick(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		return results.SuccessResult[*gamedb.Tick, error](tick), nil
	})
	if err != nil {
		return 0, err
	}
	s.publishTick(ctx, tick)
	s.scheduleSettle(ctx, tick.ID)
	return tick.ID, nil
}

// AdvanceTick opens the next tick regardless of game state.
func (s *GameService) AdvanceTick(ctx context.Context) (sharedtypes.TickID, error) {
	tick, err := operation.Do(s.run, ctx, "AdvanceTick", "game", func(ctx context.Context, db bun.IDB) (results.OperationResult[*gamedb.Tick, error], error) {
		tick, err := s.nextTick(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		return results.SuccessResult[*gamedb.Tick, error](tick), nil
	})
	if err != nil {
		return 0, err
	}
	s.publishTick(ctx, tick)
	s.scheduleSettle(ctx, tick.ID)
	return tick.ID, nil
}

// AdvanceTickIfDue re-checks the clock under the tick lock so concurrent
// callers advance at most once per elapsed tick.
func (s *GameService) AdvanceTickIfDue(ctx context.Context, now time.Time) (sharedtypes.TickID, bool, error) {
	tick, err := operation.Do(s.run, ctx, "AdvanceTickIfDue", now.UTC().Format(time.RFC3339), func(ctx context.Context, db bun.IDB) (results.OperationResult[*gamedb.Tick, error], error) {
		if err := s.repo.LockTicks(ctx, db); err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		state, err := s.currentStateValue(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		if state != sharedtypes.GameStateRunning {
			return results.OperationResult[*gamedb.Tick, error]{}, nil
		}
		current, err := s.repo.CurrentTick(ctx, db)
		if err != nil {
			if errors.Is(err, gamedb.ErrNoTick) {
				return results.OperationResult[*gamedb.Tick, error]{}, nil
			}
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		seconds, err := s.tickSeconds(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		if remaining(current.CreatedOn, seconds, now) > 0 {
			return results.OperationResult[*gamedb.Tick, error]{}, nil
		}
		tick, err := s.repo.CreateNextTick(ctx, db)
		if err != nil {
			return results.OperationResult[*gamedb.Tick, error]{}, err
		}
		return results.SuccessResult[*gamedb.Tick, error](tick), nil
	})
	if err != nil {
		return 0, false, err
	}
	if tick == nil {
		return 0, false, nil
	}
	s.publishTick(ctx, tick)
	return tick.ID, true, nil
}

func (s *GameService) nextTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	if err := s.repo.LockTicks(ctx, db); err != nil {
		return nil, err
	}
	return s.repo.CreateNextTick(ctx, db)
}

// publishTick runs after commit. Agents poll CurrentState, so a lost
// notification is only logged.
func (s *GameService) publishTick(ctx context.Context, tick *gamedb.Tick) {
	s.logger.InfoContext(ctx, "Tick advanced",
		attr.ExtractCorrelationID(ctx),
		attr.TickID("tick_id", tick.ID),
	)
	payload := TickAdvancedPayload{TickID: tick.ID, CreatedOn: tick.CreatedOn}
	if err := s.bus.Publish(ctx, eventbus.TickAdvancedV1, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish tick advance",
			attr.TickID("tick_id", tick.ID),
			attr.Error(err),
		)
	}
}

// SetSettleScheduler installs the queue that settles ticks opened by Start
// and AdvanceTick. The clock schedules its own ticks from inside its worker.
func (s *GameService) SetSettleScheduler(scheduler SettleScheduler) {
	s.settler = scheduler
}

// scheduleSettle asks for settlement of the tick that became final when
// opened was created. A failed enqueue is logged; ScoreTick fills the cache
// on first read anyway.
func (s *GameService) scheduleSettle(ctx context.Context, opened sharedtypes.TickID) {
	if s.settler == nil {
		return
	}
	settled := sharedtypes.LastSettled(opened, s.settings.ValidWindow)
	if settled < 1 {
		return
	}
	if err := s.settler.EnqueueSettle(ctx, settled); err != nil {
		s.logger.WarnContext(ctx, "Failed to schedule score settlement",
			attr.ExtractCorrelationID(ctx),
			attr.TickID("tick_id", settled),
			attr.Error(err),
		)
	}
}

// SetState records any lifecycle value. Only Start checks the prior state.
func (s *GameService) SetState(ctx context.Context, state sharedtypes.GameState) (int64, error) {
	return operation.Do(s.run, ctx, "SetState", string(state), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		if !state.Valid() {
			return results.FailureResult[int64, error](apperrors.Validationf("unknown game state %q", state)), nil
		}
		row, err := s.repo.AppendState(ctx, db, state)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](row.ID), nil
	})
}

// CurrentTick returns the latest tick.
func (s *GameService) CurrentTick(ctx context.Context) (*gamedb.Tick, error) {
	return operation.Do(s.run, ctx, "CurrentTick", "latest", func(ctx context.Context, db bun.IDB) (results.OperationResult[*gamedb.Tick, error], error) {
		return tickResult(s.repo.CurrentTick(ctx, db))
	})
}

// TickAt returns the latest tick created at or before ts.
func (s *GameService) TickAt(ctx context.Context, ts time.Time) (*gamedb.Tick, error) {
	return operation.Do(s.run, ctx, "TickAt", ts.UTC().Format(time.RFC3339Nano), func(ctx context.Context, db bun.IDB) (results.OperationResult[*gamedb.Tick, error], error) {
		return tickResult(s.repo.TickAt(ctx, db, ts))
	})
}

func tickResult(tick *gamedb.Tick, err error) (results.OperationResult[*gamedb.Tick, error], error) {
	if err != nil {
		if errors.Is(err, gamedb.ErrNoTick) {
			return results.FailureResult[*gamedb.Tick, error](err), nil
		}
		return results.OperationResult[*gamedb.Tick, error]{}, err
	}
	return results.SuccessResult[*gamedb.Tick, error](tick), nil
}

// ListTicks returns every tick in ascending order.
func (s *GameService) ListTicks(ctx context.Context) ([]gamedb.Tick, error) {
	return operation.Do(s.run, ctx, "ListTicks", "all", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]gamedb.Tick, error], error) {
		ticks, err := s.repo.ListTicks(ctx, db)
		if err != nil {
			return results.OperationResult[[]gamedb.Tick, error]{}, err
		}
		return results.SuccessResult[[]gamedb.Tick, error](ticks), nil
	})
}

// CurrentState assembles the polling view from the latest row of every log.
func (s *GameService) CurrentState(ctx context.Context) (*GameStateView, error) {
	return operation.Do(s.run, ctx, "CurrentState", "latest", func(ctx context.Context, db bun.IDB) (results.OperationResult[*GameStateView, error], error) {
		view, err := s.buildView(ctx, db)
		if err != nil {
			return results.OperationResult[*GameStateView, error]{}, err
		}
		return results.SuccessResult[*GameStateView, error](view), nil
	})
}

func (s *GameService) buildView(ctx context.Context, db bun.IDB) (*GameStateView, error) {
	state, err := s.currentStateValue(ctx, db)
	if err != nil {
		return nil, err
	}
	seconds, err := s.tickSeconds(ctx, db)
	if err != nil {
		return nil, err
	}
	view := &GameStateView{
		State:           state,
		TickTimeSeconds: seconds,
		GameStateDelay:  s.settings.DefaultStateDelay,
	}

	public, err := s.repo.LatestPublic(ctx, db)
	switch {
	case err == nil:
		view.IsGameStatePublic = public.IsPublic
	case !errors.Is(err, gamedb.ErrNoSetting):
		return nil, err
	}

	delay, err := s.repo.LatestDelay(ctx, db)
	switch {
	case err == nil:
		view.GameStateDelay = delay.Delay
	case !errors.Is(err, gamedb.ErrNoSetting):
		return nil, err
	}

	current, err := s.repo.CurrentTick(ctx, db)
	switch {
	case err == nil:
		id := current.ID
		createdOn := current.CreatedOn
		left := remaining(current.CreatedOn, seconds, s.now())
		view.Tick = &id
		view.CurrentTickCreatedOn = &createdOn
		view.EstimatedTickTimeRemaining = &left
	case !errors.Is(err, gamedb.ErrNoTick):
		return nil, err
	}
	return view, nil
}

// remaining is max(0, created+tickLength-now) in seconds.
func remaining(created time.Time, tickSeconds int, now time.Time) float64 {
	left := created.Add(time.Duration(tickSeconds) * time.Second).Sub(now).Seconds()
	if left < 0 {
		return 0
	}
	return left
}

func (s *GameService) currentStateValue(ctx context.Context, db bun.IDB) (sharedtypes.GameState, error) {
	row, err := s.repo.LatestState(ctx, db)
	if err != nil {
		if errors.Is(err, gamedb.ErrNoSetting) {
			return sharedtypes.GameStateInit, nil
		}
		return "", err
	}
	return row.State, nil
}

func (s *GameService) tickSeconds(ctx context.Context, db bun.IDB) (int, error) {
	row, err := s.repo.LatestTickTime(ctx, db)
	if err != nil {
		if errors.Is(err, gamedb.ErrNoSetting) {
			return s.settings.DefaultTickSeconds, nil
		}
		return 0, err
	}
	return row.TimeSeconds, nil
}

// SetTickTime appends a new tick length.
func (s *GameService) SetTickTime(ctx context.Context, seconds int) (int64, error) {
	return operation.Do(s.run, ctx, "SetTickTime", fmt.Sprint(seconds), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		if seconds <= 0 {
			return results.FailureResult[int64, error](apperrors.Validationf("tick time must be positive, got %d", seconds)), nil
		}
		row, err := s.repo.AppendTickTime(ctx, db, seconds)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](row.ID), nil
	})
}

// SetGameStatePublic toggles the delayed public game state.
func (s *GameService) SetGameStatePublic(ctx context.Context, public bool) (int64, error) {
	return operation.Do(s.run, ctx, "SetGameStatePublic", fmt.Sprint(public), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		row, err := s.repo.AppendPublic(ctx, db, public)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](row.ID), nil
	})
}

// SetGameStateDelay sets how many ticks the public state lags behind.
func (s *GameService) SetGameStateDelay(ctx context.Context, ticks int) (int64, error) {
	return operation.Do(s.run, ctx, "SetGameStateDelay", fmt.Sprint(ticks), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		if ticks < 0 {
			return results.FailureResult[int64, error](apperrors.Validationf("game state delay must not be negative, got %d", ticks)), nil
		}
		row, err := s.repo.AppendDelay(ctx, db, ticks)
		if err != nil {
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](row.ID), nil
	})
}
