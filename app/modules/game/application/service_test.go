package gameservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

var epoch = time.Date(2026, 8, 7, 17, 0, 0, 0, time.UTC)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestService(t *testing.T) (*GameService, *FakeGameRepo, *FakePublisher, *clock) {
	t.Helper()
	c := &clock{t: epoch}
	repo := NewFakeGameRepo(c.Now)
	pub := &FakePublisher{}
	svc := NewGameService(repo, pub, Settings{DefaultTickSeconds: 600, DefaultStateDelay: 2},
		slog.Default(), metrics.NewNoop(), noop.NewTracerProvider().Tracer("test"), nil)
	svc.now = c.Now
	return svc, repo, pub, c
}

func TestGameService_Start(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*FakeGameRepo)
		wantTick  sharedtypes.TickID
		wantErr   error
		wantTrace []string
	}{
		{
			name:      "fresh game starts at tick one",
			wantTick:  1,
			wantTrace: []string{"LockTicks", "LatestState", "AppendState", "CreateNextTick"},
		},
		{
			name: "explicit INIT row",
			setup: func(r *FakeGameRepo) {
				r.states = []gamedb.GameStateRow{{ID: 1, State: sharedtypes.GameStateInit}}
			},
			wantTick:  1,
			wantTrace: []string{"LockTicks", "LatestState", "AppendState", "CreateNextTick"},
		},
		{
			name: "already running",
			setup: func(r *FakeGameRepo) {
				r.states = []gamedb.GameStateRow{{ID: 1, State: sharedtypes.GameStateRunning}}
			},
			wantErr:   apperrors.ErrPrecondition,
			wantTrace: []string{"LockTicks", "LatestState"},
		},
		{
			name: "ticks left over from a previous run continue densely",
			setup: func(r *FakeGameRepo) {
				r.ticks = []gamedb.Tick{{ID: 1}, {ID: 2}}
			},
			wantTick:  3,
			wantTrace: []string{"LockTicks", "LatestState", "AppendState", "CreateNextTick"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub, _ := newTestService(t)
			if tt.setup != nil {
				tt.setup(repo)
			}
			tick, err := svc.Start(context.Background())
			assert.Equal(t, tt.wantTrace, repo.Trace())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, pub.Messages())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTick, tick)
			assert.Equal(t, sharedtypes.GameStateRunning, repo.states[len(repo.states)-1].State)
			require.Len(t, pub.Messages(), 1)
			assert.Equal(t, eventbus.TickAdvancedV1, pub.Messages()[0].Topic)
		})
	}
}

func TestGameService_StartTwiceOpensOneTick(t *testing.T) {
	svc, repo, _, _ := newTestService(t)

	first, err := svc.Start(context.Background())
	require.NoError(t, err)
	_, err = svc.Start(context.Background())
	require.ErrorIs(t, err, apperrors.ErrPrecondition)

	assert.Equal(t, sharedtypes.TickID(1), first)
	assert.Len(t, repo.ticks, 1)
	assert.Len(t, repo.states, 1)
	assert.Equal(t, []string{
		"LockTicks", "LatestState", "AppendState", "CreateNextTick",
		"LockTicks", "LatestState",
	}, repo.Trace())
}

func TestGameService_ManualTicksScheduleSettlement(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	svc.settings.ValidWindow = 3
	sched := &FakeSettleScheduler{}
	svc.SetSettleScheduler(sched)

	_, err := svc.Start(context.Background())
	require.NoError(t, err)
	for range 5 {
		_, err := svc.AdvanceTick(context.Background())
		require.NoError(t, err)
	}

	assert.Len(t, repo.ticks, 6)
	// Ticks 5 and 6 settle ticks 1 and 2; nothing settles before that.
	assert.Equal(t, []sharedtypes.TickID{1, 2}, sched.Ticks())
}

func TestGameService_SettlementEnqueueFailureIsNotFatal(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	svc.settings.ValidWindow = 0
	svc.SetSettleScheduler(&FakeSettleScheduler{err: errors.New("river down")})

	_, err := svc.Start(context.Background())
	require.NoError(t, err)
	tick, err := svc.AdvanceTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.TickID(2), tick)
	assert.Len(t, repo.ticks, 2)
}

func TestGameService_AdvanceTickHasNoPrecondition(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.states = []gamedb.GameStateRow{{ID: 1, State: sharedtypes.GameStateStopped}}

	first, err := svc.AdvanceTick(context.Background())
	require.NoError(t, err)
	second, err := svc.AdvanceTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.TickID(1), first)
	assert.Equal(t, sharedtypes.TickID(2), second)
}

func TestGameService_AdvanceTickPublishFailureIsNotFatal(t *testing.T) {
	svc, _, pub, _ := newTestService(t)
	pub.err = errors.New("nats unavailable")

	tick, err := svc.AdvanceTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.TickID(1), tick)
}

func TestGameService_AdvanceTickIfDue(t *testing.T) {
	tests := []struct {
		name         string
		state        sharedtypes.GameState
		ticks        int
		elapsed      time.Duration
		wantAdvanced bool
	}{
		{name: "running and elapsed", state: sharedtypes.GameStateRunning, ticks: 1, elapsed: 601 * time.Second, wantAdvanced: true},
		{name: "running exactly at boundary", state: sharedtypes.GameStateRunning, ticks: 1, elapsed: 600 * time.Second, wantAdvanced: true},
		{name: "running not yet elapsed", state: sharedtypes.GameStateRunning, ticks: 1, elapsed: 599 * time.Second},
		{name: "paused", state: sharedtypes.GameStatePaused, ticks: 1, elapsed: time.Hour},
		{name: "running without ticks", state: sharedtypes.GameStateRunning, elapsed: time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, pub, _ := newTestService(t)
			repo.states = []gamedb.GameStateRow{{ID: 1, State: tt.state}}
			for i := 0; i < tt.ticks; i++ {
				repo.ticks = append(repo.ticks, gamedb.Tick{ID: sharedtypes.TickID(i + 1), CreatedOn: epoch})
			}

			tick, advanced, err := svc.AdvanceTickIfDue(context.Background(), epoch.Add(tt.elapsed))
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdvanced, advanced)
			if tt.wantAdvanced {
				assert.Equal(t, sharedtypes.TickID(tt.ticks+1), tick)
				assert.Len(t, pub.Messages(), 1)
			} else {
				assert.Zero(t, tick)
				assert.Empty(t, pub.Messages())
			}
		})
	}
}

func TestGameService_SetStateIsUnguarded(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	ctx := context.Background()

	for _, state := range []sharedtypes.GameState{
		sharedtypes.GameStateStopped,
		sharedtypes.GameStateRunning,
		sharedtypes.GameStateInit,
		sharedtypes.GameStatePaused,
	} {
		_, err := svc.SetState(ctx, state)
		require.NoError(t, err)
	}
	assert.Len(t, repo.states, 4)

	_, err := svc.SetState(ctx, "HALTED")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Len(t, repo.states, 4)
}

func TestGameService_CurrentState(t *testing.T) {
	t.Run("defaults before anything happened", func(t *testing.T) {
		svc, _, _, _ := newTestService(t)
		view, err := svc.CurrentState(context.Background())
		require.NoError(t, err)
		assert.Equal(t, &GameStateView{
			State:           sharedtypes.GameStateInit,
			TickTimeSeconds: 600,
			GameStateDelay:  2,
		}, view)
	})

	t.Run("remaining time counts down and floors at zero", func(t *testing.T) {
		svc, _, _, c := newTestService(t)
		ctx := context.Background()
		_, err := svc.Start(ctx)
		require.NoError(t, err)
		_, err = svc.SetTickTime(ctx, 120)
		require.NoError(t, err)
		_, err = svc.SetGameStatePublic(ctx, true)
		require.NoError(t, err)
		_, err = svc.SetGameStateDelay(ctx, 0)
		require.NoError(t, err)

		c.t = epoch.Add(20 * time.Second)
		view, err := svc.CurrentState(ctx)
		require.NoError(t, err)
		require.NotNil(t, view.Tick)
		assert.Equal(t, sharedtypes.TickID(1), *view.Tick)
		assert.Equal(t, sharedtypes.GameStateRunning, view.State)
		assert.Equal(t, 120, view.TickTimeSeconds)
		assert.True(t, view.IsGameStatePublic)
		assert.Equal(t, 0, view.GameStateDelay)
		assert.InDelta(t, 100.0, *view.EstimatedTickTimeRemaining, 0.001)
		assert.Equal(t, epoch, *view.CurrentTickCreatedOn)

		c.t = epoch.Add(time.Hour)
		view, err = svc.CurrentState(ctx)
		require.NoError(t, err)
		assert.Zero(t, *view.EstimatedTickTimeRemaining)
	})
}

func TestGameService_TickAt(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.ticks = []gamedb.Tick{
		{ID: 1, CreatedOn: epoch},
		{ID: 2, CreatedOn: epoch.Add(10 * time.Minute)},
	}

	tick, err := svc.TickAt(context.Background(), epoch.Add(5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.TickID(1), tick.ID)

	tick, err = svc.TickAt(context.Background(), epoch.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.TickID(2), tick.ID)

	_, err = svc.TickAt(context.Background(), epoch.Add(-time.Second))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGameService_SettingValidation(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.SetTickTime(ctx, 0)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.SetGameStateDelay(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	id, err := svc.SetGameStateDelay(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

func TestGameService_InfrastructureErrorPropagates(t *testing.T) {
	svc, repo, _, _ := newTestService(t)
	repo.CreateNextTickFunc = func(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
		return nil, errors.New("connection reset")
	}
	_, err := svc.AdvanceTick(context.Background())
	assert.ErrorContains(t, err, "connection reset")
	assert.False(t, apperrors.IsDomain(err))
}
