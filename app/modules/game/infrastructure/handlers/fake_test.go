package gamehandlers

import (
	"context"
	"time"

	gameservice "github.com/Black-And-White-Club/ctf-engine/app/modules/game/application"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	StartFunc              func(ctx context.Context) (sharedtypes.TickID, error)
	AdvanceTickFunc        func(ctx context.Context) (sharedtypes.TickID, error)
	SetStateFunc           func(ctx context.Context, state sharedtypes.GameState) (int64, error)
	TickAtFunc             func(ctx context.Context, ts time.Time) (*gamedb.Tick, error)
	CurrentStateFunc       func(ctx context.Context) (*gameservice.GameStateView, error)
	SetGameStatePublicFunc func(ctx context.Context, public bool) (int64, error)
	SetGameStateDelayFunc  func(ctx context.Context, ticks int) (int64, error)
}

func (f *FakeService) Start(ctx context.Context) (sharedtypes.TickID, error) {
	if f.StartFunc != nil {
		return f.StartFunc(ctx)
	}
	return 1, nil
}

func (f *FakeService) AdvanceTick(ctx context.Context) (sharedtypes.TickID, error) {
	if f.AdvanceTickFunc != nil {
		return f.AdvanceTickFunc(ctx)
	}
	return 2, nil
}

func (f *FakeService) AdvanceTickIfDue(ctx context.Context, now time.Time) (sharedtypes.TickID, bool, error) {
	return 0, false, nil
}

func (f *FakeService) SetState(ctx context.Context, state sharedtypes.GameState) (int64, error) {
	if f.SetStateFunc != nil {
		return f.SetStateFunc(ctx, state)
	}
	return 1, nil
}

func (f *FakeService) CurrentTick(ctx context.Context) (*gamedb.Tick, error) {
	return nil, gamedb.ErrNoTick
}

func (f *FakeService) TickAt(ctx context.Context, ts time.Time) (*gamedb.Tick, error) {
	if f.TickAtFunc != nil {
		return f.TickAtFunc(ctx, ts)
	}
	return nil, gamedb.ErrNoTick
}

func (f *FakeService) ListTicks(ctx context.Context) ([]gamedb.Tick, error) {
	return nil, nil
}

func (f *FakeService) CurrentState(ctx context.Context) (*gameservice.GameStateView, error) {
	if f.CurrentStateFunc != nil {
		return f.CurrentStateFunc(ctx)
	}
	return &gameservice.GameStateView{State: sharedtypes.GameStateInit}, nil
}

func (f *FakeService) SetTickTime(ctx context.Context, seconds int) (int64, error) {
	return 1, nil
}

func (f *FakeService) SetGameStatePublic(ctx context.Context, public bool) (int64, error) {
	if f.SetGameStatePublicFunc != nil {
		return f.SetGameStatePublicFunc(ctx, public)
	}
	return 1, nil
}

func (f *FakeService) SetGameStateDelay(ctx context.Context, ticks int) (int64, error) {
	if f.SetGameStateDelayFunc != nil {
		return f.SetGameStateDelayFunc(ctx, ticks)
	}
	return 1, nil
}

var _ gameservice.Service = (*FakeService)(nil)
