package eventhandlers

import (
	"context"
	"time"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	RecordFunc            func(ctx context.Context, ev *eventdb.Event) (sharedtypes.EventID, error)
	RecordAtTimestampFunc func(ctx context.Context, ev *eventdb.Event, ts time.Time) (sharedtypes.EventID, error)
	GetFunc               func(ctx context.Context, id sharedtypes.EventID) (*eventdb.Event, error)
	ListFunc              func(ctx context.Context) ([]eventdb.Event, error)
	ListForTickFunc       func(ctx context.Context, tick sharedtypes.TickID) ([]eventdb.Event, error)
	PcapsForTeamFunc      func(ctx context.Context, team sharedtypes.TeamID) ([]eventdb.Event, error)
	DeleteFunc            func(ctx context.Context, id sharedtypes.EventID) (int64, error)
}

func (f *FakeService) Record(ctx context.Context, ev *eventdb.Event) (sharedtypes.EventID, error) {
	if f.RecordFunc != nil {
		return f.RecordFunc(ctx, ev)
	}
	return 1, nil
}

func (f *FakeService) RecordAtTimestamp(ctx context.Context, ev *eventdb.Event, ts time.Time) (sharedtypes.EventID, error) {
	if f.RecordAtTimestampFunc != nil {
		return f.RecordAtTimestampFunc(ctx, ev, ts)
	}
	return 1, nil
}

func (f *FakeService) Get(ctx context.Context, id sharedtypes.EventID) (*eventdb.Event, error) {
	if f.GetFunc != nil {
		return f.GetFunc(ctx, id)
	}
	return nil, eventdb.ErrEventNotFound
}

func (f *FakeService) List(ctx context.Context) ([]eventdb.Event, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return []eventdb.Event{}, nil
}

func (f *FakeService) ListForTick(ctx context.Context, tick sharedtypes.TickID) ([]eventdb.Event, error) {
	if f.ListForTickFunc != nil {
		return f.ListForTickFunc(ctx, tick)
	}
	return []eventdb.Event{}, nil
}

func (f *FakeService) PcapsForTeam(ctx context.Context, team sharedtypes.TeamID) ([]eventdb.Event, error) {
	if f.PcapsForTeamFunc != nil {
		return f.PcapsForTeamFunc(ctx, team)
	}
	return []eventdb.Event{}, nil
}

func (f *FakeService) Delete(ctx context.Context, id sharedtypes.EventID) (int64, error) {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return 1, nil
}
