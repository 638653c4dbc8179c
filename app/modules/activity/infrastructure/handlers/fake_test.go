package activityhandlers

import (
	"context"

	activityservice "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/application"
	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	SetToggleFunc func(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, value string) (*activitydb.Toggle, error)
	CurrentFunc   func(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID) (*activityservice.ToggleView, error)
	ValueAtFunc   func(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*activityservice.ToggleView, error)
}

func (f *FakeService) SetToggle(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, value string) (*activitydb.Toggle, error) {
	if f.SetToggleFunc != nil {
		return f.SetToggleFunc(ctx, kind, serviceID, value)
	}
	return &activitydb.Toggle{Kind: kind, ServiceID: serviceID, Value: value}, nil
}

func (f *FakeService) Current(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID) (*activityservice.ToggleView, error) {
	if f.CurrentFunc != nil {
		return f.CurrentFunc(ctx, kind, serviceID)
	}
	return &activityservice.ToggleView{Kind: kind, ServiceID: serviceID}, nil
}

func (f *FakeService) ValueAt(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*activityservice.ToggleView, error) {
	if f.ValueAtFunc != nil {
		return f.ValueAtFunc(ctx, kind, serviceID, tick)
	}
	return &activityservice.ToggleView{Kind: kind, ServiceID: serviceID, TickID: &tick}, nil
}
