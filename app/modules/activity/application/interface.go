package activityservice

import (
	"context"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service defines the operator-facing toggle operations.
type Service interface {
	SetToggle(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, value string) (*activitydb.Toggle, error)
	Current(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID) (*ToggleView, error)
	ValueAt(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*ToggleView, error)
}

// ToggleView is a resolved switch value. Value is a bool for the boolean
// kinds and a status string for status_indicator.
type ToggleView struct {
	ServiceID sharedtypes.ServiceID `json:"service_id"`
	Kind      activitydb.ToggleKind `json:"kind"`
	TickID    *sharedtypes.TickID   `json:"tick_id,omitempty"`
	Value     any                   `json:"value"`
}

func newView(kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick *sharedtypes.TickID, raw string) *ToggleView {
	view := &ToggleView{ServiceID: serviceID, Kind: kind, TickID: tick, Value: raw}
	if kind.IsBool() {
		view.Value = parseBool(raw)
	}
	return view
}
