package activitydb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for toggle and memo persistence.
type Repository interface {
	AppendToggle(ctx context.Context, db bun.IDB, toggle *Toggle) error
	// LatestToggle returns the highest-id row of kind for the service.
	LatestToggle(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID) (*Toggle, error)
	// TogglesAt returns the rows stamped with exactly tick, oldest first.
	TogglesAt(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) ([]Toggle, error)
	// LatestToggleBefore returns the row with the highest tick strictly below
	// tick, breaking ties by highest id.
	LatestToggleBefore(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*Toggle, error)

	GetActiveMemo(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*ActiveMemo, error)
	// PutActiveMemo inserts the memo unless one already exists.
	PutActiveMemo(ctx context.Context, db bun.IDB, memo *ActiveMemo) error
	// DeleteActiveMemosFrom drops the service's memos at or after from.
	DeleteActiveMemosFrom(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, from sharedtypes.TickID) (int, error)
}
