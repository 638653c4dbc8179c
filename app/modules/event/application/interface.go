package eventservice

import (
	"context"
	"time"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service defines the event log operations.
type Service interface {
	Record(ctx context.Context, ev *eventdb.Event) (sharedtypes.EventID, error)
	RecordAtTimestamp(ctx context.Context, ev *eventdb.Event, ts time.Time) (sharedtypes.EventID, error)
	Get(ctx context.Context, id sharedtypes.EventID) (*eventdb.Event, error)
	List(ctx context.Context) ([]eventdb.Event, error)
	ListForTick(ctx context.Context, tick sharedtypes.TickID) ([]eventdb.Event, error)
	PcapsForTeam(ctx context.Context, team sharedtypes.TeamID) ([]eventdb.Event, error)
	Delete(ctx context.Context, id sharedtypes.EventID) (int64, error)
}
