package eventdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for event log persistence.
type Repository interface {
	// Insert writes the header and the payload selected by ev.Type. ev.ID and
	// ev.CreatedOn are filled in.
	Insert(ctx context.Context, db bun.IDB, ev *Event) error
	Get(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*Event, error)
	List(ctx context.Context, db bun.IDB) ([]Event, error)
	ListForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Event, error)
	PcapsReleasedForTeam(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]Event, error)
	// DeleteHeader removes the header row; payload rows cascade.
	DeleteHeader(ctx context.Context, db bun.IDB, id sharedtypes.EventID) error

	FlagStolenForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]FlagStolen, error)
	CountFlagStolenForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) (int, error)
	StealthForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Stealth, error)
	// KohRankingsForTick returns the tick's rankings, oldest event first, each
	// with its rows in stored order.
	KohRankingsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]KohRanking, error)
	// KohRankingsForService returns every ranking of the service ordered by
	// tick then event id.
	KohRankingsForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) ([]Event, error)
	UpdateRankResults(ctx context.Context, db bun.IDB, rows []KohRankResult) error
}
