package gamedb

import (
	"context"
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for tick and game setting persistence.
type Repository interface {
	// LockTicks takes the transaction-scoped advisory lock that serialises
	// tick creation. Outside a transaction the lock is released as soon as
	// the statement ends.
	LockTicks(ctx context.Context, db bun.IDB) error
	// CreateNextTick inserts tick max(id)+1. Callers must hold LockTicks in
	// the same transaction.
	CreateNextTick(ctx context.Context, db bun.IDB) (*Tick, error)
	CurrentTick(ctx context.Context, db bun.IDB) (*Tick, error)
	GetTick(ctx context.Context, db bun.IDB, id sharedtypes.TickID) (*Tick, error)
	TickAt(ctx context.Context, db bun.IDB, ts time.Time) (*Tick, error)
	ListTicks(ctx context.Context, db bun.IDB) ([]Tick, error)

	AppendState(ctx context.Context, db bun.IDB, state sharedtypes.GameState) (*GameStateRow, error)
	LatestState(ctx context.Context, db bun.IDB) (*GameStateRow, error)

	AppendTickTime(ctx context.Context, db bun.IDB, seconds int) (*TickTime, error)
	LatestTickTime(ctx context.Context, db bun.IDB) (*TickTime, error)
	AppendPublic(ctx context.Context, db bun.IDB, public bool) (*GameStatePublic, error)
	LatestPublic(ctx context.Context, db bun.IDB) (*GameStatePublic, error)
	AppendDelay(ctx context.Context, db bun.IDB, delay int) (*GameStateDelay, error)
	LatestDelay(ctx context.Context, db bun.IDB) (*GameStateDelay, error)
}
