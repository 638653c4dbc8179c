package scoredb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for the tick score cache.
type Repository interface {
	GetCachedScores(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) (*TickScores, error)
	// PutCachedScores keeps the first write for a tick.
	PutCachedScores(ctx context.Context, db bun.IDB, scores *TickScores) error
	DeleteCachedScores(ctx context.Context, db bun.IDB, ticks []sharedtypes.TickID) (int, error)
	// DeleteCachedScoresFrom drops every cached tick at or after from.
	DeleteCachedScoresFrom(ctx context.Context, db bun.IDB, from sharedtypes.TickID) (int, error)
}
