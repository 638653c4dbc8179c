package gameservice

import (
	"context"
	"time"

	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service drives the tick clock and the coarse game lifecycle.
type Service interface {
	Start(ctx context.Context) (sharedtypes.TickID, error)
	AdvanceTick(ctx context.Context) (sharedtypes.TickID, error)
	// AdvanceTickIfDue advances only when the game is RUNNING and the current
	// tick has run its configured length as of now.
	AdvanceTickIfDue(ctx context.Context, now time.Time) (sharedtypes.TickID, bool, error)
	SetState(ctx context.Context, state sharedtypes.GameState) (int64, error)

	CurrentTick(ctx context.Context) (*gamedb.Tick, error)
	TickAt(ctx context.Context, ts time.Time) (*gamedb.Tick, error)
	ListTicks(ctx context.Context) ([]gamedb.Tick, error)
	CurrentState(ctx context.Context) (*GameStateView, error)

	SetTickTime(ctx context.Context, seconds int) (int64, error)
	SetGameStatePublic(ctx context.Context, public bool) (int64, error)
	SetGameStateDelay(ctx context.Context, ticks int) (int64, error)
}

// GameStateView is the polling payload agents use to coordinate.
type GameStateView struct {
	State                      sharedtypes.GameState `json:"state"`
	Tick                       *sharedtypes.TickID   `json:"tick"`
	TickTimeSeconds            int                   `json:"tick_time_seconds"`
	IsGameStatePublic          bool                  `json:"is_game_state_public"`
	GameStateDelay             int                   `json:"game_state_delay"`
	EstimatedTickTimeRemaining *float64              `json:"estimated_tick_time_remaining"`
	CurrentTickCreatedOn       *time.Time            `json:"current_tick_created_on"`
}

// TickAdvancedPayload is published on eventbus.TickAdvancedV1.
type TickAdvancedPayload struct {
	TickID    sharedtypes.TickID `json:"tick_id"`
	CreatedOn time.Time          `json:"created_on"`
}

// Settings carries the defaults used while a setting log is empty.
type Settings struct {
	DefaultTickSeconds int
	DefaultStateDelay  int
	// ValidWindow is how many ticks a flag stays submittable. It decides which
	// tick settles when a new one opens.
	ValidWindow int
}

// SettleScheduler queues score settlement for a tick.
type SettleScheduler interface {
	EnqueueSettle(ctx context.Context, tick sharedtypes.TickID) error
}
