package gamedb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Tick is an immutable round marker. Ids are dense and start at 1.
type Tick struct {
	bun.BaseModel `bun:"table:ticks,alias:tk"`

	ID        sharedtypes.TickID `bun:"id,pk" json:"id"`
	CreatedOn time.Time          `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// GameStateRow is one entry of the append-only lifecycle log.
type GameStateRow struct {
	bun.BaseModel `bun:"table:game_states,alias:gs"`

	ID        int64                 `bun:"id,pk,autoincrement" json:"id"`
	State     sharedtypes.GameState `bun:"state,notnull" json:"state"`
	CreatedOn time.Time             `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// TickTime records the configured tick length in seconds.
type TickTime struct {
	bun.BaseModel `bun:"table:tick_times,alias:tt"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	TimeSeconds int       `bun:"time_seconds,notnull" json:"time_seconds"`
	CreatedOn   time.Time `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// GameStatePublic records whether the delayed public game state is exposed.
type GameStatePublic struct {
	bun.BaseModel `bun:"table:game_state_public,alias:gp"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	IsPublic  bool      `bun:"is_public,notnull" json:"is_public"`
	CreatedOn time.Time `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// GameStateDelay records how many ticks the public game state lags behind.
type GameStateDelay struct {
	bun.BaseModel `bun:"table:game_state_delays,alias:gd"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	Delay     int       `bun:"delay,notnull" json:"delay"`
	CreatedOn time.Time `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}
