package flagdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Flag is the secret planted in TeamID's instance of ServiceID during TickID.
// The text is globally unique and never changes.
type Flag struct {
	bun.BaseModel `bun:"table:flags,alias:fl"`

	ID        sharedtypes.FlagID    `bun:"id,pk,autoincrement" json:"id"`
	Flag      string                `bun:"flag,notnull" json:"flag"`
	TeamID    sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	TickID    sharedtypes.TickID    `bun:"tick_id,notnull" json:"tick_id"`
	CreatedOn time.Time             `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}

// Submission is a team's attempt at a flag, classified once and frozen.
// ID is zero for ALREADY_SUBMITTED answers, which are never stored.
type Submission struct {
	bun.BaseModel `bun:"table:flag_submissions,alias:fs"`

	ID         int64                        `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TeamID     sharedtypes.TeamID           `bun:"team_id,notnull" json:"team_id"`
	Submission string                       `bun:"submission,notnull" json:"submission"`
	Result     sharedtypes.SubmissionResult `bun:"result,notnull" json:"result"`
	FlagID     *sharedtypes.FlagID          `bun:"flag_id" json:"flag_id"`
	CreatedOn  time.Time                    `bun:"created_on,notnull,default:current_timestamp" json:"created_on"`
}
