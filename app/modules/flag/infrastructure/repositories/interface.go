package flagdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for flag and submission persistence.
type Repository interface {
	// InsertFlagIfAbsent inserts flag unless the (team, service, tick) slot is
	// taken, reporting whether it did. A clash on the flag text is returned
	// as the driver's unique violation.
	InsertFlagIfAbsent(ctx context.Context, db bun.IDB, flag *Flag) (bool, error)
	GetFlagFor(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, service sharedtypes.ServiceID, tick sharedtypes.TickID) (*Flag, error)
	LatestFlag(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID, team sharedtypes.TeamID) (*Flag, error)
	GetFlagByText(ctx context.Context, db bun.IDB, text string) (*Flag, error)
	FlagsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Flag, error)

	GetSubmission(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, text string) (*Submission, error)
	// InsertSubmissionIfAbsent reports false when (team, text) already exists.
	InsertSubmissionIfAbsent(ctx context.Context, db bun.IDB, submission *Submission) (bool, error)
	ListSubmissions(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]Submission, error)
}
