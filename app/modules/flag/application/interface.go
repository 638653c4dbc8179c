package flagservice

import (
	"context"

	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service defines the contract for flag issuance and submission.
type Service interface {
	GenerateFlag(ctx context.Context, serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) (*flagdb.Flag, error)
	LatestFlag(ctx context.Context, serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) (*flagdb.Flag, error)
	SubmitFlag(ctx context.Context, teamID sharedtypes.TeamID, text string) (*flagdb.Submission, error)
	FlagsForTick(ctx context.Context, tickID sharedtypes.TickID) ([]flagdb.Flag, error)
	SubmissionsForTeam(ctx context.Context, teamID sharedtypes.TeamID) ([]flagdb.Submission, error)
}
