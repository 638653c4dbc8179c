package patchdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for patch, result and profile persistence.
type Repository interface {
	// CreatePatch inserts the patch. A second patch for the same team,
	// service and tick is ErrPatchExists.
	CreatePatch(ctx context.Context, db bun.IDB, patch *Patch) error
	// GetPatch loads the patch with its file and results.
	GetPatch(ctx context.Context, db bun.IDB, id int64) (*Patch, error)
	FindPatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*Patch, error)
	// ListPatchesForTeam returns the team's patches oldest first, with their
	// results and without file contents.
	ListPatchesForTeam(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID) ([]Patch, error)
	// DeletePatch removes the patch and, by cascade, its results.
	DeletePatch(ctx context.Context, db bun.IDB, id int64) error

	AppendResult(ctx context.Context, db bun.IDB, result *PatchResult) error

	// PutProfile replaces the service's profile.
	PutProfile(ctx context.Context, db bun.IDB, profile *ServiceProfile) error
	GetProfile(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (*ServiceProfile, error)
}
