package rosterdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for team and service persistence.
type Repository interface {
	CreateTeam(ctx context.Context, db bun.IDB, team *Team) error
	GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*Team, error)
	GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error)
	// ListTeams returns teams ordered by id. Test teams are included only
	// when includeTest is set.
	ListTeams(ctx context.Context, db bun.IDB, includeTest bool) ([]Team, error)

	CreateService(ctx context.Context, db bun.IDB, service *Service) error
	GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*Service, error)
	GetServiceByName(ctx context.Context, db bun.IDB, name string) (*Service, error)
	ListServices(ctx context.Context, db bun.IDB) ([]Service, error)
}
