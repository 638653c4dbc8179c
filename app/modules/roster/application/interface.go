package rosterservice

import (
	"context"

	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service exposes the static team and service roster.
type Service interface {
	CreateTeam(ctx context.Context, input TeamInput) (*rosterdb.Team, error)
	GetTeam(ctx context.Context, id sharedtypes.TeamID) (*rosterdb.Team, error)
	ListTeams(ctx context.Context, includeTest bool) ([]rosterdb.Team, error)
	TeamFromIP(ctx context.Context, ip string) (*rosterdb.Team, error)

	CreateService(ctx context.Context, input ServiceInput) (*rosterdb.Service, error)
	GetService(ctx context.Context, id sharedtypes.ServiceID) (*rosterdb.Service, error)
	ListServices(ctx context.Context) ([]rosterdb.Service, error)

	Seed(ctx context.Context, roster *RosterFile) (*SeedResult, error)
}
