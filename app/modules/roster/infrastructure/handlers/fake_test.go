package rosterhandlers

import (
	"context"

	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	CreateTeamFunc    func(ctx context.Context, input rosterservice.TeamInput) (*rosterdb.Team, error)
	GetTeamFunc       func(ctx context.Context, id sharedtypes.TeamID) (*rosterdb.Team, error)
	ListTeamsFunc     func(ctx context.Context, includeTest bool) ([]rosterdb.Team, error)
	TeamFromIPFunc    func(ctx context.Context, ip string) (*rosterdb.Team, error)
	CreateServiceFunc func(ctx context.Context, input rosterservice.ServiceInput) (*rosterdb.Service, error)
	GetServiceFunc    func(ctx context.Context, id sharedtypes.ServiceID) (*rosterdb.Service, error)
	ListServicesFunc  func(ctx context.Context) ([]rosterdb.Service, error)
	SeedFunc          func(ctx context.Context, roster *rosterservice.RosterFile) (*rosterservice.SeedResult, error)
}

func (f *FakeService) CreateTeam(ctx context.Context, input rosterservice.TeamInput) (*rosterdb.Team, error) {
	if f.CreateTeamFunc != nil {
		return f.CreateTeamFunc(ctx, input)
	}
	return &rosterdb.Team{Name: input.Name}, nil
}

func (f *FakeService) GetTeam(ctx context.Context, id sharedtypes.TeamID) (*rosterdb.Team, error) {
	if f.GetTeamFunc != nil {
		return f.GetTeamFunc(ctx, id)
	}
	return nil, rosterdb.ErrTeamNotFound
}

func (f *FakeService) ListTeams(ctx context.Context, includeTest bool) ([]rosterdb.Team, error) {
	if f.ListTeamsFunc != nil {
		return f.ListTeamsFunc(ctx, includeTest)
	}
	return nil, nil
}

func (f *FakeService) TeamFromIP(ctx context.Context, ip string) (*rosterdb.Team, error) {
	if f.TeamFromIPFunc != nil {
		return f.TeamFromIPFunc(ctx, ip)
	}
	return nil, nil
}

func (f *FakeService) CreateService(ctx context.Context, input rosterservice.ServiceInput) (*rosterdb.Service, error) {
	if f.CreateServiceFunc != nil {
		return f.CreateServiceFunc(ctx, input)
	}
	return &rosterdb.Service{Name: input.Name}, nil
}

func (f *FakeService) GetService(ctx context.Context, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	if f.GetServiceFunc != nil {
		return f.GetServiceFunc(ctx, id)
	}
	return nil, rosterdb.ErrServiceNotFound
}

func (f *FakeService) ListServices(ctx context.Context) ([]rosterdb.Service, error) {
	if f.ListServicesFunc != nil {
		return f.ListServicesFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) Seed(ctx context.Context, roster *rosterservice.RosterFile) (*rosterservice.SeedResult, error) {
	if f.SeedFunc != nil {
		return f.SeedFunc(ctx, roster)
	}
	return &rosterservice.SeedResult{}, nil
}

var _ rosterservice.Service = (*FakeService)(nil)
