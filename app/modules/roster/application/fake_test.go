package rosterservice

import (
	"context"

	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Roster Repo
// ------------------------

type FakeRosterRepo struct {
	trace []string

	CreateTeamFunc       func(ctx context.Context, db bun.IDB, team *rosterdb.Team) error
	GetTeamFunc          func(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error)
	GetTeamByNameFunc    func(ctx context.Context, db bun.IDB, name string) (*rosterdb.Team, error)
	ListTeamsFunc        func(ctx context.Context, db bun.IDB, includeTest bool) ([]rosterdb.Team, error)
	CreateServiceFunc    func(ctx context.Context, db bun.IDB, service *rosterdb.Service) error
	GetServiceFunc       func(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error)
	GetServiceByNameFunc func(ctx context.Context, db bun.IDB, name string) (*rosterdb.Service, error)
	ListServicesFunc     func(ctx context.Context, db bun.IDB) ([]rosterdb.Service, error)
}

func NewFakeRosterRepo() *FakeRosterRepo {
	return &FakeRosterRepo{trace: []string{}}
}

func (f *FakeRosterRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeRosterRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeRosterRepo) CreateTeam(ctx context.Context, db bun.IDB, team *rosterdb.Team) error {
	f.record("CreateTeam")
	if f.CreateTeamFunc != nil {
		return f.CreateTeamFunc(ctx, db, team)
	}
	return nil
}

func (f *FakeRosterRepo) GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error) {
	f.record("GetTeam")
	if f.GetTeamFunc != nil {
		return f.GetTeamFunc(ctx, db, id)
	}
	return nil, rosterdb.ErrTeamNotFound
}

func (f *FakeRosterRepo) GetTeamByName(ctx context.Context, db bun.IDB, name string) (*rosterdb.Team, error) {
	f.record("GetTeamByName")
	if f.GetTeamByNameFunc != nil {
		return f.GetTeamByNameFunc(ctx, db, name)
	}
	return nil, rosterdb.ErrTeamNotFound
}

func (f *FakeRosterRepo) ListTeams(ctx context.Context, db bun.IDB, includeTest bool) ([]rosterdb.Team, error) {
	f.record("ListTeams")
	if f.ListTeamsFunc != nil {
		return f.ListTeamsFunc(ctx, db, includeTest)
	}
	return nil, nil
}

func (f *FakeRosterRepo) CreateService(ctx context.Context, db bun.IDB, service *rosterdb.Service) error {
	f.record("CreateService")
	if f.CreateServiceFunc != nil {
		return f.CreateServiceFunc(ctx, db, service)
	}
	return nil
}

func (f *FakeRosterRepo) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	f.record("GetService")
	if f.GetServiceFunc != nil {
		return f.GetServiceFunc(ctx, db, id)
	}
	return nil, rosterdb.ErrServiceNotFound
}

func (f *FakeRosterRepo) GetServiceByName(ctx context.Context, db bun.IDB, name string) (*rosterdb.Service, error) {
	f.record("GetServiceByName")
	if f.GetServiceByNameFunc != nil {
		return f.GetServiceByNameFunc(ctx, db, name)
	}
	return nil, rosterdb.ErrServiceNotFound
}

func (f *FakeRosterRepo) ListServices(ctx context.Context, db bun.IDB) ([]rosterdb.Service, error) {
	f.record("ListServices")
	if f.ListServicesFunc != nil {
		return f.ListServicesFunc(ctx, db)
	}
	return nil, nil
}

var _ rosterdb.Repository = (*FakeRosterRepo)(nil)
