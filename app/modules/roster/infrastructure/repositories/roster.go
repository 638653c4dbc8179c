package rosterdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

var (
	// ErrTeamNotFound is returned when a team is not found.
	ErrTeamNotFound = fmt.Errorf("team %w", apperrors.ErrNotFound)
	// ErrServiceNotFound is returned when a service is not found.
	ErrServiceNotFound = fmt.Errorf("service %w", apperrors.ErrNotFound)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new roster repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) CreateTeam(ctx context.Context, db bun.IDB, team *Team) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(team).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("rosterdb.CreateTeam: %w", err)
	}
	return nil
}

func (r *Impl) GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().Model(team).Where("tm.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("rosterdb.GetTeam: %w", err)
	}
	return team, nil
}

func (r *Impl) GetTeamByName(ctx context.Context, db bun.IDB, name string) (*Team, error) {
	db = r.resolveDB(db)
	team := new(Team)
	err := db.NewSelect().Model(team).Where("tm.name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("rosterdb.GetTeamByName: %w", err)
	}
	return team, nil
}

func (r *Impl) ListTeams(ctx context.Context, db bun.IDB, includeTest bool) ([]Team, error) {
	db = r.resolveDB(db)
	var teams []Team
	q := db.NewSelect().Model(&teams).Order("tm.id ASC")
	if !includeTest {
		q = q.Where("tm.is_test_team = FALSE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("rosterdb.ListTeams: %w", err)
	}
	return teams, nil
}

func (r *Impl) CreateService(ctx context.Context, db bun.IDB, service *Service) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(service).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("rosterdb.CreateService: %w", err)
	}
	return nil
}

func (r *Impl) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*Service, error) {
	db = r.resolveDB(db)
	service := new(Service)
	err := db.NewSelect().Model(service).Where("sv.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("rosterdb.GetService: %w", err)
	}
	return service, nil
}

func (r *Impl) GetServiceByName(ctx context.Context, db bun.IDB, name string) (*Service, error) {
	db = r.resolveDB(db)
	service := new(Service)
	err := db.NewSelect().Model(service).Where("sv.name = ?", name).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("rosterdb.GetServiceByName: %w", err)
	}
	return service, nil
}

func (r *Impl) ListServices(ctx context.Context, db bun.IDB) ([]Service, error) {
	db = r.resolveDB(db)
	var services []Service
	if err := db.NewSelect().Model(&services).Order("sv.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("rosterdb.ListServices: %w", err)
	}
	return services, nil
}
