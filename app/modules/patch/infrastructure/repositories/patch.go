package patchdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/pgerr"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

var (
	// ErrPatchNotFound is returned when no patch matches the query.
	ErrPatchNotFound = fmt.Errorf("patch %w", apperrors.ErrNotFound)
	// ErrPatchExists is returned when the team already patched the service
	// in the tick.
	ErrPatchExists = fmt.Errorf("%w: already uploaded this tick for this service", apperrors.ErrPrecondition)
	// ErrProfileNotFound is returned when a service has no profile.
	ErrProfileNotFound = fmt.Errorf("service profile %w", apperrors.ErrNotFound)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new patch repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func newestResultsFirst(q *bun.SelectQuery) *bun.SelectQuery {
	return q.Order("pr.id DESC")
}

func (r *Impl) CreatePatch(ctx context.Context, db bun.IDB, patch *Patch) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().Model(patch).
		Returning("id, created_on").
		Exec(ctx)
	if err != nil {
		if pgerr.IsUniqueViolation(err) {
			return ErrPatchExists
		}
		return fmt.Errorf("patchdb.CreatePatch: %w", err)
	}
	return nil
}

func (r *Impl) GetPatch(ctx context.Context, db bun.IDB, id int64) (*Patch, error) {
	db = r.resolveDB(db)
	patch := new(Patch)
	err := db.NewSelect().Model(patch).
		Relation("Results", newestResultsFirst).
		Where("up.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPatchNotFound
		}
		return nil, fmt.Errorf("patchdb.GetPatch: %w", err)
	}
	return patch, nil
}

func (r *Impl) FindPatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*Patch, error) {
	db = r.resolveDB(db)
	patch := new(Patch)
	err := db.NewSelect().Model(patch).
		ExcludeColumn("uploaded_file").
		Where("up.team_id = ?", teamID).
		Where("up.service_id = ?", serviceID).
		Where("up.tick_id = ?", tick).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPatchNotFound
		}
		return nil, fmt.Errorf("patchdb.FindPatch: %w", err)
	}
	return patch, nil
}

func (r *Impl) ListPatchesForTeam(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID) ([]Patch, error) {
	db = r.resolveDB(db)
	var patches []Patch
	err := db.NewSelect().Model(&patches).
		ExcludeColumn("uploaded_file").
		Relation("Results", newestResultsFirst).
		Where("up.team_id = ?", teamID).
		Order("up.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("patchdb.ListPatchesForTeam: %w", err)
	}
	return patches, nil
}

func (r *Impl) DeletePatch(ctx context.Context, db bun.IDB, id int64) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*Patch)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("patchdb.DeletePatch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPatchNotFound
	}
	return nil
}

func (r *Impl) AppendResult(ctx context.Context, db bun.IDB, result *PatchResult) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(result).Returning("*").Exec(ctx); err != nil {
		if pgerr.IsForeignKeyViolation(err) {
			return ErrPatchNotFound
		}
		return fmt.Errorf("patchdb.AppendResult: %w", err)
	}
	return nil
}

func (r *Impl) PutProfile(ctx context.Context, db bun.IDB, profile *ServiceProfile) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().Model(profile).
		On("CONFLICT (service_id) DO UPDATE").
		Set("profile = EXCLUDED.profile").
		Set("updated_on = NOW()").
		Returning("updated_on").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("patchdb.PutProfile: %w", err)
	}
	return nil
}

func (r *Impl) GetProfile(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (*ServiceProfile, error) {
	db = r.resolveDB(db)
	profile := new(ServiceProfile)
	err := db.NewSelect().Model(profile).
		Where("sp.service_id = ?", serviceID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("patchdb.GetProfile: %w", err)
	}
	return profile, nil
}
