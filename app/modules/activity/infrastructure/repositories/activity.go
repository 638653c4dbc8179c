package activitydb

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
	// ErrNoToggle is returned when no row answers the query.
	ErrNoToggle = fmt.Errorf("toggle %w", apperrors.ErrNotFound)
	// ErrNoMemo is returned when a tick has not been memoised yet.
	ErrNoMemo = fmt.Errorf("memo %w", apperrors.ErrNotFound)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new activity repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) AppendToggle(ctx context.Context, db bun.IDB, toggle *Toggle) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(toggle).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("activitydb.AppendToggle: %w", err)
	}
	return nil
}

func (r *Impl) LatestToggle(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID) (*Toggle, error) {
	db = r.resolveDB(db)
	toggle := new(Toggle)
	err := db.NewSelect().Model(toggle).
		Where("st.kind = ?", kind).
		Where("st.service_id = ?", serviceID).
		Order("st.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoToggle
		}
		return nil, fmt.Errorf("activitydb.LatestToggle: %w", err)
	}
	return toggle, nil
}

func (r *Impl) TogglesAt(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) ([]Toggle, error) {
	db = r.resolveDB(db)
	var toggles []Toggle
	err := db.NewSelect().Model(&toggles).
		Where("st.kind = ?", kind).
		Where("st.service_id = ?", serviceID).
		Where("st.tick_id = ?", tick).
		Order("st.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("activitydb.TogglesAt: %w", err)
	}
	return toggles, nil
}

func (r *Impl) LatestToggleBefore(ctx context.Context, db bun.IDB, kind ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*Toggle, error) {
	db = r.resolveDB(db)
	toggle := new(Toggle)
	err := db.NewSelect().Model(toggle).
		Where("st.kind = ?", kind).
		Where("st.service_id = ?", serviceID).
		Where("st.tick_id < ?", tick).
		Order("st.tick_id DESC", "st.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoToggle
		}
		return nil, fmt.Errorf("activitydb.LatestToggleBefore: %w", err)
	}
	return toggle, nil
}

func (r *Impl) GetActiveMemo(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*ActiveMemo, error) {
	db = r.resolveDB(db)
	memo := new(ActiveMemo)
	err := db.NewSelect().Model(memo).
		Where("cwa.service_id = ?", serviceID).
		Where("cwa.tick_id = ?", tick).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoMemo
		}
		return nil, fmt.Errorf("activitydb.GetActiveMemo: %w", err)
	}
	return memo, nil
}

func (r *Impl) DeleteActiveMemosFrom(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, from sharedtypes.TickID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*ActiveMemo)(nil)).
		Where("service_id = ?", serviceID).
		Where("tick_id >= ?", from).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("activitydb.DeleteActiveMemosFrom: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("activitydb.DeleteActiveMemosFrom: %w", err)
	}
	return int(n), nil
}

func (r *Impl) PutActiveMemo(ctx context.Context, db bun.IDB, memo *ActiveMemo) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().Model(memo).
		On("CONFLICT (service_id, tick_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("activitydb.PutActiveMemo: %w", err)
	}
	return nil
}
