package gamedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// tickLockKey is the pg_advisory_xact_lock key guarding tick creation.
const tickLockKey int64 = 0x7469636b

var (
	// ErrNoTick is returned when no tick matches the query.
	ErrNoTick = fmt.Errorf("tick %w", apperrors.ErrNotFound)
	// ErrNoSetting is returned when a setting log is empty. Callers substitute
	// the documented default.
	ErrNoSetting = fmt.Errorf("setting %w", apperrors.ErrNotFound)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new game repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) LockTicks(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	if _, err := db.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", tickLockKey); err != nil {
		return fmt.Errorf("gamedb.LockTicks: %w", err)
	}
	return nil
}

func (r *Impl) CreateNextTick(ctx context.Context, db bun.IDB) (*Tick, error) {
	db = r.resolveDB(db)
	tick := new(Tick)
	err := db.NewRaw(
		"INSERT INTO ticks (id, created_on) SELECT COALESCE(MAX(id), 0) + 1, NOW() FROM ticks RETURNING id, created_on",
	).Scan(ctx, tick)
	if err != nil {
		return nil, fmt.Errorf("gamedb.CreateNextTick: %w", err)
	}
	return tick, nil
}

func (r *Impl) CurrentTick(ctx context.Context, db bun.IDB) (*Tick, error) {
	db = r.resolveDB(db)
	tick := new(Tick)
	err := db.NewSelect().Model(tick).Order("tk.id DESC").Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTick
		}
		return nil, fmt.Errorf("gamedb.CurrentTick: %w", err)
	}
	return tick, nil
}

func (r *Impl) GetTick(ctx context.Context, db bun.IDB, id sharedtypes.TickID) (*Tick, error) {
	db = r.resolveDB(db)
	tick := new(Tick)
	err := db.NewSelect().Model(tick).Where("tk.id = ?", id).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTick
		}
		return nil, fmt.Errorf("gamedb.GetTick: %w", err)
	}
	return tick, nil
}

func (r *Impl) TickAt(ctx context.Context, db bun.IDB, ts time.Time) (*Tick, error) {
	db = r.resolveDB(db)
	tick := new(Tick)
	err := db.NewSelect().Model(tick).
		Where("tk.created_on <= ?", ts).
		Order("tk.created_on DESC", "tk.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoTick
		}
		return nil, fmt.Errorf("gamedb.TickAt: %w", err)
	}
	return tick, nil
}

func (r *Impl) ListTicks(ctx context.Context, db bun.IDB) ([]Tick, error) {
	db = r.resolveDB(db)
	var ticks []Tick
	if err := db.NewSelect().Model(&ticks).Order("tk.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("gamedb.ListTicks: %w", err)
	}
	return ticks, nil
}

func (r *Impl) AppendState(ctx context.Context, db bun.IDB, state sharedtypes.GameState) (*GameStateRow, error) {
	row := &GameStateRow{State: state}
	if err := appendRow(ctx, r.resolveDB(db), row); err != nil {
		return nil, fmt.Errorf("gamedb.AppendState: %w", err)
	}
	return row, nil
}

func (r *Impl) LatestState(ctx context.Context, db bun.IDB) (*GameStateRow, error) {
	row := new(GameStateRow)
	if err := latestRow(ctx, r.resolveDB(db), row, "gs"); err != nil {
		return nil, wrapLatest("gamedb.LatestState", err)
	}
	return row, nil
}

func (r *Impl) AppendTickTime(ctx context.Context, db bun.IDB, seconds int) (*TickTime, error) {
	row := &TickTime{TimeSeconds: seconds}
	if err := appendRow(ctx, r.resolveDB(db), row); err != nil {
		return nil, fmt.Errorf("gamedb.AppendTickTime: %w", err)
	}
	return row, nil
}

func (r *Impl) LatestTickTime(ctx context.Context, db bun.IDB) (*TickTime, error) {
	row := new(TickTime)
	if err := latestRow(ctx, r.resolveDB(db), row, "tt"); err != nil {
		return nil, wrapLatest("gamedb.LatestTickTime", err)
	}
	return row, nil
}

func (r *Impl) AppendPublic(ctx context.Context, db bun.IDB, public bool) (*GameStatePublic, error) {
	row := &GameStatePublic{IsPublic: public}
	if err := appendRow(ctx, r.resolveDB(db), row); err != nil {
		return nil, fmt.Errorf("gamedb.AppendPublic: %w", err)
	}
	return row, nil
}

func (r *Impl) LatestPublic(ctx context.Context, db bun.IDB) (*GameStatePublic, error) {
	row := new(GameStatePublic)
	if err := latestRow(ctx, r.resolveDB(db), row, "gp"); err != nil {
		return nil, wrapLatest("gamedb.LatestPublic", err)
	}
	return row, nil
}

func (r *Impl) AppendDelay(ctx context.Context, db bun.IDB, delay int) (*GameStateDelay, error) {
	row := &GameStateDelay{Delay: delay}
	if err := appendRow(ctx, r.resolveDB(db), row); err != nil {
		return nil, fmt.Errorf("gamedb.AppendDelay: %w", err)
	}
	return row, nil
}

func (r *Impl) LatestDelay(ctx context.Context, db bun.IDB) (*GameStateDelay, error) {
	row := new(GameStateDelay)
	if err := latestRow(ctx, r.resolveDB(db), row, "gd"); err != nil {
		return nil, wrapLatest("gamedb.LatestDelay", err)
	}
	return row, nil
}

func appendRow[T any](ctx context.Context, db bun.IDB, row *T) error {
	_, err := db.NewInsert().Model(row).Returning("*").Exec(ctx)
	return err
}

// latestRow loads the highest-id row of an append-only log.
func latestRow[T any](ctx context.Context, db bun.IDB, row *T, alias string) error {
	return db.NewSelect().Model(row).OrderExpr("?.id DESC", bun.Ident(alias)).Limit(1).Scan(ctx)
}

func wrapLatest(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoSetting
	}
	return fmt.Errorf("%s: %w", op, err)
}
