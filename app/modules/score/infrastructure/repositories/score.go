package scoredb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ErrNoCache is returned when a tick has no cached score.
var ErrNoCache = fmt.Errorf("cached tick score %w", apperrors.ErrNotFound)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new score cache repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetCachedScores(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) (*TickScores, error) {
	db = r.resolveDB(db)
	row := new(CachedTickScores)
	if err := db.NewSelect().Model(row).Where("cts.tick_id = ?", tick).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoCache
		}
		return nil, fmt.Errorf("scoredb.GetCachedScores: %w", err)
	}
	if row.Scores == nil {
		return nil, ErrNoCache
	}
	return row.Scores, nil
}

func (r *Impl) PutCachedScores(ctx context.Context, db bun.IDB, scores *TickScores) error {
	db = r.resolveDB(db)
	row := &CachedTickScores{TickID: scores.TickID, Scores: scores}
	if _, err := db.NewInsert().Model(row).On("CONFLICT (tick_id) DO NOTHING").Exec(ctx); err != nil {
		return fmt.Errorf("scoredb.PutCachedScores: %w", err)
	}
	return nil
}

func (r *Impl) DeleteCachedScores(ctx context.Context, db bun.IDB, ticks []sharedtypes.TickID) (int, error) {
	if len(ticks) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*CachedTickScores)(nil)).Where("tick_id IN (?)", bun.In(ticks)).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoredb.DeleteCachedScores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scoredb.DeleteCachedScores: %w", err)
	}
	return int(n), nil
}

func (r *Impl) DeleteCachedScoresFrom(ctx context.Context, db bun.IDB, from sharedtypes.TickID) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*CachedTickScores)(nil)).Where("tick_id >= ?", from).Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("scoredb.DeleteCachedScoresFrom: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("scoredb.DeleteCachedScoresFrom: %w", err)
	}
	return int(n), nil
}
