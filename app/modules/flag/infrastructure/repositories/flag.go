package flagdb

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
	// ErrFlagNotFound is returned when no flag matches the query.
	ErrFlagNotFound = fmt.Errorf("flag %w", apperrors.ErrNotFound)
	// ErrSubmissionNotFound is returned when a team has not submitted a text.
	ErrSubmissionNotFound = fmt.Errorf("submission %w", apperrors.ErrNotFound)
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new flag repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) InsertFlagIfAbsent(ctx context.Context, db bun.IDB, flag *Flag) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().Model(flag).
		On("CONFLICT (team_id, service_id, tick_id) DO NOTHING").
		Returning("id, created_on").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("flagdb.InsertFlagIfAbsent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("flagdb.InsertFlagIfAbsent: %w", err)
	}
	return n > 0, nil
}

func (r *Impl) GetFlagFor(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, service sharedtypes.ServiceID, tick sharedtypes.TickID) (*Flag, error) {
	db = r.resolveDB(db)
	flag := new(Flag)
	err := db.NewSelect().Model(flag).
		Where("fl.team_id = ?", team).
		Where("fl.service_id = ?", service).
		Where("fl.tick_id = ?", tick).
		Scan(ctx)
	if err != nil {
		return nil, notFound("flagdb.GetFlagFor", err, ErrFlagNotFound)
	}
	return flag, nil
}

func (r *Impl) LatestFlag(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID, team sharedtypes.TeamID) (*Flag, error) {
	db = r.resolveDB(db)
	flag := new(Flag)
	err := db.NewSelect().Model(flag).
		Where("fl.team_id = ?", team).
		Where("fl.service_id = ?", service).
		Order("fl.created_on DESC", "fl.id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound("flagdb.LatestFlag", err, ErrFlagNotFound)
	}
	return flag, nil
}

func (r *Impl) GetFlagByText(ctx context.Context, db bun.IDB, text string) (*Flag, error) {
	db = r.resolveDB(db)
	flag := new(Flag)
	if err := db.NewSelect().Model(flag).Where("fl.flag = ?", text).Scan(ctx); err != nil {
		return nil, notFound("flagdb.GetFlagByText", err, ErrFlagNotFound)
	}
	return flag, nil
}

func (r *Impl) FlagsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]Flag, error) {
	db = r.resolveDB(db)
	flags := []Flag{}
	if err := db.NewSelect().Model(&flags).Where("fl.tick_id = ?", tick).Order("fl.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("flagdb.FlagsForTick: %w", err)
	}
	return flags, nil
}

func (r *Impl) GetSubmission(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, text string) (*Submission, error) {
	db = r.resolveDB(db)
	sub := new(Submission)
	err := db.NewSelect().Model(sub).
		Where("fs.team_id = ?", team).
		Where("fs.submission = ?", text).
		Scan(ctx)
	if err != nil {
		return nil, notFound("flagdb.GetSubmission", err, ErrSubmissionNotFound)
	}
	return sub, nil
}

func (r *Impl) InsertSubmissionIfAbsent(ctx context.Context, db bun.IDB, submission *Submission) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().Model(submission).
		On("CONFLICT (team_id, submission) DO NOTHING").
		Returning("id, created_on").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("flagdb.InsertSubmissionIfAbsent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("flagdb.InsertSubmissionIfAbsent: %w", err)
	}
	return n > 0, nil
}

func (r *Impl) ListSubmissions(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]Submission, error) {
	db = r.resolveDB(db)
	subs := []Submission{}
	if err := db.NewSelect().Model(&subs).Where("fs.team_id = ?", team).Order("fs.id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("flagdb.ListSubmissions: %w", err)
	}
	return subs, nil
}

func notFound(op string, err, sentinel error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}
