package archivedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/pgerr"
	"github.com/uptrace/bun"
)

// ErrRowNotFound is returned when the row to delete does not exist.
var ErrRowNotFound = fmt.Errorf("row %w", apperrors.ErrNotFound)

// Repository writes tombstones. The engine never reads them back.
type Repository interface {
	Insert(ctx context.Context, db bun.IDB, typeName, content string) (*Tombstone, error)
}

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new tombstone repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, typeName, content string) (*Tombstone, error) {
	db = r.resolveDB(db)
	row := &Tombstone{TypeName: typeName, Content: content}
	if _, err := db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return nil, fmt.Errorf("archivedb.Insert: %w", err)
	}
	return row, nil
}

// Deleter knows how to snapshot and remove one kind of row.
type Deleter interface {
	TypeName() string
	Snapshot(ctx context.Context, db bun.IDB, id int64) (any, error)
	Delete(ctx context.Context, db bun.IDB, id int64) error
}

// RowDeleter deletes a single-table model keyed by an "id" column.
type RowDeleter[T any] struct {
	typeName string
}

// NewRowDeleter creates a RowDeleter for model T.
func NewRowDeleter[T any](typeName string) *RowDeleter[T] {
	return &RowDeleter[T]{typeName: typeName}
}

func (d *RowDeleter[T]) TypeName() string { return d.typeName }

func (d *RowDeleter[T]) Snapshot(ctx context.Context, db bun.IDB, id int64) (any, error) {
	row := new(T)
	err := db.NewSelect().Model(row).Where("?TableAlias.id = ?", id).For("UPDATE").Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRowNotFound
		}
		return nil, fmt.Errorf("archivedb.Snapshot(%s): %w", d.typeName, err)
	}
	return row, nil
}

func (d *RowDeleter[T]) Delete(ctx context.Context, db bun.IDB, id int64) error {
	res, err := db.NewDelete().Model((*T)(nil)).Where("?TableAlias.id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("archivedb.Delete(%s): %w", d.typeName, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRowNotFound
	}
	return nil
}

// Invalidator drops derived data computed from a row that is being deleted.
// It runs on the delete's transaction with the row's snapshot.
type Invalidator interface {
	Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error
}

// Invalidators runs each member in order and stops at the first error.
type Invalidators []Invalidator

func (is Invalidators) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	for _, inv := range is {
		if err := inv.Invalidate(ctx, db, typeName, snapshot); err != nil {
			return err
		}
	}
	return nil
}

// ErrStillReferenced is returned when other rows still point at the target.
var ErrStillReferenced = fmt.Errorf("row is still referenced: %w", apperrors.ErrPrecondition)

// DeleteWithTombstone snapshots the row, writes its tombstone, deletes it and
// then lets each invalidator drop what was derived from it, all on db. Run it
// inside a transaction so a failed step drops the tombstone too.
func DeleteWithTombstone(ctx context.Context, db bun.IDB, repo Repository, d Deleter, id int64, invalidators ...Invalidator) (*Tombstone, error) {
	snapshot, err := d.Snapshot(ctx, db, id)
	if err != nil {
		return nil, err
	}
	content, err := FormatContent(d.TypeName(), snapshot)
	if err != nil {
		return nil, err
	}
	tombstone, err := repo.Insert(ctx, db, d.TypeName(), content)
	if err != nil {
		return nil, err
	}
	if err := d.Delete(ctx, db, id); err != nil {
		if pgerr.IsForeignKeyViolation(err) {
			return nil, fmt.Errorf("%s %d: %w", d.TypeName(), id, ErrStillReferenced)
		}
		return nil, err
	}
	if err := Invalidators(invalidators).Invalidate(ctx, db, d.TypeName(), snapshot); err != nil {
		return nil, fmt.Errorf("invalidate %s %d: %w", d.TypeName(), id, err)
	}
	return tombstone, nil
}

// FormatContent renders a snapshot as "TypeName: <json>".
func FormatContent(typeName string, snapshot any) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to serialise %s snapshot: %w", typeName, err)
	}
	return typeName + ": " + string(data), nil
}
