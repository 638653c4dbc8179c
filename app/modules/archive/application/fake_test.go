package archiveservice

import (
	"context"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Tombstone Repo
// ------------------------

type FakeTombstoneRepo struct {
	trace []string
	rows  []archivedb.Tombstone
}

func NewFakeTombstoneRepo() *FakeTombstoneRepo {
	return &FakeTombstoneRepo{trace: []string{}}
}

func (f *FakeTombstoneRepo) Insert(ctx context.Context, db bun.IDB, typeName, content string) (*archivedb.Tombstone, error) {
	f.trace = append(f.trace, "Insert")
	row := archivedb.Tombstone{ID: int64(len(f.rows) + 1), TypeName: typeName, Content: content}
	f.rows = append(f.rows, row)
	return &row, nil
}

// ------------------------
// Fake Deleter
// ------------------------

type widget struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type FakeDeleter struct {
	trace  *[]string
	rows   map[int64]widget
	delErr error
}

func (f *FakeDeleter) TypeName() string { return "Widget" }

func (f *FakeDeleter) Snapshot(ctx context.Context, db bun.IDB, id int64) (any, error) {
	*f.trace = append(*f.trace, "Snapshot")
	w, ok := f.rows[id]
	if !ok {
		return nil, archivedb.ErrRowNotFound
	}
	return w, nil
}

func (f *FakeDeleter) Delete(ctx context.Context, db bun.IDB, id int64) error {
	*f.trace = append(*f.trace, "Delete")
	if f.delErr != nil {
		return f.delErr
	}
	delete(f.rows, id)
	return nil
}

// ------------------------
// Fake Invalidator
// ------------------------

type invalidation struct {
	typeName string
	snapshot any
}

type FakeInvalidator struct {
	trace *[]string
	calls []invalidation
	err   error
}

func (f *FakeInvalidator) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	*f.trace = append(*f.trace, "Invalidate")
	f.calls = append(f.calls, invalidation{typeName: typeName, snapshot: snapshot})
	return f.err
}
