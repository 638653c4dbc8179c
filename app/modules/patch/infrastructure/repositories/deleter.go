package patchdb

import (
	"context"

	"github.com/uptrace/bun"
)

// ArchivedPatch is the tombstone form of a patch. Unlike the API form it
// keeps the file.
type ArchivedPatch struct {
	*Patch
	UploadedFile []byte `json:"uploaded_file"`
}

// Deleter tombstones a patch with its file and its whole result history,
// then removes the patch and lets the results cascade.
type Deleter struct {
	repo Repository
}

func NewDeleter(repo Repository) *Deleter {
	return &Deleter{repo: repo}
}

func (d *Deleter) TypeName() string { return "UploadedPatch" }

func (d *Deleter) Snapshot(ctx context.Context, db bun.IDB, id int64) (any, error) {
	patch, err := d.repo.GetPatch(ctx, db, id)
	if err != nil {
		return nil, err
	}
	return &ArchivedPatch{Patch: patch, UploadedFile: patch.UploadedFile}, nil
}

func (d *Deleter) Delete(ctx context.Context, db bun.IDB, id int64) error {
	return d.repo.DeletePatch(ctx, db, id)
}
