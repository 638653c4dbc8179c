package eventdb

import (
	"context"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Deleter tombstones the whole event, header and payload, then removes the
// header and lets the payload rows cascade.
type Deleter struct {
	repo Repository
}

func NewDeleter(repo Repository) *Deleter {
	return &Deleter{repo: repo}
}

func (d *Deleter) TypeName() string { return "Event" }

func (d *Deleter) Snapshot(ctx context.Context, db bun.IDB, id int64) (any, error) {
	ev, err := d.repo.Get(ctx, db, sharedtypes.EventID(id))
	if err != nil {
		return nil, err
	}
	return ev, nil
}

func (d *Deleter) Delete(ctx context.Context, db bun.IDB, id int64) error {
	return d.repo.DeleteHeader(ctx, db, sharedtypes.EventID(id))
}
