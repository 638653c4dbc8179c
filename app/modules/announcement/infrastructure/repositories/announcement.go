package announcementdb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new announcement repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) Create(ctx context.Context, db bun.IDB, a *Announcement) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(a).Returning("id, created_on").Exec(ctx); err != nil {
		return fmt.Errorf("announcementdb.Create: %w", err)
	}
	return nil
}

func (r *Impl) List(ctx context.Context, db bun.IDB) ([]Announcement, error) {
	db = r.resolveDB(db)
	var out []Announcement
	if err := db.NewSelect().Model(&out).Order("an.id DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("announcementdb.List: %w", err)
	}
	return out, nil
}
