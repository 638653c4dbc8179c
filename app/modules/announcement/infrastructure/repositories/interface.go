package announcementdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository defines the contract for announcement persistence.
type Repository interface {
	Create(ctx context.Context, db bun.IDB, a *Announcement) error
	// List returns announcements newest first.
	List(ctx context.Context, db bun.IDB) ([]Announcement, error)
}
