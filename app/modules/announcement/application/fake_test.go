package announcementservice

import (
	"context"

	announcementdb "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories"
	"github.com/uptrace/bun"
)

type FakeAnnouncementRepo struct {
	trace []string
	rows  []announcementdb.Announcement

	CreateFunc func(ctx context.Context, db bun.IDB, a *announcementdb.Announcement) error
}

func NewFakeAnnouncementRepo() *FakeAnnouncementRepo {
	return &FakeAnnouncementRepo{trace: []string{}}
}

func (f *FakeAnnouncementRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeAnnouncementRepo) Create(ctx context.Context, db bun.IDB, a *announcementdb.Announcement) error {
	f.trace = append(f.trace, "Create")
	if f.CreateFunc != nil {
		return f.CreateFunc(ctx, db, a)
	}
	a.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *a)
	return nil
}

func (f *FakeAnnouncementRepo) List(ctx context.Context, db bun.IDB) ([]announcementdb.Announcement, error) {
	f.trace = append(f.trace, "List")
	var out []announcementdb.Announcement
	for i := len(f.rows) - 1; i >= 0; i-- {
		out = append(out, f.rows[i])
	}
	return out, nil
}

type FakeBus struct {
	topics []string
}

func (f *FakeBus) Publish(ctx context.Context, topic string, payload any) error {
	f.topics = append(f.topics, topic)
	return nil
}
