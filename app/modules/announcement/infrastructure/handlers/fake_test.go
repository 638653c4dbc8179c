package announcementhandlers

import (
	"context"

	announcementdb "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories"
)

type FakeService struct {
	PostFunc func(ctx context.Context, text string) (*announcementdb.Announcement, error)
	ListFunc func(ctx context.Context) ([]announcementdb.Announcement, error)
}

func (f *FakeService) Post(ctx context.Context, text string) (*announcementdb.Announcement, error) {
	if f.PostFunc != nil {
		return f.PostFunc(ctx, text)
	}
	return &announcementdb.Announcement{ID: 1, Text: text}, nil
}

func (f *FakeService) List(ctx context.Context) ([]announcementdb.Announcement, error) {
	if f.ListFunc != nil {
		return f.ListFunc(ctx)
	}
	return []announcementdb.Announcement{}, nil
}
