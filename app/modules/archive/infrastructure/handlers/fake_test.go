package archivehandlers

import (
	"context"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
)

type FakeService struct {
	KindsFunc        func() []string
	DeleteEntityFunc func(ctx context.Context, kind string, id int64) (int64, error)
}

func (f *FakeService) Register(string, archivedb.Deleter) {}

func (f *FakeService) AddInvalidator(archivedb.Invalidator) {}

func (f *FakeService) Kinds() []string {
	if f.KindsFunc != nil {
		return f.KindsFunc()
	}
	return nil
}

func (f *FakeService) DeleteEntity(ctx context.Context, kind string, id int64) (int64, error) {
	if f.DeleteEntityFunc != nil {
		return f.DeleteEntityFunc(ctx, kind, id)
	}
	return 0, nil
}
