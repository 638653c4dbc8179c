package patch

import (
	"context"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	patchservice "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/application"
	patchhandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/handlers"
	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the patch module: uploads, test results and service
// execution profiles.
type Module struct {
	Repo     patchdb.Repository
	Service  *patchservice.PatchService
	Handlers *patchhandlers.PatchHandlers
}

// NewPatchModule creates the patch module.
func NewPatchModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	deps patchservice.Deps,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "patch.NewPatchModule initializing")

	repo := patchdb.NewRepository(db)
	service := patchservice.NewPatchService(repo, deps, obs.Logger, obs.Metrics, obs.Tracer, db)
	handlers := patchhandlers.NewPatchHandlers(service, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{Repo: repo, Service: service, Handlers: handlers}, nil
}

// RegisterDeleters makes patches and single results deletable through the
// archive. Deleting a patch cascades to its results.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("patch", patchdb.NewDeleter(m.Repo))
	reg.Register("patch_result", archivedb.NewRowDeleter[patchdb.PatchResult]("UploadedPatchResult"))
}

// Close is a no-op.
func (m *Module) Close() error { return nil }
