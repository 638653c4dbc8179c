package archive

import (
	"context"

	archiveservice "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/application"
	archivehandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/handlers"
	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Registry is what other modules see of the archive: a place to register
// their deletable kinds.
type Registry interface {
	Register(kind string, d archivedb.Deleter)
}

// Module represents the archive module.
type Module struct {
	Repo     archivedb.Repository
	Service  *archiveservice.ArchiveService
	Handlers *archivehandlers.ArchiveHandlers
}

// NewArchiveModule creates the archive module. Other modules register their
// deleters on Service after construction.
func NewArchiveModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "archive.NewArchiveModule initializing")

	repo := archivedb.NewRepository(db)
	service := archiveservice.NewArchiveService(repo, obs.Logger, obs.Metrics, obs.Tracer, db)
	handlers := archivehandlers.NewArchiveHandlers(service, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{Repo: repo, Service: service, Handlers: handlers}, nil
}

// Close is a no-op; the archive holds no background resources.
func (m *Module) Close() error { return nil }
