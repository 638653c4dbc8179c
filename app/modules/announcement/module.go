package announcement

import (
	"context"

	announcementservice "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/application"
	announcementhandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/handlers"
	announcementdb "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories"
	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the announcement module.
type Module struct {
	Repo     announcementdb.Repository
	Service  *announcementservice.AnnouncementService
	Handlers *announcementhandlers.AnnouncementHandlers
}

// NewAnnouncementModule creates the announcement module.
func NewAnnouncementModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	bus eventbus.Publisher,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "announcement.NewAnnouncementModule initializing")

	repo := announcementdb.NewRepository(db)
	service := announcementservice.NewAnnouncementService(repo, bus, obs.Logger, obs.Metrics, obs.Tracer, db)
	handlers := announcementhandlers.NewAnnouncementHandlers(service, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}
	return &Module{Repo: repo, Service: service, Handlers: handlers}, nil
}

// RegisterDeleters makes announcements deletable through the archive.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("announcement", archivedb.NewRowDeleter[announcementdb.Announcement]("Announcement"))
}

// Close is a no-op.
func (m *Module) Close() error { return nil }
