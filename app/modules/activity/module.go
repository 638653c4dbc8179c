package activity

import (
	"context"

	activityservice "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/application"
	activityhandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/handlers"
	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the activity module. Tracker is shared with the flag and
// score modules.
type Module struct {
	Repo     activitydb.Repository
	Tracker  *activityservice.Tracker
	Service  *activityservice.ActivityService
	Handlers *activityhandlers.ActivityHandlers
}

// NewActivityModule creates the activity module.
func NewActivityModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	ticks activityservice.TickReader,
	services activityservice.ServiceReader,
	validWindow int,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "activity.NewActivityModule initializing")

	repo := activitydb.NewRepository(db)
	tracker := activityservice.NewTracker(repo, ticks, validWindow)
	service := activityservice.NewActivityService(repo, tracker, ticks, services, obs.Logger, obs.Metrics, obs.Tracer, db)
	handlers := activityhandlers.NewActivityHandlers(service, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{Repo: repo, Tracker: tracker, Service: service, Handlers: handlers}, nil
}

// RegisterDeleters makes toggle rows deletable through the archive.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("toggle", archivedb.NewRowDeleter[activitydb.Toggle]("ServiceToggle"))
}

// Close is a no-op.
func (m *Module) Close() error { return nil }
