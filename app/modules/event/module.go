package event

import (
	"context"
	"sync"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	eventservice "github.com/Black-And-White-Club/ctf-engine/app/modules/event/application"
	eventhandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/handlers"
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	eventrouter "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/router"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the event module.
type Module struct {
	Repo          eventdb.Repository
	Service       *eventservice.EventService
	Handlers      *eventhandlers.EventHandlers
	IngestRouter  *eventrouter.IngestRouter
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewEventModule creates the event module. The ingest router is built only
// when subscriber is non-nil.
func NewEventModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	ticks eventservice.TickReader,
	archive archivedb.Repository,
	bus eventbus.Publisher,
	subscriber message.Subscriber,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "event.NewEventModule initializing")

	repo := eventdb.NewRepository(db)
	service := eventservice.NewEventService(repo, ticks, archive, bus, logger, obs.Metrics, obs.Tracer, db)
	handlers := eventhandlers.NewEventHandlers(service, logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	m := &Module{
		Repo:          repo,
		Service:       service,
		Handlers:      handlers,
		observability: obs,
	}
	if subscriber != nil {
		router, err := eventrouter.NewIngestRouter(logger, subscriber, obs.Registry)
		if err != nil {
			return nil, err
		}
		router.Configure(service)
		m.IngestRouter = router
	}
	return m, nil
}

// RegisterDeleters makes events deletable through the archive.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("event", eventdb.NewDeleter(m.Repo))
}

// Run drives the ingest router until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting event module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.IngestRouter == nil {
		<-ctx.Done()
		return
	}
	if err := m.IngestRouter.Run(ctx); err != nil {
		logger.ErrorContext(ctx, "Event ingest router stopped", attr.Error(err))
	}
	logger.InfoContext(ctx, "Event module goroutine stopped")
}

// Close stops the ingest router.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.IngestRouter != nil {
		return m.IngestRouter.Close()
	}
	return nil
}
