package roster

import (
	"context"
	"sync"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	rosterhandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/handlers"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the roster module.
type Module struct {
	Repo          rosterdb.Repository
	Service       *rosterservice.RosterService
	Handlers      *rosterhandlers.RosterHandlers
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewRosterModule creates and initializes a new roster module. Routes are
// mounted only when httpRouter is non-nil.
func NewRosterModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "roster.NewRosterModule initializing")

	repo := rosterdb.NewRepository(db)
	service := rosterservice.NewRosterService(repo, logger, obs.Metrics, obs.Tracer, db)
	handlers := rosterhandlers.NewRosterHandlers(service, logger)

	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{
		Repo:          repo,
		Service:       service,
		Handlers:      handlers,
		observability: obs,
	}, nil
}

// RegisterDeleters makes teams and services deletable through the archive.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("team", archivedb.NewRowDeleter[rosterdb.Team]("Team"))
	reg.Register("service", archivedb.NewRowDeleter[rosterdb.Service]("Service"))
}

// Run blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting roster module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Roster module goroutine stopped")
}

// Close shuts down the roster module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Logger.Info("Roster module stopped")
	return nil
}
