package game

import (
	"context"
	"sync"

	gameservice "github.com/Black-And-White-Club/ctf-engine/app/modules/game/application"
	gamehandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/handlers"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the game module.
type Module struct {
	Repo          gamedb.Repository
	Service       *gameservice.GameService
	Handlers      *gamehandlers.GameHandlers
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewGameModule creates and initializes a new game module.
func NewGameModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	bus eventbus.Publisher,
	settings gameservice.Settings,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "game.NewGameModule initializing")

	repo := gamedb.NewRepository(db)
	service := gameservice.NewGameService(repo, bus, settings, logger, obs.Metrics, obs.Tracer, db)
	handlers := gamehandlers.NewGameHandlers(service, logger)

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

// Run blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Logger
	logger.InfoContext(ctx, "Starting game module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Game module goroutine stopped")
}

// Close shuts down the game module.
func (m *Module) Close() error {
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.observability.Logger.Info("Game module stopped")
	return nil
}
