package flag

import (
	"context"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	flagservice "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/application"
	flaghandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/handlers"
	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the flag module.
type Module struct {
	Repo     flagdb.Repository
	Service  *flagservice.FlagService
	Handlers *flaghandlers.FlagHandlers
}

// NewFlagModule creates the flag module from the game, flag and HTTP config
// sections.
func NewFlagModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	deps flagservice.Deps,
	cfg *config.Config,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "flag.NewFlagModule initializing")

	repo := flagdb.NewRepository(db)
	service := flagservice.NewFlagService(
		repo,
		deps,
		flagservice.NewGenerator(cfg.Flag),
		cfg.Game.ValidWindow,
		obs.Logger,
		obs.Metrics,
		obs.Tracer,
		db,
	)
	limiter := flaghandlers.NewSubmitLimiter(cfg.HTTP.SubmitRate, cfg.HTTP.SubmitBurst)
	handlers := flaghandlers.NewFlagHandlers(service, limiter, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{Repo: repo, Service: service, Handlers: handlers}, nil
}

// RegisterDeleters makes flags and submissions deletable through the archive.
func (m *Module) RegisterDeleters(reg interface {
	Register(kind string, d archivedb.Deleter)
}) {
	reg.Register("flag", archivedb.NewRowDeleter[flagdb.Flag]("Flag"))
	reg.Register("submission", archivedb.NewRowDeleter[flagdb.Submission]("FlagSubmission"))
}

// Close is a no-op.
func (m *Module) Close() error { return nil }
