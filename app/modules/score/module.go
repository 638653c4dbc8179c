package score

import (
	"context"

	scoreservice "github.com/Black-And-White-Club/ctf-engine/app/modules/score/application"
	scorehandlers "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/handlers"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/leaderboard"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
)

// Module represents the score module.
type Module struct {
	Repo     scoredb.Repository
	Service  *scoreservice.ScoreService
	Handlers *scorehandlers.ScoreHandlers
}

// NewScoreModule creates the score module. A nil redis client disables the
// leaderboard mirror.
func NewScoreModule(
	ctx context.Context,
	obs observability.Observability,
	db *bun.DB,
	deps scoreservice.Deps,
	validWindow int,
	redisClient redis.UniversalClient,
	httpRouter chi.Router,
) (*Module, error) {
	obs.Logger.InfoContext(ctx, "score.NewScoreModule initializing")

	if redisClient != nil {
		deps.Leaderboard = leaderboard.NewRedis(redisClient)
	}

	repo := scoredb.NewRepository(db)
	service := scoreservice.NewScoreService(repo, deps, validWindow, obs.Logger, obs.Metrics, obs.Tracer, db)
	handlers := scorehandlers.NewScoreHandlers(service, obs.Logger)
	if httpRouter != nil {
		handlers.RegisterRoutes(httpRouter)
	}

	return &Module{Repo: repo, Service: service, Handlers: handlers}, nil
}

// Close is a no-op.
func (m *Module) Close() error { return nil }
