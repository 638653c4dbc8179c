package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Black-And-White-Club/ctf-engine/app/modules/activity"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/announcement"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/archive"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/event"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/flag"
	flagservice "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/application"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/game"
	gameservice "github.com/Black-And-White-Club/ctf-engine/app/modules/game/application"
	gamequeue "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/queue"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/patch"
	patchservice "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/application"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/roster"
	"github.com/Black-And-White-Club/ctf-engine/app/modules/score"
	scoreservice "github.com/Black-And-White-Club/ctf-engine/app/modules/score/application"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// App holds every module of the engine and the shared infrastructure they
// were built on.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	Router        chi.Router

	Modules Modules
	Queue   *gamequeue.Service

	publisher  message.Publisher
	subscriber message.Subscriber
	redis      redis.UniversalClient
	wg         sync.WaitGroup
}

// Modules is the set of domain modules in construction order.
type Modules struct {
	Roster   *roster.Module
	Game     *game.Module
	Archive  *archive.Module
	Activity *activity.Module
	Event    *event.Module
	Flag     *flag.Module
	Score    *score.Module

	Patch        *patch.Module
	Announcement *announcement.Module
}

// Options tweak Initialize for one-shot commands and tests.
type Options struct {
	// WithoutQueue skips the River client, leaving the tick clock off.
	WithoutQueue bool
	// Observability replaces the prometheus-backed default.
	Observability *observability.Observability
}

// Initialize opens the database, the event bus and the leaderboard cache and
// builds every module on top of them.
func Initialize(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	if opts.Observability != nil {
		app.Observability = *opts.Observability
	} else {
		level := slog.LevelInfo
		if cfg.IsTest() {
			level = slog.LevelDebug
		}
		obs, err := observability.New(observability.Config{
			Environment: cfg.Observability.Environment,
			Level:       level,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize observability: %w", err)
		}
		app.Observability = obs
	}
	logger := app.Observability.Logger

	app.DB = OpenDB(cfg.Postgres.DSN)
	if err := app.DB.PingContext(ctx); err != nil {
		app.DB.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := app.initEventBus(); err != nil {
		app.DB.Close()
		return nil, err
	}

	if cfg.Redis.Addr != "" {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	app.Router = NewRouter(app.Observability, app.health)

	api := chi.NewRouter()
	if err := app.initModules(ctx, api); err != nil {
		app.Close()
		return nil, err
	}
	app.Router.Mount("/api/v1", api)

	if !opts.WithoutQueue {
		q, err := gamequeue.NewService(
			ctx,
			logger,
			cfg.Postgres.DSN,
			app.Observability.Metrics,
			app.Modules.Game.Service,
			app.Modules.Score.Service,
			gamequeue.Options{
				ClockEnabled:  cfg.Game.ClockEnabled,
				ClockInterval: cfg.Game.ClockInterval,
				ValidWindow:   cfg.Game.ValidWindow,
			},
		)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize game queue: %w", err)
		}
		app.Queue = q
		app.Modules.Game.Service.SetSettleScheduler(q)
	}

	logger.InfoContext(ctx, "Application initialized",
		attr.Bool("nats", cfg.NATS.URL != ""),
		attr.Bool("redis", app.redis != nil),
		attr.Bool("clock", app.Queue != nil && cfg.Game.ClockEnabled),
	)
	return app, nil
}

// OpenDB returns a bun handle over pgdriver for dsn.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (app *App) initEventBus() error {
	logger := app.Observability.Logger
	if app.Config.NATS.URL != "" {
		pub, sub, err := eventbus.NewNATS(app.Config.NATS.URL, logger)
		if err != nil {
			return err
		}
		app.publisher, app.subscriber = pub, sub
		return nil
	}
	ch := eventbus.NewInMemory(logger)
	app.publisher, app.subscriber = ch, ch
	return nil
}

func (app *App) initModules(ctx context.Context, api chi.Router) error {
	cfg := app.Config
	obs := app.Observability
	bus := eventbus.New(app.publisher, obs.Logger)

	var err error
	m := &app.Modules

	if m.Roster, err = roster.NewRosterModule(ctx, obs, app.DB, api); err != nil {
		return fmt.Errorf("failed to initialize roster module: %w", err)
	}

	settings := gameservice.Settings{
		DefaultTickSeconds: cfg.Game.DefaultTickSeconds,
		DefaultStateDelay:  cfg.Game.DefaultStateDelay,
		ValidWindow:        cfg.Game.ValidWindow,
	}
	if m.Game, err = game.NewGameModule(ctx, obs, app.DB, bus, settings, api); err != nil {
		return fmt.Errorf("failed to initialize game module: %w", err)
	}

	if m.Archive, err = archive.NewArchiveModule(ctx, obs, app.DB, api); err != nil {
		return fmt.Errorf("failed to initialize archive module: %w", err)
	}

	m.Activity, err = activity.NewActivityModule(ctx, obs, app.DB, m.Game.Repo, m.Roster.Repo, cfg.Game.ValidWindow, api)
	if err != nil {
		return fmt.Errorf("failed to initialize activity module: %w", err)
	}

	m.Event, err = event.NewEventModule(ctx, obs, app.DB, m.Game.Repo, m.Archive.Repo, bus, app.subscriber, api)
	if err != nil {
		return fmt.Errorf("failed to initialize event module: %w", err)
	}

	m.Flag, err = flag.NewFlagModule(ctx, obs, app.DB, flagservice.Deps{
		Ticks:    m.Game.Repo,
		Roster:   m.Roster.Repo,
		Activity: m.Activity.Tracker,
		Events:   m.Event.Service,
		Steals:   m.Event.Repo,
	}, cfg, api)
	if err != nil {
		return fmt.Errorf("failed to initialize flag module: %w", err)
	}

	m.Score, err = score.NewScoreModule(ctx, obs, app.DB, scoreservice.Deps{
		Ticks:    m.Game.Repo,
		Roster:   m.Roster.Repo,
		Activity: m.Activity.Tracker,
		Events:   m.Event.Repo,
	}, cfg.Game.ValidWindow, app.redis, api)
	if err != nil {
		return fmt.Errorf("failed to initialize score module: %w", err)
	}

	m.Patch, err = patch.NewPatchModule(ctx, obs, app.DB, patchservice.Deps{
		Ticks:    m.Game.Repo,
		Roster:   m.Roster.Repo,
		Activity: m.Activity.Tracker,
		Bus:      bus,
	}, api)
	if err != nil {
		return fmt.Errorf("failed to initialize patch module: %w", err)
	}

	if m.Announcement, err = announcement.NewAnnouncementModule(ctx, obs, app.DB, bus, api); err != nil {
		return fmt.Errorf("failed to initialize announcement module: %w", err)
	}

	reg := m.Archive.Service
	m.Roster.RegisterDeleters(reg)
	m.Activity.RegisterDeleters(reg)
	m.Flag.RegisterDeleters(reg)
	m.Event.RegisterDeleters(reg)
	m.Patch.RegisterDeleters(reg)
	m.Announcement.RegisterDeleters(reg)
	reg.AddInvalidator(m.Activity.Service)
	reg.AddInvalidator(m.Score.Service)
	m.Event.Service.SetInvalidator(reg)
	return nil
}

// Run starts the module goroutines and the tick clock. It returns once they
// are running; Close stops them.
func (app *App) Run(ctx context.Context) error {
	app.wg.Add(3)
	go app.Modules.Roster.Run(ctx, &app.wg)
	go app.Modules.Game.Run(ctx, &app.wg)
	go app.Modules.Event.Run(ctx, &app.wg)

	if app.Queue != nil {
		if err := app.Queue.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background work and releases connections. It is safe to call
// on a partially initialized App.
func (app *App) Close() {
	logger := app.Observability.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if app.Queue != nil {
		if err := app.Queue.Stop(context.Background()); err != nil {
			logger.Error("Failed to stop game queue", attr.Error(err))
		}
	}

	m := app.Modules
	var closers []closer
	if m.Event != nil {
		closers = append(closers, m.Event)
	}
	if m.Game != nil {
		closers = append(closers, m.Game)
	}
	if m.Roster != nil {
		closers = append(closers, m.Roster)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close module", attr.String("module", fmt.Sprintf("%T", c)), attr.Error(err))
		}
	}
	app.wg.Wait()

	if app.publisher != nil {
		if err := app.publisher.Close(); err != nil {
			logger.Error("Failed to close publisher", attr.Error(err))
		}
	}
	if app.subscriber != nil && any(app.subscriber) != any(app.publisher) {
		if err := app.subscriber.Close(); err != nil {
			logger.Error("Failed to close subscriber", attr.Error(err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			logger.Error("Failed to close redis client", attr.Error(err))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			logger.Error("Failed to close database", attr.Error(err))
		}
	}
}

type closer interface{ Close() error }

// Publisher returns the message publisher behind the event bus.
func (app *App) Publisher() message.Publisher {
	return app.publisher
}
