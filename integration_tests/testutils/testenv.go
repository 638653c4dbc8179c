package testutils

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/Black-And-White-Club/ctf-engine/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the containers shared by every test in a package.
// Postgres is always started; NATS and Redis start on first use.
type TestEnvironment struct {
	Ctx context.Context
	DB  *bun.DB
	DSN string

	mu         sync.Mutex
	containers []testcontainers.Container
	natsURL    string
	redisAddr  string
}

var (
	globalEnv     *TestEnvironment
	globalEnvErr  error
	globalEnvOnce sync.Once
)

// GetOrCreateTestEnv returns the package-wide environment, starting Postgres
// and running migrations on first call. Tests are skipped under -short.
func GetOrCreateTestEnv(t *testing.T) *TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	globalEnvOnce.Do(func() {
		globalEnv, globalEnvErr = newTestEnvironment(context.Background())
	})
	if globalEnvErr != nil {
		t.Fatalf("failed to set up test environment: %v", globalEnvErr)
	}
	return globalEnv
}

func newTestEnvironment(ctx context.Context) (*TestEnvironment, error) {
	pg, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		return nil, err
	}
	env := &TestEnvironment{Ctx: ctx, DSN: dsn, containers: []testcontainers.Container{pg}}

	env.DB = app.OpenDB(dsn)
	if err := app.MigrateAll(ctx, env.DB, dsn); err != nil {
		env.terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return env, nil
}

// NATSURL starts a NATS container on first use.
func (env *TestEnvironment) NATSURL(t *testing.T) string {
	t.Helper()
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.natsURL == "" {
		c, url, err := containers.SetupNatsContainer(env.Ctx)
		if err != nil {
			t.Fatalf("failed to start NATS: %v", err)
		}
		env.containers = append(env.containers, c)
		env.natsURL = url
	}
	return env.natsURL
}

// RedisAddr starts a Redis container on first use.
func (env *TestEnvironment) RedisAddr(t *testing.T) string {
	t.Helper()
	env.mu.Lock()
	defer env.mu.Unlock()
	if env.redisAddr == "" {
		c, addr, err := containers.SetupRedisContainer(env.Ctx)
		if err != nil {
			t.Fatalf("failed to start Redis: %v", err)
		}
		env.containers = append(env.containers, c)
		env.redisAddr = addr
	}
	return env.redisAddr
}

// Config returns a test config pointing at the Postgres container. NATS and
// Redis stay disabled unless the caller fills them in.
func (env *TestEnvironment) Config() *config.Config {
	cfg := &config.Config{
		Postgres:      config.PostgresConfig{DSN: env.DSN},
		Observability: config.ObservabilityConfig{Environment: "test"},
		Flag:          config.FlagConfig{Prefix: config.DefaultFlagPrefix},
	}
	cfg.ApplyDefaults()
	return cfg
}

// NewApp cleans the database and builds the engine from cfg without the tick
// clock. The app is closed when the test ends.
func (env *TestEnvironment) NewApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	return env.newApp(t, cfg, app.Options{WithoutQueue: true})
}

// NewRunningApp cleans the database, builds the engine with its River queue
// and starts it. The periodic clock only runs when cfg enables it.
func (env *TestEnvironment) NewRunningApp(t *testing.T, cfg *config.Config) *app.App {
	t.Helper()
	a := env.newApp(t, cfg, app.Options{})
	if err := a.Run(env.Ctx); err != nil {
		t.Fatalf("failed to run app: %v", err)
	}
	return a
}

func (env *TestEnvironment) newApp(t *testing.T, cfg *config.Config, opts app.Options) *app.App {
	t.Helper()
	if err := CleanupDatabase(env.Ctx, env.DB); err != nil {
		t.Fatalf("failed to clean database: %v", err)
	}

	obs := observability.NewNoop(slog.New(slog.NewTextHandler(io.Discard, nil)))
	opts.Observability = &obs
	a, err := app.Initialize(env.Ctx, cfg, opts)
	if err != nil {
		t.Fatalf("failed to initialize app: %v", err)
	}
	t.Cleanup(a.Close)
	return a
}

// Shutdown terminates every container. Call it from TestMain after m.Run.
func Shutdown() {
	if globalEnv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	globalEnv.terminate(ctx)
}

func (env *TestEnvironment) terminate(ctx context.Context) {
	if env.DB != nil {
		env.DB.Close()
	}
	for _, c := range env.containers {
		if err := c.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}
}
