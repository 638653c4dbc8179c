package app

import (
	"context"
	"fmt"

	activitymigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories/migrations"
	announcementmigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories/migrations"
	archivemigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories/migrations"
	eventmigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories/migrations"
	flagmigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories/migrations"
	gamemigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories/migrations"
	patchmigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories/migrations"
	rostermigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories/migrations"
	scoremigrations "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// ModuleMigrator pairs a module name with its bun migrator.
type ModuleMigrator struct {
	Name     string
	Migrator *migrate.Migrator
}

// Migrators returns one migrator per module in foreign key order: roster and
// game tables before the tables that reference them.
func Migrators(db *bun.DB) []ModuleMigrator {
	return []ModuleMigrator{
		{"roster", migrate.NewMigrator(db, rostermigrations.Migrations)},
		{"game", migrate.NewMigrator(db, gamemigrations.Migrations)},
		{"archive", migrate.NewMigrator(db, archivemigrations.Migrations)},
		{"activity", migrate.NewMigrator(db, activitymigrations.Migrations)},
		{"flag", migrate.NewMigrator(db, flagmigrations.Migrations)},
		{"event", migrate.NewMigrator(db, eventmigrations.Migrations)},
		{"score", migrate.NewMigrator(db, scoremigrations.Migrations)},
		{"patch", migrate.NewMigrator(db, patchmigrations.Migrations)},
		{"announcement", migrate.NewMigrator(db, announcementmigrations.Migrations)},
	}
}

// MigrateAll initializes the migration tables and applies every module's
// pending migrations followed by River's schema.
func MigrateAll(ctx context.Context, db *bun.DB, dsn string) error {
	for _, m := range Migrators(db) {
		if err := m.Migrator.Init(ctx); err != nil {
			return fmt.Errorf("failed to init %s migrations: %w", m.Name, err)
		}
		if _, err := m.Migrator.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run %s migrations: %w", m.Name, err)
		}
	}
	return MigrateRiver(ctx, dsn)
}

// MigrateRiver applies River's queue tables.
func MigrateRiver(ctx context.Context, dsn string) error {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("failed to parse DSN for River migrations: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool for River migrations: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("failed to create River migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{}); err != nil {
		return fmt.Errorf("failed to run River migrations: %w", err)
	}
	return nil
}
