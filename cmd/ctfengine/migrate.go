package main

import (
	"fmt"
	"strings"

	"github.com/Black-And-White-Club/ctf-engine/app"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

// withMigrators opens the database named by the config flag and hands the
// module migrators to fn.
func withMigrators(c *cli.Context, fn func(cfg *config.Config, db *bun.DB, migrators []app.ModuleMigrator) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db := app.OpenDB(cfg.Postgres.DSN)
	defer db.Close()
	return fn(cfg, db, app.Migrators(db))
}

func findMigrator(migrators []app.ModuleMigrator, name string) (*migrate.Migrator, error) {
	for _, m := range migrators {
		if m.Name == name {
			return m.Migrator, nil
		}
	}
	return nil, fmt.Errorf("invalid module name: %q", name)
}

func newMigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						for _, m := range migrators {
							fmt.Printf("Initializing migrations for module: %s\n", m.Name)
							if err := m.Migrator.Init(c.Context); err != nil {
								return fmt.Errorf("failed to init %s migrations: %w", m.Name, err)
							}
						}
						return nil
					})
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(cfg *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						for _, m := range migrators {
							group, err := m.Migrator.Migrate(c.Context)
							if err != nil {
								return fmt.Errorf("failed to run %s migrations: %w", m.Name, err)
							}
							if group.IsZero() {
								fmt.Printf("No new migrations to run for module: %s\n", m.Name)
							} else {
								fmt.Printf("Migrated module: %s to %s\n", m.Name, group)
							}
						}
						if err := app.MigrateRiver(c.Context, cfg.Postgres.DSN); err != nil {
							return err
						}
						fmt.Println("River queue migrations completed")
						return nil
					})
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group of every module, newest module first",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						for i := len(migrators) - 1; i >= 0; i-- {
							m := migrators[i]
							group, err := m.Migrator.Rollback(c.Context)
							if err != nil {
								return fmt.Errorf("failed to roll back %s migrations: %w", m.Name, err)
							}
							if group.IsZero() {
								fmt.Printf("No groups to roll back for module: %s\n", m.Name)
							} else {
								fmt.Printf("Rolled back module: %s to %s\n", m.Name, group)
							}
						}
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						moduleName := c.Args().First()
						migrator, err := findMigrator(migrators, moduleName)
						if err != nil {
							return err
						}
						name := strings.Join(c.Args().Tail(), "_")
						mf, err := migrator.CreateGoMigration(c.Context, name)
						if err != nil {
							return err
						}
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						return nil
					})
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						moduleName := c.Args().First()
						migrator, err := findMigrator(migrators, moduleName)
						if err != nil {
							return err
						}
						name := strings.Join(c.Args().Tail(), "_")
						files, err := migrator.CreateSQLMigrations(c.Context, name)
						if err != nil {
							return err
						}
						for _, mf := range files {
							fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
						}
						return nil
					})
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					return withMigrators(c, func(_ *config.Config, _ *bun.DB, migrators []app.ModuleMigrator) error {
						for _, m := range migrators {
							ms, err := m.Migrator.MigrationsWithStatus(c.Context)
							if err != nil {
								return err
							}
							fmt.Printf("Migrations for module: %s\n", m.Name)
							fmt.Printf("  %s\n", ms)
							fmt.Printf("  Applied: %s\n", ms.Applied())
							fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
						}
						return nil
					})
				},
			},
		},
	}
}
