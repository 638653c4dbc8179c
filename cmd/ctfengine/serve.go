package main

import (
	"fmt"

	"github.com/Black-And-White-Club/ctf-engine/app"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/urfave/cli/v2"
)

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API, the event ingestion router and the tick clock",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "migrate",
				Usage: "apply pending migrations before starting",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			ctx, stop := app.WaitForShutdown(c.Context)
			defer stop()

			if c.Bool("migrate") {
				db := app.OpenDB(cfg.Postgres.DSN)
				err := app.MigrateAll(ctx, db, cfg.Postgres.DSN)
				db.Close()
				if err != nil {
					return err
				}
			}

			a, err := app.Initialize(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Run(ctx); err != nil {
				return err
			}
			return a.Serve(ctx)
		},
	}
}
