package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Black-And-White-Club/ctf-engine/app"
	rosterservice "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/application"
	scoreexport "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/export"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/httpx"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/observability"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/urfave/cli/v2"
)

// withApp builds the engine without the tick clock for a one-shot command.
// Logs go to stderr so stdout stays machine readable.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	obs := observability.NewNoop(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	a, err := app.Initialize(c.Context, cfg, app.Options{WithoutQueue: true, Observability: &obs})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(c.Context, a)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSeedCommand() *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "create the teams and services listed in a roster file; existing names are skipped",
		ArgsUsage: "<roster.yaml>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("seed takes exactly one roster file")
			}
			roster, err := rosterservice.LoadRosterFile(c.Args().First())
			if err != nil {
				return err
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				res, err := a.Modules.Roster.Service.Seed(ctx, roster)
				if err != nil {
					return err
				}
				return writeJSON(c.App.Writer, res)
			})
		},
	}
}

// parseMoment reads unix seconds, RFC 3339, or natural language such as
// "10 minutes ago" relative to now.
func parseMoment(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(input)
	if ts, err := httpx.ParseTimestamp(input); err == nil {
		return ts, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(strings.ToLower(input), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %q: %w", input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not recognize time %q", input)
	}
	return r.Time, nil
}

func newTickAtCommand() *cli.Command {
	return &cli.Command{
		Name:      "tick-at",
		Usage:     "print the tick that was current at a moment",
		ArgsUsage: `<moment, e.g. "10 minutes ago" or 2026-10-01T12:00:00Z>`,
		Action: func(c *cli.Context) error {
			input := strings.Join(c.Args().Slice(), " ")
			ts, err := parseMoment(input, time.Now())
			if err != nil {
				return err
			}
			return withApp(c, func(ctx context.Context, a *app.App) error {
				tick, err := a.Modules.Game.Service.TickAt(ctx, ts)
				if err != nil {
					return err
				}
				return writeJSON(c.App.Writer, map[string]any{
					"at":   ts.UTC(),
					"tick": tick,
				})
			})
		},
	}
}

func newExportFlagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-flags",
		Usage: "print the flags issued in a tick as JSON",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:  "tick",
				Usage: "tick id, defaults to the current tick",
			},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				tick := sharedtypes.TickID(c.Int64("tick"))
				if tick == 0 {
					current, err := a.Modules.Game.Service.CurrentTick(ctx)
					if err != nil {
						return err
					}
					tick = current.ID
				}
				flags, err := a.Modules.Flag.Service.FlagsForTick(ctx, tick)
				if err != nil {
					return err
				}
				return writeJSON(c.App.Writer, flags)
			})
		},
	}
}

func newExportScoresCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-scores",
		Usage: "write the standings and the per-tick score ledger to an xlsx workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Value:   "scores.xlsx",
				Usage:   "workbook path",
			},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				scores := a.Modules.Score.Service
				ticks, err := scores.ScoreAllTicks(ctx)
				if err != nil {
					return err
				}
				standings, err := scores.AggregateScore(ctx)
				if err != nil {
					return err
				}

				out, err := os.Create(c.String("output"))
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", c.String("output"), err)
				}
				if err := scoreexport.WriteLedger(out, standings, ticks); err != nil {
					out.Close()
					return err
				}
				if err := out.Close(); err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "Wrote %d ticks and %d teams to %s\n", len(ticks), len(standings), c.String("output"))
				return nil
			})
		},
	}
}

func newKohRebuildCommand() *cli.Command {
	return &cli.Command{
		Name:  "koh-rebuild",
		Usage: "recompute king-of-the-hill ranks for a service from its submitted scores",
		Flags: []cli.Flag{
			&cli.Int64Flag{
				Name:     "service",
				Usage:    "KOH service id",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(ctx context.Context, a *app.App) error {
				res, err := a.Modules.Score.Service.RebuildKohScores(ctx, sharedtypes.ServiceID(c.Int64("service")))
				if err != nil {
					return err
				}
				return writeJSON(c.App.Writer, res)
			})
		},
	}
}
