package gamemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating tick and game state tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS ticks (
					id BIGINT PRIMARY KEY CHECK (id > 0),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_ticks_created_on ON ticks(created_on);
			`); err != nil {
				return fmt.Errorf("failed to create ticks table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS game_states (
					id BIGSERIAL PRIMARY KEY,
					state VARCHAR(16) NOT NULL CHECK (state IN ('INIT', 'RUNNING', 'PAUSED', 'STOPPED')),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE TABLE IF NOT EXISTS tick_times (
					id BIGSERIAL PRIMARY KEY,
					time_seconds INTEGER NOT NULL CHECK (time_seconds > 0),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE TABLE IF NOT EXISTS game_state_public (
					id BIGSERIAL PRIMARY KEY,
					is_public BOOLEAN NOT NULL,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE TABLE IF NOT EXISTS game_state_delays (
					id BIGSERIAL PRIMARY KEY,
					delay INTEGER NOT NULL CHECK (delay >= 0),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create game setting tables: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping tick and game state tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS game_state_delays;
			DROP TABLE IF EXISTS game_state_public;
			DROP TABLE IF EXISTS tick_times;
			DROP TABLE IF EXISTS game_states;
			DROP TABLE IF EXISTS ticks;
		`)
		return err
	})
}
