package scoremigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating cache_tick_scores table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS cache_tick_scores (
				id BIGSERIAL PRIMARY KEY,
				tick_id BIGINT NOT NULL REFERENCES ticks(id) ON DELETE CASCADE,
				score_json JSONB NOT NULL,
				created_on TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				CONSTRAINT cache_tick_scores_tick_key UNIQUE (tick_id)
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create cache_tick_scores table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping cache_tick_scores table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS cache_tick_scores;`)
		return err
	})
}
