package activitymigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating service toggle tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS service_toggles (
					id BIGSERIAL PRIMARY KEY,
					kind VARCHAR(32) NOT NULL CHECK (kind IN ('is_active', 'is_visible', 'release_pcaps', 'status_indicator')),
					service_id BIGINT NOT NULL REFERENCES services(id),
					value TEXT NOT NULL,
					tick_id BIGINT NOT NULL CHECK (tick_id >= 0),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_service_toggles_lookup
					ON service_toggles(kind, service_id, tick_id, id);
			`); err != nil {
				return fmt.Errorf("failed to create service_toggles table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS cache_was_service_active (
					id BIGSERIAL PRIMARY KEY,
					service_id BIGINT NOT NULL REFERENCES services(id) ON DELETE CASCADE,
					tick_id BIGINT NOT NULL REFERENCES ticks(id) ON DELETE CASCADE,
					was_active BOOLEAN NOT NULL,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (service_id, tick_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create cache_was_service_active table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping service toggle tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS cache_was_service_active;
			DROP TABLE IF EXISTS service_toggles;
		`)
		return err
	})
}
