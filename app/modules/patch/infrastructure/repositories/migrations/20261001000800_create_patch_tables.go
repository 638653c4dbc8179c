package patchmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating patch tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS uploaded_patches (
					id BIGSERIAL PRIMARY KEY,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					tick_id BIGINT NOT NULL REFERENCES ticks(id),
					uploaded_file BYTEA NOT NULL,
					uploaded_hash VARCHAR(256) NOT NULL,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE (team_id, service_id, tick_id)
				);
				CREATE INDEX IF NOT EXISTS idx_uploaded_patches_tick ON uploaded_patches(tick_id);
			`); err != nil {
				return fmt.Errorf("failed to create uploaded_patches table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS patch_results (
					id BIGSERIAL PRIMARY KEY,
					patch_id BIGINT NOT NULL REFERENCES uploaded_patches(id) ON DELETE CASCADE,
					status VARCHAR(32) NOT NULL CHECK (status IN ('SUBMITTED', 'ACCEPTED', 'TOO_MANY_BYTES', 'SLA_TIMEOUT', 'SLA_FAIL', 'TESTING_PATCH')),
					public_metadata VARCHAR(256),
					private_metadata VARCHAR(256),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_patch_results_patch ON patch_results(patch_id, id);
				CREATE INDEX IF NOT EXISTS idx_patch_results_status ON patch_results(status);
			`); err != nil {
				return fmt.Errorf("failed to create patch_results table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS service_profiles (
					service_id BIGINT PRIMARY KEY REFERENCES services(id),
					profile JSONB NOT NULL,
					updated_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`); err != nil {
				return fmt.Errorf("failed to create service_profiles table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping patch tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS service_profiles;
			DROP TABLE IF EXISTS patch_results;
			DROP TABLE IF EXISTS uploaded_patches;
		`)
		return err
	})
}
