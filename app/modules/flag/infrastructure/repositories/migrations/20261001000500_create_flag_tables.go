package flagmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating flag tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS flags (
					id BIGSERIAL PRIMARY KEY,
					flag TEXT NOT NULL,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					tick_id BIGINT NOT NULL REFERENCES ticks(id),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT flags_flag_key UNIQUE (flag),
					CONSTRAINT flags_team_service_tick_key UNIQUE (team_id, service_id, tick_id)
				);
				CREATE INDEX IF NOT EXISTS idx_flags_tick ON flags(tick_id);
			`); err != nil {
				return fmt.Errorf("failed to create flags table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS flag_submissions (
					id BIGSERIAL PRIMARY KEY,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					submission TEXT NOT NULL,
					result VARCHAR(32) NOT NULL,
					flag_id BIGINT REFERENCES flags(id),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					CONSTRAINT flag_submissions_team_submission_key UNIQUE (team_id, submission)
				);
			`); err != nil {
				return fmt.Errorf("failed to create flag_submissions table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping flag tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS flag_submissions;
			DROP TABLE IF EXISTS flags;
		`)
		return err
	})
}
