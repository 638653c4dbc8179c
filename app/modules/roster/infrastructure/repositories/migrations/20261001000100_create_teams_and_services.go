package rostermigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating teams and services tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS teams (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(1024) NOT NULL,
					team_network VARCHAR(128) NOT NULL,
					vm_address VARCHAR(64) NOT NULL,
					is_test_team BOOLEAN NOT NULL DEFAULT FALSE,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_name ON teams(name);
			`); err != nil {
				return fmt.Errorf("failed to create teams table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS services (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(256) NOT NULL,
					description VARCHAR(2048) NOT NULL DEFAULT '',
					type VARCHAR(32) NOT NULL CHECK (type IN ('NORMAL', 'KING_OF_THE_HILL')),
					port INTEGER NOT NULL,
					repo_url VARCHAR(512) NOT NULL DEFAULT '',
					score_location VARCHAR(512),
					flag_location VARCHAR(512),
					central_server VARCHAR(1024),
					isolation VARCHAR(16) CHECK (isolation IN ('SHARED', 'PRIVATE')),
					container_port INTEGER,
					limit_memory VARCHAR(6) NOT NULL DEFAULT '512m',
					request_memory VARCHAR(6) NOT NULL DEFAULT '512m',
					max_bytes INTEGER,
					check_timeout INTEGER,
					is_manual_patching BOOLEAN NOT NULL DEFAULT FALSE,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_services_name ON services(name);
			`); err != nil {
				return fmt.Errorf("failed to create services table: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping teams and services tables...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS services; DROP TABLE IF EXISTS teams;`)
		return err
	})
}
