package archivemigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating deleted table...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS deleted (
					id BIGSERIAL PRIMARY KEY,
					type_name VARCHAR(128) NOT NULL,
					content TEXT NOT NULL,
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_deleted_type_name ON deleted(type_name);
			`); err != nil {
				return fmt.Errorf("failed to create deleted table: %w", err)
			}
			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping deleted table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS deleted;`)
		return err
	})
}
