package announcementmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating announcements table...")

		_, err := db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS announcements (
				id BIGSERIAL PRIMARY KEY,
				text VARCHAR(1024) NOT NULL,
				created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`)
		if err != nil {
			return fmt.Errorf("failed to create announcements table: %w", err)
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping announcements table...")

		_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS announcements;`)
		return err
	})
}
