package testutils

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
)

// appTables lists every engine table. TRUNCATE ... CASCADE handles the
// foreign keys between them.
var appTables = []string{
	"teams", "services",
	"ticks", "game_states", "tick_times", "game_state_public", "game_state_delays",
	"deleted",
	"service_toggles", "cache_was_service_active",
	"flags", "flag_submissions",
	"events", "exploit_script_events", "sla_script_events", "set_flag_events",
	"flag_stolen_events", "koh_score_fetch_events", "koh_ranking_events",
	"koh_rank_results", "pcap_created_events", "pcap_released_events", "stealth_events",
	"cache_tick_scores",
	"uploaded_patches", "patch_results", "service_profiles",
	"announcements",
}

// CleanupDatabase truncates every engine table, resets identities and drops
// queued River jobs.
func CleanupDatabase(ctx context.Context, db *bun.DB) error {
	query := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(appTables, ", "))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM river_job"); err != nil {
		return fmt.Errorf("failed to cleanup river jobs: %w", err)
	}
	return nil
}

// CountRows returns the number of rows in table.
func CountRows(ctx context.Context, db *bun.DB, table string) (int, error) {
	return db.NewSelect().Table(table).Count(ctx)
}
