package eventmigrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Creating event log tables...")

		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS events (
					id BIGSERIAL PRIMARY KEY,
					event_type VARCHAR(32) NOT NULL,
					reason TEXT NOT NULL DEFAULT '',
					tick_id BIGINT NOT NULL REFERENCES ticks(id),
					created_on TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
				CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick_id, event_type);
			`); err != nil {
				return fmt.Errorf("failed to create events table: %w", err)
			}

			if _, err := tx.ExecContext(ctx, `
				CREATE TABLE IF NOT EXISTS exploit_script_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					ip TEXT NOT NULL,
					port INTEGER NOT NULL,
					service_interaction_docker TEXT NOT NULL,
					the_script TEXT NOT NULL,
					docker_registry TEXT NOT NULL,
					result VARCHAR(8) NOT NULL CHECK (result IN ('SUCCESS', 'FAIL'))
				);
				CREATE TABLE IF NOT EXISTS sla_script_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					ip TEXT NOT NULL,
					port INTEGER NOT NULL,
					service_interaction_docker TEXT NOT NULL,
					the_script TEXT NOT NULL,
					docker_registry TEXT NOT NULL,
					result VARCHAR(8) NOT NULL CHECK (result IN ('SUCCESS', 'FAIL'))
				);
				CREATE TABLE IF NOT EXISTS set_flag_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					flag_id BIGINT NOT NULL REFERENCES flags(id),
					result VARCHAR(8) NOT NULL CHECK (result IN ('SUCCESS', 'FAIL'))
				);
				CREATE TABLE IF NOT EXISTS flag_stolen_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					exploit_team_id BIGINT NOT NULL REFERENCES teams(id),
					victim_team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					flag_id BIGINT NOT NULL REFERENCES flags(id),
					UNIQUE (exploit_team_id, flag_id)
				);
				CREATE TABLE IF NOT EXISTS koh_score_fetch_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					score DOUBLE PRECISION,
					data TEXT,
					result VARCHAR(8) NOT NULL CHECK (result IN ('SUCCESS', 'FAIL'))
				);
				CREATE TABLE IF NOT EXISTS koh_ranking_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id)
				);
				CREATE TABLE IF NOT EXISTS koh_rank_results (
					id BIGSERIAL PRIMARY KEY,
					event_id BIGINT NOT NULL REFERENCES koh_ranking_events(event_id) ON DELETE CASCADE,
					rank INTEGER NOT NULL,
					score DOUBLE PRECISION NOT NULL,
					data TEXT,
					team_id BIGINT NOT NULL REFERENCES teams(id)
				);
				CREATE INDEX IF NOT EXISTS idx_koh_rank_results_event ON koh_rank_results(event_id);
				CREATE TABLE IF NOT EXISTS pcap_created_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					pcap_name TEXT NOT NULL
				);
				CREATE TABLE IF NOT EXISTS pcap_released_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					team_id BIGINT NOT NULL REFERENCES teams(id),
					service_id BIGINT NOT NULL REFERENCES services(id),
					pcap_name TEXT NOT NULL
				);
				CREATE TABLE IF NOT EXISTS stealth_events (
					event_id BIGINT PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
					service_id BIGINT NOT NULL REFERENCES services(id),
					src_team_id BIGINT NOT NULL REFERENCES teams(id),
					dst_team_id BIGINT NOT NULL REFERENCES teams(id),
					tick_id BIGINT NOT NULL REFERENCES ticks(id),
					UNIQUE (service_id, src_team_id, dst_team_id, tick_id)
				);
			`); err != nil {
				return fmt.Errorf("failed to create event payload tables: %w", err)
			}

			return nil
		})
	}, func(ctx context.Context, db *bun.DB) error {
		fmt.Println("Dropping event log tables...")

		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS stealth_events;
			DROP TABLE IF EXISTS pcap_released_events;
			DROP TABLE IF EXISTS pcap_created_events;
			DROP TABLE IF EXISTS koh_rank_results;
			DROP TABLE IF EXISTS koh_ranking_events;
			DROP TABLE IF EXISTS koh_score_fetch_events;
			DROP TABLE IF EXISTS flag_stolen_events;
			DROP TABLE IF EXISTS set_flag_events;
			DROP TABLE IF EXISTS sla_script_events;
			DROP TABLE IF EXISTS exploit_script_events;
			DROP TABLE IF EXISTS events;
		`)
		return err
	})
}
