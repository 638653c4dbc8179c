package eventdb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// EventRow is the shared header of every event.
type EventRow struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID        sharedtypes.EventID   `bun:"id,pk,autoincrement"`
	Type      sharedtypes.EventType `bun:"event_type,notnull"`
	Reason    string                `bun:"reason,notnull"`
	TickID    sharedtypes.TickID    `bun:"tick_id,notnull"`
	CreatedOn time.Time             `bun:"created_on,notnull,default:current_timestamp"`
}

// ScriptRun is the payload shared by exploit and SLA script runs.
type ScriptRun struct {
	EventID                  sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	TeamID                   sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID                sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	IP                       string                `bun:"ip,notnull" json:"ip"`
	Port                     int                   `bun:"port,notnull" json:"port"`
	ServiceInteractionDocker string                `bun:"service_interaction_docker,notnull" json:"service_interaction_docker"`
	TheScript                string                `bun:"the_script,notnull" json:"the_script"`
	DockerRegistry           string                `bun:"docker_registry,notnull" json:"docker_registry"`
	Result                   sharedtypes.Outcome   `bun:"result,notnull" json:"result"`
}

type ExploitScript struct {
	bun.BaseModel `bun:"table:exploit_script_events,alias:ese"`
	ScriptRun
}

type SlaScript struct {
	bun.BaseModel `bun:"table:sla_script_events,alias:sse"`
	ScriptRun
}

type SetFlag struct {
	bun.BaseModel `bun:"table:set_flag_events,alias:sfe"`

	EventID   sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	TeamID    sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	FlagID    sharedtypes.FlagID    `bun:"flag_id,notnull" json:"flag_id"`
	Result    sharedtypes.Outcome   `bun:"result,notnull" json:"result"`
}

// FlagStolen credits ExploitTeamID with VictimTeamID's flag. At most one per
// (exploit team, flag).
type FlagStolen struct {
	bun.BaseModel `bun:"table:flag_stolen_events,alias:fse"`

	EventID       sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	ExploitTeamID sharedtypes.TeamID    `bun:"exploit_team_id,notnull" json:"exploit_team_id"`
	VictimTeamID  sharedtypes.TeamID    `bun:"victim_team_id,notnull" json:"victim_team_id"`
	ServiceID     sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	FlagID        sharedtypes.FlagID    `bun:"flag_id,notnull" json:"flag_id"`
}

// KohScoreFetch records one attempt to read a team's hill score. Score is
// required when Result is SUCCESS.
type KohScoreFetch struct {
	bun.BaseModel `bun:"table:koh_score_fetch_events,alias:kfe"`

	EventID   sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	TeamID    sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	Score     *float64              `bun:"score" json:"score"`
	Data      *string               `bun:"data" json:"data"`
	Result    sharedtypes.Outcome   `bun:"result,notnull" json:"result"`
}

type KohRanking struct {
	bun.BaseModel `bun:"table:koh_ranking_events,alias:kre"`

	EventID   sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	Results   []KohRankResult       `bun:"-" json:"ranking"`
}

// KohRankResult is one row of a ranking, kept in stored order.
type KohRankResult struct {
	bun.BaseModel `bun:"table:koh_rank_results,alias:krr"`

	ID      int64               `bun:"id,pk,autoincrement" json:"-"`
	EventID sharedtypes.EventID `bun:"event_id,notnull" json:"-"`
	Rank    int                 `bun:"rank,notnull" json:"rank"`
	Score   float64             `bun:"score,notnull" json:"score"`
	Data    *string             `bun:"data" json:"data"`
	TeamID  sharedtypes.TeamID  `bun:"team_id,notnull" json:"team_id"`
}

// Pcap is the payload shared by capture creation and release.
type Pcap struct {
	EventID   sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	TeamID    sharedtypes.TeamID    `bun:"team_id,notnull" json:"team_id"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	PcapName  string                `bun:"pcap_name,notnull" json:"pcap_name"`
}

type PcapCreated struct {
	bun.BaseModel `bun:"table:pcap_created_events,alias:pce"`
	Pcap
}

type PcapReleased struct {
	bun.BaseModel `bun:"table:pcap_released_events,alias:pre"`
	Pcap
}

// Stealth marks traffic from SrcTeamID to DstTeamID as unobserved. TickID
// mirrors the header so the natural key can be enforced.
type Stealth struct {
	bun.BaseModel `bun:"table:stealth_events,alias:ste"`

	EventID   sharedtypes.EventID   `bun:"event_id,pk" json:"-"`
	ServiceID sharedtypes.ServiceID `bun:"service_id,notnull" json:"service_id"`
	SrcTeamID sharedtypes.TeamID    `bun:"src_team_id,notnull" json:"src_team_id"`
	DstTeamID sharedtypes.TeamID    `bun:"dst_team_id,notnull" json:"dst_team_id"`
	TickID    sharedtypes.TickID    `bun:"tick_id,notnull" json:"-"`
}
