package scoredb

import (
	"time"

	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// TeamScore is one team's points for a single tick.
type TeamScore struct {
	ID                 sharedtypes.TeamID                  `json:"id"`
	Attack             float64                             `json:"ATTACK"`
	Defense            int                                 `json:"DEFENSE"`
	KingOfTheHill      int                                 `json:"KING_OF_THE_HILL"`
	ServiceAttack      map[sharedtypes.ServiceID][]float64 `json:"service_attack"`
	ServiceDefense     []sharedtypes.ServiceID             `json:"service_defense,omitempty"`
	KohPointsByService map[sharedtypes.ServiceID]int       `json:"koh_points_by_service"`
}

// Total is the sum of the three categories.
func (s TeamScore) Total() float64 {
	return s.Attack + float64(s.Defense) + float64(s.KingOfTheHill)
}

// TickScores holds every non-test team's score for a tick.
type TickScores struct {
	TickID sharedtypes.TickID               `json:"tick_id"`
	Teams  map[sharedtypes.TeamID]TeamScore `json:"teams"`
}

// CachedTickScores is the frozen score of a settled tick.
type CachedTickScores struct {
	bun.BaseModel `bun:"table:cache_tick_scores,alias:cts"`

	ID        int64              `bun:"id,pk,autoincrement"`
	TickID    sharedtypes.TickID `bun:"tick_id,notnull"`
	Scores    *TickScores        `bun:"score_json,type:jsonb,notnull"`
	CreatedOn time.Time          `bun:"created_on,notnull,default:current_timestamp"`
}

// Standing is one row of the aggregate scoreboard, in the CTFtime shape.
type Standing struct {
	Pos    int                `json:"pos"`
	TeamID sharedtypes.TeamID `json:"team_id"`
	Team   string             `json:"team"`
	Score  float64            `json:"score"`
}
