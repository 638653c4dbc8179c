package scoreservice

import (
	"context"

	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

// Service defines the contract for scoring.
type Service interface {
	ScoreTick(ctx context.Context, tick sharedtypes.TickID) (*scoredb.TickScores, error)
	ScoreAllTicks(ctx context.Context) ([]*scoredb.TickScores, error)
	AggregateScore(ctx context.Context) ([]scoredb.Standing, error)
	TopStandings(ctx context.Context, n int) ([]scoredb.Standing, error)
	RebuildKohScores(ctx context.Context, serviceID sharedtypes.ServiceID) (*RebuildResult, error)
}

// RebuildResult reports what a KOH rebuild touched.
type RebuildResult struct {
	ServiceID   sharedtypes.ServiceID `json:"service_id"`
	UpdatedRows int                   `json:"updated_rows"`
	Ticks       []sharedtypes.TickID  `json:"ticks"`
}
