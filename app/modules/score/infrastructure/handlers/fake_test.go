package scorehandlers

import (
	"context"

	scoreservice "github.com/Black-And-White-Club/ctf-engine/app/modules/score/application"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	ScoreTickFunc        func(ctx context.Context, tick sharedtypes.TickID) (*scoredb.TickScores, error)
	ScoreAllTicksFunc    func(ctx context.Context) ([]*scoredb.TickScores, error)
	AggregateScoreFunc   func(ctx context.Context) ([]scoredb.Standing, error)
	TopStandingsFunc     func(ctx context.Context, n int) ([]scoredb.Standing, error)
	RebuildKohScoresFunc func(ctx context.Context, svc sharedtypes.ServiceID) (*scoreservice.RebuildResult, error)
}

func (f *FakeService) ScoreTick(ctx context.Context, tick sharedtypes.TickID) (*scoredb.TickScores, error) {
	if f.ScoreTickFunc != nil {
		return f.ScoreTickFunc(ctx, tick)
	}
	return &scoredb.TickScores{TickID: tick, Teams: map[sharedtypes.TeamID]scoredb.TeamScore{}}, nil
}

func (f *FakeService) ScoreAllTicks(ctx context.Context) ([]*scoredb.TickScores, error) {
	if f.ScoreAllTicksFunc != nil {
		return f.ScoreAllTicksFunc(ctx)
	}
	return []*scoredb.TickScores{}, nil
}

func (f *FakeService) AggregateScore(ctx context.Context) ([]scoredb.Standing, error) {
	if f.AggregateScoreFunc != nil {
		return f.AggregateScoreFunc(ctx)
	}
	return []scoredb.Standing{}, nil
}

func (f *FakeService) TopStandings(ctx context.Context, n int) ([]scoredb.Standing, error) {
	if f.TopStandingsFunc != nil {
		return f.TopStandingsFunc(ctx, n)
	}
	return []scoredb.Standing{}, nil
}

func (f *FakeService) RebuildKohScores(ctx context.Context, svc sharedtypes.ServiceID) (*scoreservice.RebuildResult, error) {
	if f.RebuildKohScoresFunc != nil {
		return f.RebuildKohScoresFunc(ctx, svc)
	}
	return &scoreservice.RebuildResult{ServiceID: svc, Ticks: []sharedtypes.TickID{}}, nil
}
