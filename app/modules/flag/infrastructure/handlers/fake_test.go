package flaghandlers

import (
	"context"

	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
)

type FakeService struct {
	GenerateFlagFunc func(ctx context.Context, svc sharedtypes.ServiceID, team sharedtypes.TeamID) (*flagdb.Flag, error)
	LatestFlagFunc   func(ctx context.Context, svc sharedtypes.ServiceID, team sharedtypes.TeamID) (*flagdb.Flag, error)
	SubmitFlagFunc   func(ctx context.Context, team sharedtypes.TeamID, text string) (*flagdb.Submission, error)
	FlagsForTickFunc func(ctx context.Context, tick sharedtypes.TickID) ([]flagdb.Flag, error)

	SubmissionsForTeamFunc func(ctx context.Context, team sharedtypes.TeamID) ([]flagdb.Submission, error)
}

func (f *FakeService) GenerateFlag(ctx context.Context, svc sharedtypes.ServiceID, team sharedtypes.TeamID) (*flagdb.Flag, error) {
	if f.GenerateFlagFunc != nil {
		return f.GenerateFlagFunc(ctx, svc, team)
	}
	return &flagdb.Flag{ID: 1, Flag: "000ABC", TeamID: team, ServiceID: svc, TickID: 1}, nil
}

func (f *FakeService) LatestFlag(ctx context.Context, svc sharedtypes.ServiceID, team sharedtypes.TeamID) (*flagdb.Flag, error) {
	if f.LatestFlagFunc != nil {
		return f.LatestFlagFunc(ctx, svc, team)
	}
	return nil, flagdb.ErrFlagNotFound
}

func (f *FakeService) SubmitFlag(ctx context.Context, team sharedtypes.TeamID, text string) (*flagdb.Submission, error) {
	if f.SubmitFlagFunc != nil {
		return f.SubmitFlagFunc(ctx, team, text)
	}
	return &flagdb.Submission{ID: 1, TeamID: team, Submission: text, Result: sharedtypes.SubmissionIncorrect}, nil
}

func (f *FakeService) FlagsForTick(ctx context.Context, tick sharedtypes.TickID) ([]flagdb.Flag, error) {
	if f.FlagsForTickFunc != nil {
		return f.FlagsForTickFunc(ctx, tick)
	}
	return []flagdb.Flag{}, nil
}

func (f *FakeService) SubmissionsForTeam(ctx context.Context, team sharedtypes.TeamID) ([]flagdb.Submission, error) {
	if f.SubmissionsForTeamFunc != nil {
		return f.SubmissionsForTeamFunc(ctx, team)
	}
	return []flagdb.Submission{}, nil
}
