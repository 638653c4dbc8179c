package flagservice

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/Black-And-White-Club/ctf-engine/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
)

type testEnv struct {
	repo     *FakeFlagRepo
	ticks    *FakeTicks
	activity *FakeActivity
	events   *FakeEvents
	metrics  *FakeMetrics
	svc      *FlagService
}

// newTestEnv builds a game with teams 1 and 2, test team 3 and services 1
// and 2, at the given tick.
func newTestEnv(current sharedtypes.TickID) *testEnv {
	env := &testEnv{
		repo:     NewFakeFlagRepo(),
		ticks:    &FakeTicks{current: current},
		activity: &FakeActivity{inactive: map[sharedtypes.ServiceID]bool{}},
		events:   &FakeEvents{},
		metrics:  NewFakeMetrics(),
	}
	roster := &FakeRoster{
		teams: map[sharedtypes.TeamID]rosterdb.Team{
			1: {ID: 1, Name: "alpha"},
			2: {ID: 2, Name: "bravo"},
			3: {ID: 3, Name: "checker", IsTestTeam: true},
		},
		services: map[sharedtypes.ServiceID]rosterdb.Service{
			1: {ID: 1, Name: "notes"},
			2: {ID: 2, Name: "bank"},
		},
	}
	deps := Deps{Ticks: env.ticks, Roster: roster, Activity: env.activity, Events: env.events, Steals: env.events}
	env.svc = NewFlagService(env.repo, deps, NewGenerator(config.FlagConfig{Prefix: config.DefaultFlagPrefix}), 3, slog.Default(), env.metrics, noop.NewTracerProvider().Tracer("test"), nil)
	return env
}

func TestFlagService_GenerateFlag(t *testing.T) {
	tests := []struct {
		name    string
		current sharedtypes.TickID
		service sharedtypes.ServiceID
		team    sharedtypes.TeamID
		wantErr error
	}{
		{name: "issues flag", current: 4, service: 1, team: 1},
		{name: "unknown team", current: 4, service: 1, team: 9, wantErr: apperrors.ErrNotFound},
		{name: "unknown service", current: 4, service: 9, team: 1, wantErr: apperrors.ErrNotFound},
		{name: "no tick yet", current: 0, service: 1, team: 1, wantErr: apperrors.ErrPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.current)
			flag, err := env.svc.GenerateFlag(context.Background(), tt.service, tt.team)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.NotContains(t, env.repo.Trace(), "InsertFlagIfAbsent")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.current, flag.TickID)
			assert.Equal(t, tt.team, flag.TeamID)
			assert.Len(t, flag.Flag, 48)
		})
	}
}

func TestFlagService_GenerateFlagIsIdempotentPerTick(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(2)

	first, err := env.svc.GenerateFlag(ctx, 1, 1)
	require.NoError(t, err)
	second, err := env.svc.GenerateFlag(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Flag, second.Flag)

	env.ticks.current = 3
	third, err := env.svc.GenerateFlag(ctx, 1, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Flag, third.Flag)

	latest, err := env.svc.LatestFlag(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, third.Flag, latest.Flag)
}

func TestFlagService_GenerateFlagLosesRace(t *testing.T) {
	env := newTestEnv(2)
	env.repo.InsertFlagIfAbsentFunc = func(ctx context.Context, db bun.IDB, flag *flagdb.Flag) (bool, error) {
		env.repo.seedFlag("000WINNER", flag.TeamID, flag.ServiceID, flag.TickID)
		return false, nil
	}

	flag, err := env.svc.GenerateFlag(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, "000WINNER", flag.Flag)
}

func TestFlagService_LatestFlagMissing(t *testing.T) {
	env := newTestEnv(2)
	_, err := env.svc.LatestFlag(context.Background(), 1, 1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestFlagService_SubmitFlag(t *testing.T) {
	tests := []struct {
		name       string
		current    sharedtypes.TickID
		team       sharedtypes.TeamID
		text       string
		inactive   bool
		want       sharedtypes.SubmissionResult
		wantStolen bool
	}{
		{name: "correct", current: 5, team: 1, text: "FLAG-B", want: sharedtypes.SubmissionCorrect, wantStolen: true},
		{name: "correct at edge of window", current: 7, team: 1, text: "FLAG-B", want: sharedtypes.SubmissionCorrect, wantStolen: true},
		{name: "too old one tick later", current: 8, team: 1, text: "FLAG-B", want: sharedtypes.SubmissionTooOld},
		{name: "incorrect", current: 5, team: 1, text: "nope", want: sharedtypes.SubmissionIncorrect},
		{name: "own flag", current: 5, team: 2, text: "FLAG-B", want: sharedtypes.SubmissionOwnFlag},
		{name: "test team flag", current: 5, team: 1, text: "FLAG-T", want: sharedtypes.SubmissionTestTeamFlag},
		{name: "inactive beats own flag", current: 5, team: 2, text: "FLAG-B", inactive: true, want: sharedtypes.SubmissionServiceInactive},
		{name: "inactive beats too old", current: 9, team: 1, text: "FLAG-B", inactive: true, want: sharedtypes.SubmissionServiceInactive},
		{name: "surrounding whitespace is part of the text", current: 5, team: 1, text: "  FLAG-B\n", want: sharedtypes.SubmissionIncorrect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.current)
			env.repo.seedFlag("FLAG-B", 2, 1, 4)
			env.repo.seedFlag("FLAG-T", 3, 1, 4)
			env.activity.inactive[1] = tt.inactive

			sub, err := env.svc.SubmitFlag(context.Background(), tt.team, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sub.Result)
			assert.NotZero(t, sub.ID)
			assert.Equal(t, 1, env.metrics.submissions[string(tt.want)])

			if tt.want == sharedtypes.SubmissionIncorrect {
				assert.Nil(t, sub.FlagID)
			} else {
				require.NotNil(t, sub.FlagID)
			}

			if !tt.wantStolen {
				assert.Empty(t, env.events.recorded)
				assert.Empty(t, env.events.published)
				return
			}
			require.Len(t, env.events.recorded, 1)
			ev := env.events.recorded[0]
			assert.Equal(t, sharedtypes.EventFlagStolen, ev.Type)
			assert.Equal(t, FlagStolenReason, ev.Reason)
			assert.Equal(t, sharedtypes.TickID(4), ev.TickID, "credited to the flag's tick")
			assert.Equal(t, eventdb.FlagStolen{ExploitTeamID: 1, VictimTeamID: 2, ServiceID: 1, FlagID: 1}, *ev.FlagStolen)
			assert.Equal(t, env.events.recorded, env.events.published)
		})
	}
}

func TestFlagService_SubmitFlagTwice(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)

	first, err := env.svc.SubmitFlag(ctx, 1, "FLAG-B")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionCorrect, first.Result)

	second, err := env.svc.SubmitFlag(ctx, 1, "FLAG-B")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionAlreadySubmitted, second.Result)
	assert.Zero(t, second.ID)
	assert.Len(t, env.events.recorded, 1)

	// Another team is judged on its own.
	env.repo.seedFlag("FLAG-A", 1, 1, 4)
	third, err := env.svc.SubmitFlag(ctx, 2, "FLAG-A")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionCorrect, third.Result)
}

func TestFlagService_SubmitFlagFrozen(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)

	_, err := env.svc.SubmitFlag(ctx, 1, "typo")
	require.NoError(t, err)

	// The answer does not change once stored, even if the text later matches.
	env.repo.seedFlag("typo", 2, 2, 5)
	sub, err := env.svc.SubmitFlag(ctx, 1, "typo")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionAlreadySubmitted, sub.Result)
	assert.Len(t, env.repo.submissions, 1)
	assert.Equal(t, sharedtypes.SubmissionIncorrect, env.repo.submissions[0].Result)
}

func TestFlagService_SubmitFlagConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)
	env.repo.InsertSubmissionIfAbsentFunc = func(ctx context.Context, db bun.IDB, sub *flagdb.Submission) (bool, error) {
		return false, nil
	}

	sub, err := env.svc.SubmitFlag(context.Background(), 1, "FLAG-B")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionAlreadySubmitted, sub.Result)
	assert.Empty(t, env.events.recorded)
}

func TestFlagService_SubmitFlagDuplicateCredit(t *testing.T) {
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)
	env.events.RecordTxFunc = func(ctx context.Context, db bun.IDB, ev *eventdb.Event) error {
		return apperrors.Invariantf("duplicate FLAG_STOLEN event (flag_stolen_events_exploit_team_id_flag_id_key)")
	}

	_, err := env.svc.SubmitFlag(context.Background(), 1, "FLAG-B")
	assert.ErrorIs(t, err, apperrors.ErrInvariantViolation)
	assert.Empty(t, env.events.published)
	assert.Empty(t, env.metrics.submissions)
}

func TestFlagService_SubmitFlagErrors(t *testing.T) {
	tests := []struct {
		name    string
		current sharedtypes.TickID
		team    sharedtypes.TeamID
		text    string
		wantErr error
	}{
		{name: "empty text", current: 5, team: 1, text: "", wantErr: apperrors.ErrValidation},
		{name: "unknown team", current: 5, team: 42, text: "FLAG-B", wantErr: apperrors.ErrNotFound},
		{name: "no tick", current: 0, team: 1, text: "FLAG-B", wantErr: apperrors.ErrPrecondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(tt.current)
			env.repo.seedFlag("FLAG-B", 2, 1, 4)

			_, err := env.svc.SubmitFlag(context.Background(), tt.team, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.NotContains(t, env.repo.Trace(), "InsertSubmissionIfAbsent")
		})
	}
}

func TestFlagService_SubmitFlagKeepsRawText(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)

	padded, err := env.svc.SubmitFlag(ctx, 1, " FLAG-B ")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionIncorrect, padded.Result)
	assert.Equal(t, " FLAG-B ", padded.Submission)

	// The exact text is a different (team, text) pair, so it is still scored.
	exact, err := env.svc.SubmitFlag(ctx, 1, "FLAG-B")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionCorrect, exact.Result)

	again, err := env.svc.SubmitFlag(ctx, 1, " FLAG-B ")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionAlreadySubmitted, again.Result)

	blank, err := env.svc.SubmitFlag(ctx, 1, "   ")
	require.NoError(t, err)
	assert.Equal(t, sharedtypes.SubmissionIncorrect, blank.Result)
}

func TestFlagService_FirstBlood(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B1", 2, 1, 4)
	env.repo.seedFlag("FLAG-B2", 2, 1, 5)

	var counted []int
	env.svc.steals = countingSteals{inner: env.events, seen: &counted}

	_, err := env.svc.SubmitFlag(ctx, 1, "FLAG-B1")
	require.NoError(t, err)
	_, err = env.svc.SubmitFlag(ctx, 1, "FLAG-B2")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, counted)
}

type countingSteals struct {
	inner StealCounter
	seen  *[]int
}

func (c countingSteals) CountFlagStolenForService(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (int, error) {
	n, err := c.inner.CountFlagStolenForService(ctx, db, serviceID)
	*c.seen = append(*c.seen, n)
	return n, err
}

func TestFlagService_FlagsForTick(t *testing.T) {
	env := newTestEnv(5)
	env.repo.seedFlag("A", 1, 1, 4)
	env.repo.seedFlag("B", 2, 1, 5)

	flags, err := env.svc.FlagsForTick(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "A", flags[0].Flag)

	flags, err = env.svc.FlagsForTick(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, flags)
	assert.Empty(t, flags)
}

func TestFlagService_InfrastructureErrorPropagates(t *testing.T) {
	env := newTestEnv(5)
	boom := errors.New("connection reset")
	env.repo.InsertSubmissionIfAbsentFunc = func(ctx context.Context, db bun.IDB, sub *flagdb.Submission) (bool, error) {
		return false, boom
	}

	_, err := env.svc.SubmitFlag(context.Background(), 1, "whatever")
	assert.ErrorIs(t, err, boom)
}

func TestFlagService_SubmissionsForTeam(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(5)
	env.repo.seedFlag("FLAG-B", 2, 1, 4)

	for _, text := range []string{"nope", "FLAG-B", "nope"} {
		_, err := env.svc.SubmitFlag(ctx, 1, text)
		require.NoError(t, err)
	}
	_, err := env.svc.SubmitFlag(ctx, 2, "other")
	require.NoError(t, err)

	subs, err := env.svc.SubmissionsForTeam(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 2, "the repeat is answered but not stored")
	assert.Equal(t, "nope", subs[0].Submission)
	assert.Equal(t, sharedtypes.SubmissionIncorrect, subs[0].Result)
	assert.Equal(t, "FLAG-B", subs[1].Submission)
	assert.Equal(t, sharedtypes.SubmissionCorrect, subs[1].Result)

	empty, err := env.svc.SubmissionsForTeam(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = env.svc.SubmissionsForTeam(ctx, 42)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
