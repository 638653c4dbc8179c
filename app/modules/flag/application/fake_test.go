package flagservice

import (
	"context"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Flag Repo
// ------------------------

// FakeFlagRepo keeps flags and submissions in memory and enforces the same
// natural keys as the tables.
type FakeFlagRepo struct {
	trace       []string
	flags       []flagdb.Flag
	submissions []flagdb.Submission

	InsertFlagIfAbsentFunc       func(ctx context.Context, db bun.IDB, flag *flagdb.Flag) (bool, error)
	InsertSubmissionIfAbsentFunc func(ctx context.Context, db bun.IDB, sub *flagdb.Submission) (bool, error)
}

func NewFakeFlagRepo() *FakeFlagRepo {
	return &FakeFlagRepo{trace: []string{}}
}

func (f *FakeFlagRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeFlagRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeFlagRepo) seedFlag(text string, team sharedtypes.TeamID, svc sharedtypes.ServiceID, tick sharedtypes.TickID) flagdb.Flag {
	fl := flagdb.Flag{ID: sharedtypes.FlagID(len(f.flags) + 1), Flag: text, TeamID: team, ServiceID: svc, TickID: tick}
	f.flags = append(f.flags, fl)
	return fl
}

func (f *FakeFlagRepo) InsertFlagIfAbsent(ctx context.Context, db bun.IDB, flag *flagdb.Flag) (bool, error) {
	f.record("InsertFlagIfAbsent")
	if f.InsertFlagIfAbsentFunc != nil {
		return f.InsertFlagIfAbsentFunc(ctx, db, flag)
	}
	for _, existing := range f.flags {
		if existing.TeamID == flag.TeamID && existing.ServiceID == flag.ServiceID && existing.TickID == flag.TickID {
			return false, nil
		}
	}
	flag.ID = sharedtypes.FlagID(len(f.flags) + 1)
	f.flags = append(f.flags, *flag)
	return true, nil
}

func (f *FakeFlagRepo) GetFlagFor(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, service sharedtypes.ServiceID, tick sharedtypes.TickID) (*flagdb.Flag, error) {
	f.record("GetFlagFor")
	for i := range f.flags {
		fl := f.flags[i]
		if fl.TeamID == team && fl.ServiceID == service && fl.TickID == tick {
			return &fl, nil
		}
	}
	return nil, flagdb.ErrFlagNotFound
}

func (f *FakeFlagRepo) LatestFlag(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID, team sharedtypes.TeamID) (*flagdb.Flag, error) {
	f.record("LatestFlag")
	for i := len(f.flags) - 1; i >= 0; i-- {
		fl := f.flags[i]
		if fl.TeamID == team && fl.ServiceID == service {
			return &fl, nil
		}
	}
	return nil, flagdb.ErrFlagNotFound
}

func (f *FakeFlagRepo) GetFlagByText(ctx context.Context, db bun.IDB, text string) (*flagdb.Flag, error) {
	f.record("GetFlagByText")
	for i := range f.flags {
		if f.flags[i].Flag == text {
			fl := f.flags[i]
			return &fl, nil
		}
	}
	return nil, flagdb.ErrFlagNotFound
}

func (f *FakeFlagRepo) FlagsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]flagdb.Flag, error) {
	f.record("FlagsForTick")
	var out []flagdb.Flag
	for _, fl := range f.flags {
		if fl.TickID == tick {
			out = append(out, fl)
		}
	}
	return out, nil
}

func (f *FakeFlagRepo) GetSubmission(ctx context.Context, db bun.IDB, team sharedtypes.TeamID, text string) (*flagdb.Submission, error) {
	f.record("GetSubmission")
	for i := range f.submissions {
		if f.submissions[i].TeamID == team && f.submissions[i].Submission == text {
			sub := f.submissions[i]
			return &sub, nil
		}
	}
	return nil, flagdb.ErrSubmissionNotFound
}

func (f *FakeFlagRepo) InsertSubmissionIfAbsent(ctx context.Context, db bun.IDB, sub *flagdb.Submission) (bool, error) {
	f.record("InsertSubmissionIfAbsent")
	if f.InsertSubmissionIfAbsentFunc != nil {
		return f.InsertSubmissionIfAbsentFunc(ctx, db, sub)
	}
	for _, existing := range f.submissions {
		if existing.TeamID == sub.TeamID && existing.Submission == sub.Submission {
			return false, nil
		}
	}
	sub.ID = int64(len(f.submissions) + 1)
	f.submissions = append(f.submissions, *sub)
	return true, nil
}

func (f *FakeFlagRepo) ListSubmissions(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]flagdb.Submission, error) {
	f.record("ListSubmissions")
	var out []flagdb.Submission
	for _, sub := range f.submissions {
		if sub.TeamID == team {
			out = append(out, sub)
		}
	}
	return out, nil
}

// ------------------------
// Collaborator fakes
// ------------------------

type FakeTicks struct {
	current sharedtypes.TickID
}

func (f *FakeTicks) CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	if f.current == 0 {
		return nil, gamedb.ErrNoTick
	}
	return &gamedb.Tick{ID: f.current}, nil
}

type FakeRoster struct {
	teams    map[sharedtypes.TeamID]rosterdb.Team
	services map[sharedtypes.ServiceID]rosterdb.Service
}

func (f *FakeRoster) GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error) {
	team, ok := f.teams[id]
	if !ok {
		return nil, rosterdb.ErrTeamNotFound
	}
	return &team, nil
}

func (f *FakeRoster) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, rosterdb.ErrServiceNotFound
	}
	return &svc, nil
}

// FakeActivity reports every service active unless listed in inactive.
type FakeActivity struct {
	inactive map[sharedtypes.ServiceID]bool
}

func (f *FakeActivity) WasActive(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error) {
	return !f.inactive[serviceID], nil
}

// FakeEvents records flag-stolen events and counts them per service.
type FakeEvents struct {
	recorded  []*eventdb.Event
	published []*eventdb.Event

	RecordTxFunc func(ctx context.Context, db bun.IDB, ev *eventdb.Event) error
}

func (f *FakeEvents) RecordTx(ctx context.Context, db bun.IDB, ev *eventdb.Event) error {
	if f.RecordTxFunc != nil {
		return f.RecordTxFunc(ctx, db, ev)
	}
	ev.ID = sharedtypes.EventID(len(f.recorded) + 1)
	f.recorded = append(f.recorded, ev)
	return nil
}

func (f *FakeEvents) Publish(ctx context.Context, ev *eventdb.Event) {
	f.published = append(f.published, ev)
}

func (f *FakeEvents) CountFlagStolenForService(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (int, error) {
	n := 0
	for _, ev := range f.recorded {
		if ev.FlagStolen != nil && ev.FlagStolen.ServiceID == serviceID {
			n++
		}
	}
	return n, nil
}

// FakeMetrics counts submissions by result.
type FakeMetrics struct {
	metrics.FlagMetrics
	submissions map[string]int
}

func NewFakeMetrics() *FakeMetrics {
	return &FakeMetrics{FlagMetrics: metrics.NewNoop(), submissions: map[string]int{}}
}

func (f *FakeMetrics) RecordSubmission(ctx context.Context, result string) {
	f.submissions[result]++
}
