package scoreservice

import (
	"context"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Score Repo
// ------------------------

type FakeScoreRepo struct {
	trace []string
	cache map[sharedtypes.TickID]*scoredb.TickScores
}

func NewFakeScoreRepo() *FakeScoreRepo {
	return &FakeScoreRepo{trace: []string{}, cache: map[sharedtypes.TickID]*scoredb.TickScores{}}
}

func (f *FakeScoreRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeScoreRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeScoreRepo) GetCachedScores(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) (*scoredb.TickScores, error) {
	f.record("GetCachedScores")
	if s, ok := f.cache[tick]; ok {
		return s, nil
	}
	return nil, scoredb.ErrNoCache
}

func (f *FakeScoreRepo) PutCachedScores(ctx context.Context, db bun.IDB, scores *scoredb.TickScores) error {
	f.record("PutCachedScores")
	if _, ok := f.cache[scores.TickID]; !ok {
		f.cache[scores.TickID] = scores
	}
	return nil
}

func (f *FakeScoreRepo) DeleteCachedScores(ctx context.Context, db bun.IDB, ticks []sharedtypes.TickID) (int, error) {
	f.record("DeleteCachedScores")
	n := 0
	for _, t := range ticks {
		if _, ok := f.cache[t]; ok {
			delete(f.cache, t)
			n++
		}
	}
	return n, nil
}

func (f *FakeScoreRepo) DeleteCachedScoresFrom(ctx context.Context, db bun.IDB, from sharedtypes.TickID) (int, error) {
	f.record("DeleteCachedScoresFrom")
	n := 0
	for t := range f.cache {
		if t >= from {
			delete(f.cache, t)
			n++
		}
	}
	return n, nil
}

// ------------------------
// Collaborator fakes
// ------------------------

// FakeTicks holds ticks 1..current.
type FakeTicks struct {
	current sharedtypes.TickID
}

func (f *FakeTicks) CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	if f.current == 0 {
		return nil, gamedb.ErrNoTick
	}
	return &gamedb.Tick{ID: f.current}, nil
}

func (f *FakeTicks) GetTick(ctx context.Context, db bun.IDB, id sharedtypes.TickID) (*gamedb.Tick, error) {
	if id < 1 || id > f.current {
		return nil, gamedb.ErrNoTick
	}
	return &gamedb.Tick{ID: id}, nil
}

func (f *FakeTicks) ListTicks(ctx context.Context, db bun.IDB) ([]gamedb.Tick, error) {
	out := []gamedb.Tick{}
	for id := sharedtypes.TickID(1); id <= f.current; id++ {
		out = append(out, gamedb.Tick{ID: id})
	}
	return out, nil
}

type FakeRoster struct {
	teams    []rosterdb.Team
	services []rosterdb.Service
}

func (f *FakeRoster) ListTeams(ctx context.Context, db bun.IDB, includeTest bool) ([]rosterdb.Team, error) {
	var out []rosterdb.Team
	for _, t := range f.teams {
		if includeTest || !t.IsTestTeam {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *FakeRoster) ListServices(ctx context.Context, db bun.IDB) ([]rosterdb.Service, error) {
	return f.services, nil
}

func (f *FakeRoster) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	for i := range f.services {
		if f.services[i].ID == id {
			svc := f.services[i]
			return &svc, nil
		}
	}
	return nil, rosterdb.ErrServiceNotFound
}

// FakeActivity treats every service as active.
type FakeActivity struct {
	calls int
}

func (f *FakeActivity) WasActive(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error) {
	f.calls++
	return true, nil
}

// FakeEvents serves typed event slices keyed by tick.
type FakeEvents struct {
	steals    map[sharedtypes.TickID][]eventdb.FlagStolen
	stealth   map[sharedtypes.TickID][]eventdb.Stealth
	rankings  map[sharedtypes.TickID][]eventdb.KohRanking
	byService []eventdb.Event
	updated   []eventdb.KohRankResult
}

func NewFakeEvents() *FakeEvents {
	return &FakeEvents{
		steals:   map[sharedtypes.TickID][]eventdb.FlagStolen{},
		stealth:  map[sharedtypes.TickID][]eventdb.Stealth{},
		rankings: map[sharedtypes.TickID][]eventdb.KohRanking{},
	}
}

func (f *FakeEvents) FlagStolenForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.FlagStolen, error) {
	return f.steals[tick], nil
}

func (f *FakeEvents) StealthForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.Stealth, error) {
	return f.stealth[tick], nil
}

func (f *FakeEvents) KohRankingsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.KohRanking, error) {
	return f.rankings[tick], nil
}

func (f *FakeEvents) KohRankingsForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) ([]eventdb.Event, error) {
	return f.byService, nil
}

func (f *FakeEvents) UpdateRankResults(ctx context.Context, db bun.IDB, rows []eventdb.KohRankResult) error {
	f.updated = append(f.updated, rows...)
	return nil
}

// FakeLeaderboard stores the last published standings.
type FakeLeaderboard struct {
	published []scoredb.Standing
	publishes int
	TopErr    error
}

func (f *FakeLeaderboard) Publish(ctx context.Context, standings []scoredb.Standing) error {
	f.published = standings
	f.publishes++
	return nil
}

func (f *FakeLeaderboard) Top(ctx context.Context, n int) ([]scoredb.Standing, error) {
	if f.TopErr != nil {
		return nil, f.TopErr
	}
	if len(f.published) > n {
		return f.published[:n], nil
	}
	return f.published, nil
}
