package eventservice

import (
	"context"
	"sync"
	"time"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Event Repo
// ------------------------

type FakeEventRepo struct {
	trace  []string
	events []eventdb.Event

	InsertFunc func(ctx context.Context, db bun.IDB, ev *eventdb.Event) error
}

func NewFakeEventRepo() *FakeEventRepo {
	return &FakeEventRepo{trace: []string{}}
}

func (f *FakeEventRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeEventRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeEventRepo) Insert(ctx context.Context, db bun.IDB, ev *eventdb.Event) error {
	f.record("Insert")
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, ev)
	}
	ev.ID = sharedtypes.EventID(len(f.events) + 1)
	f.events = append(f.events, *ev)
	return nil
}

func (f *FakeEventRepo) Get(ctx context.Context, db bun.IDB, id sharedtypes.EventID) (*eventdb.Event, error) {
	f.record("Get")
	for i := range f.events {
		if f.events[i].ID == id {
			ev := f.events[i]
			return &ev, nil
		}
	}
	return nil, eventdb.ErrEventNotFound
}

func (f *FakeEventRepo) List(ctx context.Context, db bun.IDB) ([]eventdb.Event, error) {
	f.record("List")
	return f.events, nil
}

func (f *FakeEventRepo) ListForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.Event, error) {
	f.record("ListForTick")
	var out []eventdb.Event
	for _, ev := range f.events {
		if ev.TickID == tick {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *FakeEventRepo) PcapsReleasedForTeam(ctx context.Context, db bun.IDB, team sharedtypes.TeamID) ([]eventdb.Event, error) {
	f.record("PcapsReleasedForTeam")
	var out []eventdb.Event
	for _, ev := range f.events {
		if ev.PcapReleased != nil && ev.PcapReleased.TeamID == team {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *FakeEventRepo) DeleteHeader(ctx context.Context, db bun.IDB, id sharedtypes.EventID) error {
	f.record("DeleteHeader")
	for i := range f.events {
		if f.events[i].ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			return nil
		}
	}
	return eventdb.ErrEventNotFound
}

func (f *FakeEventRepo) FlagStolenForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.FlagStolen, error) {
	return nil, nil
}

func (f *FakeEventRepo) CountFlagStolenForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) (int, error) {
	return 0, nil
}

func (f *FakeEventRepo) StealthForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.Stealth, error) {
	return nil, nil
}

func (f *FakeEventRepo) KohRankingsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.KohRanking, error) {
	return nil, nil
}

func (f *FakeEventRepo) KohRankingsForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) ([]eventdb.Event, error) {
	return nil, nil
}

func (f *FakeEventRepo) UpdateRankResults(ctx context.Context, db bun.IDB, rows []eventdb.KohRankResult) error {
	return nil
}

// ------------------------
// Fake collaborators
// ------------------------

// FakeTicks holds tick start times; tick n starts at starts[n-1].
type FakeTicks struct {
	starts []time.Time
}

func (f *FakeTicks) CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	if len(f.starts) == 0 {
		return nil, gamedb.ErrNoTick
	}
	n := len(f.starts)
	return &gamedb.Tick{ID: sharedtypes.TickID(n), CreatedOn: f.starts[n-1]}, nil
}

func (f *FakeTicks) TickAt(ctx context.Context, db bun.IDB, ts time.Time) (*gamedb.Tick, error) {
	for i := len(f.starts) - 1; i >= 0; i-- {
		if !f.starts[i].After(ts) {
			return &gamedb.Tick{ID: sharedtypes.TickID(i + 1), CreatedOn: f.starts[i]}, nil
		}
	}
	return nil, gamedb.ErrNoTick
}

type FakeTombstones struct {
	rows []archivedb.Tombstone
}

func (f *FakeTombstones) Insert(ctx context.Context, db bun.IDB, typeName, content string) (*archivedb.Tombstone, error) {
	row := archivedb.Tombstone{ID: int64(len(f.rows) + 1), TypeName: typeName, Content: content}
	f.rows = append(f.rows, row)
	return &row, nil
}

// FakeInvalidator records the snapshots handed to it.
type FakeInvalidator struct {
	types     []string
	snapshots []any
	err       error
}

func (f *FakeInvalidator) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	f.types = append(f.types, typeName)
	f.snapshots = append(f.snapshots, snapshot)
	return f.err
}

type FakePublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (f *FakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return f.err
}
