package gameservice

import (
	"context"
	"sync"
	"time"

	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Game Repo
// ------------------------

// FakeGameRepo keeps the logs in memory so tests can chain operations.
type FakeGameRepo struct {
	trace []string

	ticks  []gamedb.Tick
	states []gamedb.GameStateRow
	times  []gamedb.TickTime
	public []gamedb.GameStatePublic
	delays []gamedb.GameStateDelay
	now    func() time.Time

	CreateNextTickFunc func(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
}

func NewFakeGameRepo(now func() time.Time) *FakeGameRepo {
	return &FakeGameRepo{trace: []string{}, now: now}
}

func (f *FakeGameRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeGameRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeGameRepo) LockTicks(ctx context.Context, db bun.IDB) error {
	f.record("LockTicks")
	return nil
}

func (f *FakeGameRepo) CreateNextTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	f.record("CreateNextTick")
	if f.CreateNextTickFunc != nil {
		return f.CreateNextTickFunc(ctx, db)
	}
	tick := gamedb.Tick{ID: sharedtypes.TickID(len(f.ticks) + 1), CreatedOn: f.now()}
	f.ticks = append(f.ticks, tick)
	return &tick, nil
}

func (f *FakeGameRepo) CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error) {
	f.record("CurrentTick")
	if len(f.ticks) == 0 {
		return nil, gamedb.ErrNoTick
	}
	tick := f.ticks[len(f.ticks)-1]
	return &tick, nil
}

func (f *FakeGameRepo) GetTick(ctx context.Context, db bun.IDB, id sharedtypes.TickID) (*gamedb.Tick, error) {
	f.record("GetTick")
	for _, t := range f.ticks {
		if t.ID == id {
			tick := t
			return &tick, nil
		}
	}
	return nil, gamedb.ErrNoTick
}

func (f *FakeGameRepo) TickAt(ctx context.Context, db bun.IDB, ts time.Time) (*gamedb.Tick, error) {
	f.record("TickAt")
	for i := len(f.ticks) - 1; i >= 0; i-- {
		if !f.ticks[i].CreatedOn.After(ts) {
			tick := f.ticks[i]
			return &tick, nil
		}
	}
	return nil, gamedb.ErrNoTick
}

func (f *FakeGameRepo) ListTicks(ctx context.Context, db bun.IDB) ([]gamedb.Tick, error) {
	f.record("ListTicks")
	return append([]gamedb.Tick(nil), f.ticks...), nil
}

func (f *FakeGameRepo) AppendState(ctx context.Context, db bun.IDB, state sharedtypes.GameState) (*gamedb.GameStateRow, error) {
	f.record("AppendState")
	row := gamedb.GameStateRow{ID: int64(len(f.states) + 1), State: state, CreatedOn: f.now()}
	f.states = append(f.states, row)
	return &row, nil
}

func (f *FakeGameRepo) LatestState(ctx context.Context, db bun.IDB) (*gamedb.GameStateRow, error) {
	f.record("LatestState")
	if len(f.states) == 0 {
		return nil, gamedb.ErrNoSetting
	}
	row := f.states[len(f.states)-1]
	return &row, nil
}

func (f *FakeGameRepo) AppendTickTime(ctx context.Context, db bun.IDB, seconds int) (*gamedb.TickTime, error) {
	f.record("AppendTickTime")
	row := gamedb.TickTime{ID: int64(len(f.times) + 1), TimeSeconds: seconds}
	f.times = append(f.times, row)
	return &row, nil
}

func (f *FakeGameRepo) LatestTickTime(ctx context.Context, db bun.IDB) (*gamedb.TickTime, error) {
	f.record("LatestTickTime")
	if len(f.times) == 0 {
		return nil, gamedb.ErrNoSetting
	}
	row := f.times[len(f.times)-1]
	return &row, nil
}

func (f *FakeGameRepo) AppendPublic(ctx context.Context, db bun.IDB, public bool) (*gamedb.GameStatePublic, error) {
	f.record("AppendPublic")
	row := gamedb.GameStatePublic{ID: int64(len(f.public) + 1), IsPublic: public}
	f.public = append(f.public, row)
	return &row, nil
}

func (f *FakeGameRepo) LatestPublic(ctx context.Context, db bun.IDB) (*gamedb.GameStatePublic, error) {
	f.record("LatestPublic")
	if len(f.public) == 0 {
		return nil, gamedb.ErrNoSetting
	}
	row := f.public[len(f.public)-1]
	return &row, nil
}

func (f *FakeGameRepo) AppendDelay(ctx context.Context, db bun.IDB, delay int) (*gamedb.GameStateDelay, error) {
	f.record("AppendDelay")
	row := gamedb.GameStateDelay{ID: int64(len(f.delays) + 1), Delay: delay}
	f.delays = append(f.delays, row)
	return &row, nil
}

func (f *FakeGameRepo) LatestDelay(ctx context.Context, db bun.IDB) (*gamedb.GameStateDelay, error) {
	f.record("LatestDelay")
	if len(f.delays) == 0 {
		return nil, gamedb.ErrNoSetting
	}
	row := f.delays[len(f.delays)-1]
	return &row, nil
}

var _ gamedb.Repository = (*FakeGameRepo)(nil)

// ------------------------
// Fake Publisher
// ------------------------

type published struct {
	Topic   string
	Payload any
}

type FakePublisher struct {
	mu       sync.Mutex
	messages []published
	err      error
}

func (p *FakePublisher) Publish(ctx context.Context, topic string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, published{Topic: topic, Payload: payload})
	return p.err
}

func (p *FakePublisher) Messages() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.messages...)
}

// ------------------------
// Fake Settle Scheduler
// ------------------------

type FakeSettleScheduler struct {
	mu    sync.Mutex
	ticks []sharedtypes.TickID
	err   error
}

func (f *FakeSettleScheduler) EnqueueSettle(ctx context.Context, tick sharedtypes.TickID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, tick)
	return f.err
}

func (f *FakeSettleScheduler) Ticks() []sharedtypes.TickID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sharedtypes.TickID(nil), f.ticks...)
}
