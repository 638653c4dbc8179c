package activityservice

import (
	"context"
	"sort"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Activity Repo
// ------------------------

// FakeActivityRepo stores toggles and memos in memory with the same ordering
// rules as the SQL queries.
type FakeActivityRepo struct {
	trace   []string
	toggles []activitydb.Toggle
	memos   map[[2]int64]activitydb.ActiveMemo

	AppendToggleFunc func(ctx context.Context, db bun.IDB, toggle *activitydb.Toggle) error
}

func NewFakeActivityRepo() *FakeActivityRepo {
	return &FakeActivityRepo{trace: []string{}, memos: map[[2]int64]activitydb.ActiveMemo{}}
}

func (f *FakeActivityRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeActivityRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// seed appends a toggle directly, bypassing the trace.
func (f *FakeActivityRepo) seed(kind activitydb.ToggleKind, svc sharedtypes.ServiceID, tick sharedtypes.TickID, value string) {
	f.toggles = append(f.toggles, activitydb.Toggle{
		ID: int64(len(f.toggles) + 1), Kind: kind, ServiceID: svc, TickID: tick, Value: value,
	})
}

func (f *FakeActivityRepo) AppendToggle(ctx context.Context, db bun.IDB, toggle *activitydb.Toggle) error {
	f.record("AppendToggle")
	if f.AppendToggleFunc != nil {
		return f.AppendToggleFunc(ctx, db, toggle)
	}
	toggle.ID = int64(len(f.toggles) + 1)
	f.toggles = append(f.toggles, *toggle)
	return nil
}

func (f *FakeActivityRepo) matching(kind activitydb.ToggleKind, svc sharedtypes.ServiceID, keep func(activitydb.Toggle) bool) []activitydb.Toggle {
	var out []activitydb.Toggle
	for _, t := range f.toggles {
		if t.Kind == kind && t.ServiceID == svc && keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func (f *FakeActivityRepo) LatestToggle(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID) (*activitydb.Toggle, error) {
	f.record("LatestToggle")
	rows := f.matching(kind, serviceID, func(activitydb.Toggle) bool { return true })
	if len(rows) == 0 {
		return nil, activitydb.ErrNoToggle
	}
	last := rows[len(rows)-1]
	return &last, nil
}

func (f *FakeActivityRepo) TogglesAt(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) ([]activitydb.Toggle, error) {
	f.record("TogglesAt")
	return f.matching(kind, serviceID, func(t activitydb.Toggle) bool { return t.TickID == tick }), nil
}

func (f *FakeActivityRepo) LatestToggleBefore(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*activitydb.Toggle, error) {
	f.record("LatestToggleBefore")
	rows := f.matching(kind, serviceID, func(t activitydb.Toggle) bool { return t.TickID < tick })
	if len(rows) == 0 {
		return nil, activitydb.ErrNoToggle
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].TickID != rows[j].TickID {
			return rows[i].TickID > rows[j].TickID
		}
		return rows[i].ID > rows[j].ID
	})
	return &rows[0], nil
}

func (f *FakeActivityRepo) GetActiveMemo(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*activitydb.ActiveMemo, error) {
	f.record("GetActiveMemo")
	memo, ok := f.memos[[2]int64{int64(serviceID), int64(tick)}]
	if !ok {
		return nil, activitydb.ErrNoMemo
	}
	return &memo, nil
}

func (f *FakeActivityRepo) PutActiveMemo(ctx context.Context, db bun.IDB, memo *activitydb.ActiveMemo) error {
	f.record("PutActiveMemo")
	key := [2]int64{int64(memo.ServiceID), int64(memo.TickID)}
	if _, exists := f.memos[key]; !exists {
		f.memos[key] = *memo
	}
	return nil
}

func (f *FakeActivityRepo) DeleteActiveMemosFrom(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, from sharedtypes.TickID) (int, error) {
	f.record("DeleteActiveMemosFrom")
	n := 0
	for key := range f.memos {
		if key[0] == int64(serviceID) && key[1] >= int64(from) {
			delete(f.memos, key)
			n++
		}
	}
	return n, nil
}

// ------------------------
// Fake Tick and Service Readers
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

type FakeServices struct {
	known map[sharedtypes.ServiceID]bool
}

func (f *FakeServices) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	if !f.known[id] {
		return nil, rosterdb.ErrServiceNotFound
	}
	return &rosterdb.Service{ID: id}, nil
}
