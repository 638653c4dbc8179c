package patchservice

import (
	"context"
	"sync"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Patch Repo
// ------------------------

type FakePatchRepo struct {
	trace    []string
	patches  []patchdb.Patch
	results  []patchdb.PatchResult
	profiles map[sharedtypes.ServiceID]patchdb.ServiceProfile

	CreatePatchFunc  func(ctx context.Context, db bun.IDB, patch *patchdb.Patch) error
	AppendResultFunc func(ctx context.Context, db bun.IDB, result *patchdb.PatchResult) error
}

func NewFakePatchRepo() *FakePatchRepo {
	return &FakePatchRepo{trace: []string{}, profiles: map[sharedtypes.ServiceID]patchdb.ServiceProfile{}}
}

func (f *FakePatchRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePatchRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

// withResults attaches the stored results newest first, like the SQL
// relation does.
func (f *FakePatchRepo) withResults(p patchdb.Patch) *patchdb.Patch {
	p.Results = nil
	for i := len(f.results) - 1; i >= 0; i-- {
		if f.results[i].PatchID == p.ID {
			r := f.results[i]
			p.Results = append(p.Results, &r)
		}
	}
	return &p
}

func (f *FakePatchRepo) CreatePatch(ctx context.Context, db bun.IDB, patch *patchdb.Patch) error {
	f.record("CreatePatch")
	if f.CreatePatchFunc != nil {
		return f.CreatePatchFunc(ctx, db, patch)
	}
	for _, p := range f.patches {
		if p.TeamID == patch.TeamID && p.ServiceID == patch.ServiceID && p.TickID == patch.TickID {
			return patchdb.ErrPatchExists
		}
	}
	patch.ID = int64(len(f.patches) + 1)
	f.patches = append(f.patches, *patch)
	return nil
}

func (f *FakePatchRepo) GetPatch(ctx context.Context, db bun.IDB, id int64) (*patchdb.Patch, error) {
	f.record("GetPatch")
	for _, p := range f.patches {
		if p.ID == id {
			return f.withResults(p), nil
		}
	}
	return nil, patchdb.ErrPatchNotFound
}

func (f *FakePatchRepo) FindPatch(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*patchdb.Patch, error) {
	f.record("FindPatch")
	for _, p := range f.patches {
		if p.TeamID == teamID && p.ServiceID == serviceID && p.TickID == tick {
			p.UploadedFile = nil
			return &p, nil
		}
	}
	return nil, patchdb.ErrPatchNotFound
}

func (f *FakePatchRepo) ListPatchesForTeam(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID) ([]patchdb.Patch, error) {
	f.record("ListPatchesForTeam")
	var out []patchdb.Patch
	for _, p := range f.patches {
		if p.TeamID == teamID {
			row := f.withResults(p)
			row.UploadedFile = nil
			out = append(out, *row)
		}
	}
	return out, nil
}

func (f *FakePatchRepo) DeletePatch(ctx context.Context, db bun.IDB, id int64) error {
	f.record("DeletePatch")
	for i, p := range f.patches {
		if p.ID == id {
			f.patches = append(f.patches[:i], f.patches[i+1:]...)
			kept := f.results[:0]
			for _, r := range f.results {
				if r.PatchID != id {
					kept = append(kept, r)
				}
			}
			f.results = kept
			return nil
		}
	}
	return patchdb.ErrPatchNotFound
}

func (f *FakePatchRepo) AppendResult(ctx context.Context, db bun.IDB, result *patchdb.PatchResult) error {
	f.record("AppendResult")
	if f.AppendResultFunc != nil {
		return f.AppendResultFunc(ctx, db, result)
	}
	result.ID = int64(len(f.results) + 1)
	f.results = append(f.results, *result)
	return nil
}

func (f *FakePatchRepo) PutProfile(ctx context.Context, db bun.IDB, profile *patchdb.ServiceProfile) error {
	f.record("PutProfile")
	f.profiles[profile.ServiceID] = *profile
	return nil
}

func (f *FakePatchRepo) GetProfile(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (*patchdb.ServiceProfile, error) {
	f.record("GetProfile")
	p, ok := f.profiles[serviceID]
	if !ok {
		return nil, patchdb.ErrProfileNotFound
	}
	return &p, nil
}

// ------------------------
// Fake Collaborators
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
	teams    map[sharedtypes.TeamID]bool
	services map[sharedtypes.ServiceID]*rosterdb.Service
}

func (f *FakeRoster) GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error) {
	if !f.teams[id] {
		return nil, rosterdb.ErrTeamNotFound
	}
	return &rosterdb.Team{ID: id}, nil
}

func (f *FakeRoster) GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return nil, rosterdb.ErrServiceNotFound
	}
	return svc, nil
}

// FakeActivity answers is_active from a set of active services.
type FakeActivity struct {
	active map[sharedtypes.ServiceID]bool
}

func (f *FakeActivity) ValueAt(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (string, error) {
	if kind == activitydb.KindIsActive && f.active[serviceID] {
		return "true", nil
	}
	return "false", nil
}

type published struct {
	topic   string
	payload any
}

type FakeBus struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *FakeBus) Publish(ctx context.Context, topic string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, payload: payload})
	return f.err
}

func (f *FakeBus) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.topic)
	}
	return out
}
