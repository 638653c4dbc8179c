package activityservice

import (
	"context"
	"errors"
	"strconv"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// TickReader is the slice of the game repository the tracker needs.
type TickReader interface {
	CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
}

// Tracker answers "what was this switch at tick T" on a caller-supplied
// handle, so flag and score operations can ask inside their own transaction.
type Tracker struct {
	repo        activitydb.Repository
	ticks       TickReader
	validWindow int
}

// NewTracker creates a Tracker. validWindow decides when a tick is settled
// enough for its WasActive answer to be memoised.
func NewTracker(repo activitydb.Repository, ticks TickReader, validWindow int) *Tracker {
	return &Tracker{repo: repo, ticks: ticks, validWindow: validWindow}
}

// Resolve picks the value in force at a tick. Rows stamped with the tick
// itself win: boolean kinds AND them, the status takes the newest. Failing
// that the nearest earlier row applies, then the kind's default.
func Resolve(kind activitydb.ToggleKind, atTick []activitydb.Toggle, earlier *activitydb.Toggle) string {
	if len(atTick) > 0 {
		if !kind.IsBool() {
			return atTick[len(atTick)-1].Value
		}
		for _, row := range atTick {
			if !parseBool(row.Value) {
				return "false"
			}
		}
		return "true"
	}
	if earlier != nil {
		return earlier.Value
	}
	return kind.Default()
}

func parseBool(v string) bool {
	b, _ := strconv.ParseBool(v)
	return b
}

// ValueAt resolves kind for the service as of tick.
func (t *Tracker) ValueAt(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (string, error) {
	atTick, err := t.repo.TogglesAt(ctx, db, kind, serviceID, tick)
	if err != nil {
		return "", err
	}
	var earlier *activitydb.Toggle
	if len(atTick) == 0 {
		earlier, err = t.repo.LatestToggleBefore(ctx, db, kind, serviceID, tick)
		if err != nil && !errors.Is(err, activitydb.ErrNoToggle) {
			return "", err
		}
	}
	return Resolve(kind, atTick, earlier), nil
}

// WasActive reports whether the service counted as active in tick. Answers
// for settled ticks are memoised.
func (t *Tracker) WasActive(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error) {
	memo, err := t.repo.GetActiveMemo(ctx, db, serviceID, tick)
	if err == nil {
		return memo.WasActive, nil
	}
	if !errors.Is(err, activitydb.ErrNoMemo) {
		return false, err
	}

	value, err := t.ValueAt(ctx, db, activitydb.KindIsActive, serviceID, tick)
	if err != nil {
		return false, err
	}
	active := parseBool(value)

	settled, err := t.settled(ctx, db, tick)
	if err != nil {
		return false, err
	}
	if settled {
		if err := t.repo.PutActiveMemo(ctx, db, &activitydb.ActiveMemo{
			ServiceID: serviceID,
			TickID:    tick,
			WasActive: active,
		}); err != nil {
			return false, err
		}
	}
	return active, nil
}

func (t *Tracker) WasVisible(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error) {
	value, err := t.ValueAt(ctx, db, activitydb.KindIsVisible, serviceID, tick)
	if err != nil {
		return false, err
	}
	return parseBool(value), nil
}

func (t *Tracker) PcapsReleasedAt(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error) {
	value, err := t.ValueAt(ctx, db, activitydb.KindReleasePcaps, serviceID, tick)
	if err != nil {
		return false, err
	}
	return parseBool(value), nil
}

func (t *Tracker) StatusAt(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (sharedtypes.ServiceStatus, error) {
	value, err := t.ValueAt(ctx, db, activitydb.KindStatusIndicator, serviceID, tick)
	if err != nil {
		return "", err
	}
	return sharedtypes.ServiceStatus(value), nil
}

func (t *Tracker) settled(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) (bool, error) {
	current, err := t.ticks.CurrentTick(ctx, db)
	if err != nil {
		if errors.Is(err, gamedb.ErrNoTick) {
			return false, nil
		}
		return false, err
	}
	return sharedtypes.Settled(current.ID, tick, t.validWindow), nil
}
