package activityservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// ServiceReader resolves service ids.
type ServiceReader interface {
	GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error)
}

// ActivityService implements the Service interface.
type ActivityService struct {
	repo     activitydb.Repository
	tracker  *Tracker
	ticks    TickReader
	services ServiceReader
	logger   *slog.Logger
	run      *operation.Runner
}

// NewActivityService creates a new ActivityService.
func NewActivityService(
	repo activitydb.Repository,
	tracker *Tracker,
	ticks TickReader,
	services ServiceReader,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ActivityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityService{
		repo:     repo,
		tracker:  tracker,
		ticks:    ticks,
		services: services,
		logger:   logger,
		run:      operation.NewRunner("ActivityService", logger, metrics, tracer, db),
	}
}

// NormalizeValue validates raw for kind and returns its stored form.
func NormalizeValue(kind activitydb.ToggleKind, raw string) (string, error) {
	if !kind.Valid() {
		return "", apperrors.Validationf("unknown toggle kind %q", kind)
	}
	if kind.IsBool() {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return "", apperrors.Validationf("%s expects a boolean, got %q", kind, raw)
		}
		return strconv.FormatBool(b), nil
	}
	status := sharedtypes.ServiceStatus(strings.ToUpper(raw))
	if !status.Valid() {
		return "", apperrors.Validationf("%s expects GOOD, OK, LOW or BAD, got %q", kind, raw)
	}
	return string(status), nil
}

// SetToggle appends a toggle stamped with the current tick, or 0 before the
// first tick.
func (s *ActivityService) SetToggle(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, value string) (*activitydb.Toggle, error) {
	return operation.Do(s.run, ctx, "SetToggle", fmt.Sprintf("%s/%d", kind, serviceID), func(ctx context.Context, db bun.IDB) (results.OperationResult[*activitydb.Toggle, error], error) {
		normalized, err := NormalizeValue(kind, value)
		if err != nil {
			return results.FailureResult[*activitydb.Toggle, error](err), nil
		}
		if _, err := s.services.GetService(ctx, db, serviceID); err != nil {
			if errors.Is(err, rosterdb.ErrServiceNotFound) {
				return results.FailureResult[*activitydb.Toggle, error](err), nil
			}
			return results.OperationResult[*activitydb.Toggle, error]{}, err
		}

		var tick sharedtypes.TickID
		current, err := s.ticks.CurrentTick(ctx, db)
		switch {
		case err == nil:
			tick = current.ID
		case !errors.Is(err, gamedb.ErrNoTick):
			return results.OperationResult[*activitydb.Toggle, error]{}, err
		}

		toggle := &activitydb.Toggle{Kind: kind, ServiceID: serviceID, Value: normalized, TickID: tick}
		if err := s.repo.AppendToggle(ctx, db, toggle); err != nil {
			return results.OperationResult[*activitydb.Toggle, error]{}, err
		}
		s.logger.InfoContext(ctx, "Service toggle set",
			attr.ExtractCorrelationID(ctx),
			attr.ServiceID("service_id", serviceID),
			attr.String("kind", string(kind)),
			attr.String("value", normalized),
			attr.TickID("tick_id", tick),
		)
		return results.SuccessResult[*activitydb.Toggle, error](toggle), nil
	})
}

// Current returns the most recent value of kind, or its default.
func (s *ActivityService) Current(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID) (*ToggleView, error) {
	return operation.Do(s.run, ctx, "Current", fmt.Sprintf("%s/%d", kind, serviceID), func(ctx context.Context, db bun.IDB) (results.OperationResult[*ToggleView, error], error) {
		if !kind.Valid() {
			return results.FailureResult[*ToggleView, error](apperrors.Validationf("unknown toggle kind %q", kind)), nil
		}
		raw := kind.Default()
		latest, err := s.repo.LatestToggle(ctx, db, kind, serviceID)
		switch {
		case err == nil:
			raw = latest.Value
		case !errors.Is(err, activitydb.ErrNoToggle):
			return results.OperationResult[*ToggleView, error]{}, err
		}
		return results.SuccessResult[*ToggleView, error](newView(kind, serviceID, nil, raw)), nil
	})
}

// ValueAt resolves kind as of tick. is_active answers go through the memo.
func (s *ActivityService) ValueAt(ctx context.Context, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (*ToggleView, error) {
	return operation.Do(s.run, ctx, "ValueAt", fmt.Sprintf("%s/%d@%d", kind, serviceID, tick), func(ctx context.Context, db bun.IDB) (results.OperationResult[*ToggleView, error], error) {
		if !kind.Valid() {
			return results.FailureResult[*ToggleView, error](apperrors.Validationf("unknown toggle kind %q", kind)), nil
		}
		var raw string
		if kind == activitydb.KindIsActive {
			active, err := s.tracker.WasActive(ctx, db, serviceID, tick)
			if err != nil {
				return results.OperationResult[*ToggleView, error]{}, err
			}
			raw = strconv.FormatBool(active)
		} else {
			var err error
			raw, err = s.tracker.ValueAt(ctx, db, kind, serviceID, tick)
			if err != nil {
				return results.OperationResult[*ToggleView, error]{}, err
			}
		}
		return results.SuccessResult[*ToggleView, error](newView(kind, serviceID, &tick, raw)), nil
	})
}

// Invalidate drops the WasActive memos a deleted is_active toggle could have
// influenced: those of its service from the toggle's tick onward.
func (s *ActivityService) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	toggle, ok := snapshot.(*activitydb.Toggle)
	if !ok || toggle.Kind != activitydb.KindIsActive {
		return nil
	}
	dropped, err := s.repo.DeleteActiveMemosFrom(ctx, db, toggle.ServiceID, toggle.TickID)
	if err != nil {
		return err
	}
	if dropped > 0 {
		s.logger.InfoContext(ctx, "Activity memos invalidated",
			attr.ExtractCorrelationID(ctx),
			attr.ServiceID("service_id", toggle.ServiceID),
			attr.TickID("from_tick", toggle.TickID),
			attr.Int("memos_dropped", dropped),
		)
	}
	return nil
}
