package eventservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/pgerr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// TickReader is the slice of the game repository the event log needs.
type TickReader interface {
	CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
	TickAt(ctx context.Context, db bun.IDB, ts time.Time) (*gamedb.Tick, error)
}

// EventService implements the Service interface.
type EventService struct {
	repo    eventdb.Repository
	ticks   TickReader
	archive archivedb.Repository
	bus     eventbus.Publisher
	logger  *slog.Logger
	run     *operation.Runner

	invalidator archivedb.Invalidator
}

// NewEventService creates a new EventService.
func NewEventService(
	repo eventdb.Repository,
	ticks TickReader,
	archive archivedb.Repository,
	bus eventbus.Publisher,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &EventService{
		repo:    repo,
		ticks:   ticks,
		archive: archive,
		bus:     bus,
		logger:  logger,
		run:     operation.NewRunner("EventService", logger, metrics, tracer, db),
	}
}

// Record appends ev to the log in the current tick unless ev.TickID is set.
// The payload is validated against its type first. Before the first tick
// there is nothing to credit, so the call fails with ErrPrecondition. The
// event is published on the bus after the insert commits.
func (s *EventService) Record(ctx context.Context, ev *eventdb.Event) (sharedtypes.EventID, error) {
	id, err := operation.Do(s.run, ctx, "Record", eventType(ev), func(ctx context.Context, db bun.IDB) (results.OperationResult[sharedtypes.EventID, error], error) {
		if err := Validate(ev); err != nil {
			return results.FailureResult[sharedtypes.EventID, error](err), nil
		}
		if ev.TickID == 0 {
			current, err := s.ticks.CurrentTick(ctx, db)
			if err != nil {
				if errors.Is(err, gamedb.ErrNoTick) {
					return results.FailureResult[sharedtypes.EventID, error](apperrors.Preconditionf("no tick has started")), nil
				}
				return results.OperationResult[sharedtypes.EventID, error]{}, err
			}
			ev.TickID = current.ID
		}
		return s.recordResult(ctx, db, ev)
	})
	if err != nil {
		return 0, err
	}
	s.Publish(ctx, ev)
	return id, nil
}

// RecordAtTimestamp attributes ev to the tick that was current at ts. Only
// timestamp-eligible types are accepted.
func (s *EventService) RecordAtTimestamp(ctx context.Context, ev *eventdb.Event, ts time.Time) (sharedtypes.EventID, error) {
	id, err := operation.Do(s.run, ctx, "RecordAtTimestamp", eventType(ev), func(ctx context.Context, db bun.IDB) (results.OperationResult[sharedtypes.EventID, error], error) {
		if err := Validate(ev); err != nil {
			return results.FailureResult[sharedtypes.EventID, error](err), nil
		}
		if !ev.Type.TimestampEligible() {
			return results.FailureResult[sharedtypes.EventID, error](apperrors.Validationf("%s events cannot be recorded by timestamp", ev.Type)), nil
		}
		tick, err := s.ticks.TickAt(ctx, db, ts)
		if err != nil {
			if errors.Is(err, gamedb.ErrNoTick) {
				return results.FailureResult[sharedtypes.EventID, error](apperrors.NotFoundf("no tick started at or before %s", ts.UTC().Format(time.RFC3339))), nil
			}
			return results.OperationResult[sharedtypes.EventID, error]{}, err
		}
		ev.TickID = tick.ID
		return s.recordResult(ctx, db, ev)
	})
	if err != nil {
		return 0, err
	}
	s.Publish(ctx, ev)
	return id, nil
}

func (s *EventService) recordResult(ctx context.Context, db bun.IDB, ev *eventdb.Event) (results.OperationResult[sharedtypes.EventID, error], error) {
	if err := s.RecordTx(ctx, db, ev); err != nil {
		if apperrors.IsDomain(err) {
			return results.FailureResult[sharedtypes.EventID, error](err), nil
		}
		return results.OperationResult[sharedtypes.EventID, error]{}, err
	}
	return results.SuccessResult[sharedtypes.EventID, error](ev.ID), nil
}

// RecordTx inserts an already validated event with its tick set, on the
// caller's handle. Callers publish after their transaction commits.
func (s *EventService) RecordTx(ctx context.Context, db bun.IDB, ev *eventdb.Event) error {
	if err := s.repo.Insert(ctx, db, ev); err != nil {
		switch {
		case pgerr.IsForeignKeyViolation(err):
			return apperrors.NotFoundf("%s references an unknown row (%s)", ev.Type, pgerr.Constraint(err))
		case pgerr.IsUniqueViolation(err):
			return apperrors.Invariantf("duplicate %s event (%s)", ev.Type, pgerr.Constraint(err))
		}
		return err
	}
	s.logger.InfoContext(ctx, "Event recorded",
		attr.ExtractCorrelationID(ctx),
		attr.EventID("event_id", ev.ID),
		attr.String("event_type", string(ev.Type)),
		attr.TickID("tick_id", ev.TickID),
	)
	return nil
}

// Publish announces a committed event. Failures are logged only; the log is
// the source of truth.
func (s *EventService) Publish(ctx context.Context, ev *eventdb.Event) {
	if err := s.bus.Publish(ctx, eventbus.EventRecordedV1, ev); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish recorded event",
			attr.ExtractCorrelationID(ctx),
			attr.EventID("event_id", ev.ID),
			attr.Error(err),
		)
	}
}

// Get loads one event with its typed payload. A missing id is ErrNotFound.
func (s *EventService) Get(ctx context.Context, id sharedtypes.EventID) (*eventdb.Event, error) {
	return operation.Do(s.run, ctx, "Get", id.String(), func(ctx context.Context, db bun.IDB) (results.OperationResult[*eventdb.Event, error], error) {
		ev, err := s.repo.Get(ctx, db, id)
		if err != nil {
			if errors.Is(err, eventdb.ErrEventNotFound) {
				return results.FailureResult[*eventdb.Event, error](err), nil
			}
			return results.OperationResult[*eventdb.Event, error]{}, err
		}
		return results.SuccessResult[*eventdb.Event, error](ev), nil
	})
}

// List returns the whole log in id order.
func (s *EventService) List(ctx context.Context) ([]eventdb.Event, error) {
	return s.list(ctx, "List", "all", func(ctx context.Context, db bun.IDB) ([]eventdb.Event, error) {
		return s.repo.List(ctx, db)
	})
}

// ListForTick returns the events credited to tick, including ones recorded
// later with an explicit tick or a past timestamp.
func (s *EventService) ListForTick(ctx context.Context, tick sharedtypes.TickID) ([]eventdb.Event, error) {
	return s.list(ctx, "ListForTick", tick.String(), func(ctx context.Context, db bun.IDB) ([]eventdb.Event, error) {
		return s.repo.ListForTick(ctx, db, tick)
	})
}

// PcapsForTeam lists the PCAP_RELEASED events addressed to team.
func (s *EventService) PcapsForTeam(ctx context.Context, team sharedtypes.TeamID) ([]eventdb.Event, error) {
	return s.list(ctx, "PcapsForTeam", team.String(), func(ctx context.Context, db bun.IDB) ([]eventdb.Event, error) {
		return s.repo.PcapsReleasedForTeam(ctx, db, team)
	})
}

func (s *EventService) list(ctx context.Context, op, id string, load func(context.Context, bun.IDB) ([]eventdb.Event, error)) ([]eventdb.Event, error) {
	events, err := operation.Do(s.run, ctx, op, id, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]eventdb.Event, error], error) {
		events, err := load(ctx, db)
		if err != nil {
			return results.OperationResult[[]eventdb.Event, error]{}, err
		}
		return results.SuccessResult[[]eventdb.Event, error](events), nil
	})
	if events == nil && err == nil {
		events = []eventdb.Event{}
	}
	return events, err
}

// SetInvalidator installs the hook that drops scores cached from a deleted
// event. Without one, Delete only removes the event.
func (s *EventService) SetInvalidator(inv archivedb.Invalidator) {
	s.invalidator = inv
}

// Delete tombstones the event and removes it with its payload, then drops
// whatever was derived from it in the same transaction.
func (s *EventService) Delete(ctx context.Context, id sharedtypes.EventID) (int64, error) {
	var invalidators []archivedb.Invalidator
	if s.invalidator != nil {
		invalidators = append(invalidators, s.invalidator)
	}
	return operation.Do(s.run, ctx, "Delete", id.String(), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		tombstone, err := archivedb.DeleteWithTombstone(ctx, db, s.archive, eventdb.NewDeleter(s.repo), int64(id), invalidators...)
		if err != nil {
			if apperrors.IsDomain(err) {
				return results.FailureResult[int64, error](err), nil
			}
			return results.OperationResult[int64, error]{}, err
		}
		return results.SuccessResult[int64, error](tombstone.ID), nil
	})
}

func eventType(ev *eventdb.Event) string {
	if ev == nil {
		return "nil"
	}
	return fmt.Sprintf("%s@%d", ev.Type, ev.TickID)
}
