package scoreservice

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	scoredb "github.com/Black-And-White-Club/ctf-engine/app/modules/score/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// TickReader is the slice of the game repository scoring needs.
type TickReader interface {
	CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
	GetTick(ctx context.Context, db bun.IDB, id sharedtypes.TickID) (*gamedb.Tick, error)
	ListTicks(ctx context.Context, db bun.IDB) ([]gamedb.Tick, error)
}

// RosterReader lists teams and services.
type RosterReader interface {
	ListTeams(ctx context.Context, db bun.IDB, includeTest bool) ([]rosterdb.Team, error)
	ListServices(ctx context.Context, db bun.IDB) ([]rosterdb.Service, error)
	GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error)
}

// ActivityChecker answers whether a service counted as active in a tick.
type ActivityChecker interface {
	WasActive(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error)
}

// EventReader is the typed slice of the event log scoring reads and the KOH
// rebuild writes.
type EventReader interface {
	FlagStolenForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.FlagStolen, error)
	StealthForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.Stealth, error)
	KohRankingsForTick(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) ([]eventdb.KohRanking, error)
	KohRankingsForService(ctx context.Context, db bun.IDB, service sharedtypes.ServiceID) ([]eventdb.Event, error)
	UpdateRankResults(ctx context.Context, db bun.IDB, rows []eventdb.KohRankResult) error
}

// Leaderboard mirrors standings into a fast store.
type Leaderboard interface {
	Publish(ctx context.Context, standings []scoredb.Standing) error
	Top(ctx context.Context, n int) ([]scoredb.Standing, error)
}

// Deps groups the collaborators of ScoreService. Leaderboard may be nil.
type Deps struct {
	Ticks       TickReader
	Roster      RosterReader
	Activity    ActivityChecker
	Events      EventReader
	Leaderboard Leaderboard
}

// ScoreService implements the Service interface.
type ScoreService struct {
	repo        scoredb.Repository
	ticks       TickReader
	roster      RosterReader
	activity    ActivityChecker
	events      EventReader
	leaderboard Leaderboard
	validWindow int
	logger      *slog.Logger
	run         *operation.Runner
}

// NewScoreService creates a new ScoreService.
func NewScoreService(
	repo scoredb.Repository,
	deps Deps,
	validWindow int,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ScoreService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScoreService{
		repo:        repo,
		ticks:       deps.Ticks,
		roster:      deps.Roster,
		activity:    deps.Activity,
		events:      deps.Events,
		leaderboard: deps.Leaderboard,
		validWindow: validWindow,
		logger:      logger,
		run:         operation.NewRunner("ScoreService", logger, metrics, tracer, db),
	}
}

// ScoreTick scores one tick, reading and filling the cache once it settles.
func (s *ScoreService) ScoreTick(ctx context.Context, tick sharedtypes.TickID) (*scoredb.TickScores, error) {
	return operation.Do(s.run, ctx, "ScoreTick", tickID(tick), func(ctx context.Context, db bun.IDB) (results.OperationResult[*scoredb.TickScores, error], error) {
		if _, err := s.ticks.GetTick(ctx, db, tick); err != nil {
			return resultFromErr[*scoredb.TickScores](err)
		}
		current, err := s.currentTick(ctx, db)
		if err != nil {
			return resultFromErr[*scoredb.TickScores](err)
		}
		scores, err := s.scoreTickTx(ctx, db, tick, current)
		if err != nil {
			return results.OperationResult[*scoredb.TickScores, error]{}, err
		}
		return results.SuccessResult[*scoredb.TickScores, error](scores), nil
	})
}

// SettleTick makes sure a settled tick's score is cached. It is the score
// settlement job's entry point.
func (s *ScoreService) SettleTick(ctx context.Context, tick sharedtypes.TickID) error {
	if _, err := s.ScoreTick(ctx, tick); err != nil {
		return err
	}
	s.refreshLeaderboard(ctx, "settle")
	return nil
}

// Invalidate drops cached tick scores computed from a row being deleted. A
// deleted event invalidates its own tick. A deleted is_active toggle can
// change activity from its tick onward, so every later tick is dropped too.
func (s *ScoreService) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	var (
		dropped int
		err     error
	)
	switch row := snapshot.(type) {
	case *eventdb.Event:
		dropped, err = s.repo.DeleteCachedScores(ctx, db, []sharedtypes.TickID{row.TickID})
	case *activitydb.Toggle:
		if row.Kind != activitydb.KindIsActive {
			return nil
		}
		dropped, err = s.repo.DeleteCachedScoresFrom(ctx, db, row.TickID)
	default:
		return nil
	}
	if err != nil {
		return err
	}
	if dropped > 0 {
		s.logger.InfoContext(ctx, "Cached tick scores invalidated",
			attr.ExtractCorrelationID(ctx),
			attr.String("deleted_type", typeName),
			attr.Int("cache_dropped", dropped),
		)
	}
	return nil
}

// refreshLeaderboard re-aggregates and republishes standings so the mirror
// follows every change to settled scores. Failures only cost freshness.
func (s *ScoreService) refreshLeaderboard(ctx context.Context, reason string) {
	if s.leaderboard == nil {
		return
	}
	if _, err := s.AggregateScore(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to refresh leaderboard",
			attr.ExtractCorrelationID(ctx),
			attr.String("reason", reason),
			attr.Error(err),
		)
	}
}

// ScoreAllTicks scores every tick in id order.
func (s *ScoreService) ScoreAllTicks(ctx context.Context) ([]*scoredb.TickScores, error) {
	return operation.Do(s.run, ctx, "ScoreAllTicks", "all", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]*scoredb.TickScores, error], error) {
		all, err := s.scoreAllTx(ctx, db)
		if err != nil {
			return results.OperationResult[[]*scoredb.TickScores, error]{}, err
		}
		return results.SuccessResult[[]*scoredb.TickScores, error](all), nil
	})
}

// AggregateScore sums all ticks into standings and mirrors them to the
// leaderboard when one is configured.
func (s *ScoreService) AggregateScore(ctx context.Context) ([]scoredb.Standing, error) {
	standings, err := operation.Do(s.run, ctx, "AggregateScore", "all", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]scoredb.Standing, error], error) {
		all, err := s.scoreAllTx(ctx, db)
		if err != nil {
			return results.OperationResult[[]scoredb.Standing, error]{}, err
		}
		teams, err := s.roster.ListTeams(ctx, db, true)
		if err != nil {
			return results.OperationResult[[]scoredb.Standing, error]{}, err
		}
		return results.SuccessResult[[]scoredb.Standing, error](Aggregate(all, teams)), nil
	})
	if err != nil {
		return nil, err
	}

	if s.leaderboard != nil {
		if err := s.leaderboard.Publish(ctx, standings); err != nil {
			s.logger.WarnContext(ctx, "Failed to mirror standings to leaderboard",
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
		}
	}
	return standings, nil
}

// TopStandings returns the first n standings, from the leaderboard when it
// answers and from a fresh aggregate otherwise.
func (s *ScoreService) TopStandings(ctx context.Context, n int) ([]scoredb.Standing, error) {
	if n <= 0 {
		return nil, apperrors.Validationf("n must be positive, got %d", n)
	}
	if s.leaderboard != nil {
		top, err := s.leaderboard.Top(ctx, n)
		if err == nil && len(top) > 0 {
			return top, nil
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Leaderboard read failed, aggregating",
				attr.ExtractCorrelationID(ctx),
				attr.Error(err),
			)
		}
	}
	standings, err := s.AggregateScore(ctx)
	if err != nil {
		return nil, err
	}
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings, nil
}

// RebuildKohScores rewrites a KOH service's rankings so no team's score ever
// drops, then drops the cached scores of every tick it touched.
func (s *ScoreService) RebuildKohScores(ctx context.Context, serviceID sharedtypes.ServiceID) (*RebuildResult, error) {
	result, err := operation.Do(s.run, ctx, "RebuildKohScores", strconv.FormatInt(int64(serviceID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*RebuildResult, error], error) {
		service, err := s.roster.GetService(ctx, db, serviceID)
		if err != nil {
			return resultFromErr[*RebuildResult](err)
		}
		if !service.IsKingOfTheHill() {
			return results.FailureResult[*RebuildResult, error](apperrors.Validationf("service %d is not king of the hill", serviceID)), nil
		}

		rankings, err := s.events.KohRankingsForService(ctx, db, serviceID)
		if err != nil {
			return results.OperationResult[*RebuildResult, error]{}, err
		}
		changed, ticks := RebuildRankings(rankings)
		if len(changed) > 0 {
			if err := s.events.UpdateRankResults(ctx, db, changed); err != nil {
				return results.OperationResult[*RebuildResult, error]{}, err
			}
		}
		dropped, err := s.repo.DeleteCachedScores(ctx, db, ticks)
		if err != nil {
			return results.OperationResult[*RebuildResult, error]{}, err
		}

		s.logger.InfoContext(ctx, "KOH scores rebuilt",
			attr.ExtractCorrelationID(ctx),
			attr.ServiceID("service_id", serviceID),
			attr.Int("rankings", len(rankings)),
			attr.Int("updated_rows", len(changed)),
			attr.Int("cache_dropped", dropped),
		)
		if ticks == nil {
			ticks = []sharedtypes.TickID{}
		}
		return results.SuccessResult[*RebuildResult, error](&RebuildResult{
			ServiceID:   serviceID,
			UpdatedRows: len(changed),
			Ticks:       ticks,
		}), nil
	})
	if err != nil {
		return nil, err
	}
	s.refreshLeaderboard(ctx, "koh_rebuild")
	return result, nil
}

func (s *ScoreService) scoreAllTx(ctx context.Context, db bun.IDB) ([]*scoredb.TickScores, error) {
	ticks, err := s.ticks.ListTicks(ctx, db)
	if err != nil {
		return nil, err
	}
	all := make([]*scoredb.TickScores, 0, len(ticks))
	if len(ticks) == 0 {
		return all, nil
	}
	current := ticks[len(ticks)-1].ID
	for _, tick := range ticks {
		scores, err := s.scoreTickTx(ctx, db, tick.ID, current)
		if err != nil {
			return nil, err
		}
		all = append(all, scores)
	}
	return all, nil
}

func (s *ScoreService) scoreTickTx(ctx context.Context, db bun.IDB, tick, current sharedtypes.TickID) (*scoredb.TickScores, error) {
	settled := sharedtypes.Settled(current, tick, s.validWindow)
	if settled {
		cached, err := s.repo.GetCachedScores(ctx, db, tick)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, scoredb.ErrNoCache) {
			return nil, err
		}
	}

	in, err := s.gather(ctx, db, tick)
	if err != nil {
		return nil, err
	}
	scores := Compute(in)

	if settled {
		if err := s.repo.PutCachedScores(ctx, db, scores); err != nil {
			return nil, err
		}
		s.logger.InfoContext(ctx, "Tick score cached",
			attr.ExtractCorrelationID(ctx),
			attr.TickID("tick_id", tick),
		)
	}
	return scores, nil
}

func (s *ScoreService) gather(ctx context.Context, db bun.IDB, tick sharedtypes.TickID) (TickInput, error) {
	in := TickInput{
		TickID:       tick,
		ActiveNormal: map[sharedtypes.ServiceID]bool{},
		ActiveKoh:    map[sharedtypes.ServiceID]bool{},
	}
	var err error
	if in.Teams, err = s.roster.ListTeams(ctx, db, true); err != nil {
		return in, err
	}
	services, err := s.roster.ListServices(ctx, db)
	if err != nil {
		return in, err
	}
	for _, svc := range services {
		active, err := s.activity.WasActive(ctx, db, svc.ID, tick)
		if err != nil {
			return in, err
		}
		if !active {
			continue
		}
		if svc.IsKingOfTheHill() {
			in.ActiveKoh[svc.ID] = true
		} else {
			in.ActiveNormal[svc.ID] = true
		}
	}
	if in.Steals, err = s.events.FlagStolenForTick(ctx, db, tick); err != nil {
		return in, err
	}
	if in.Stealth, err = s.events.StealthForTick(ctx, db, tick); err != nil {
		return in, err
	}
	if in.Rankings, err = s.events.KohRankingsForTick(ctx, db, tick); err != nil {
		return in, err
	}
	return in, nil
}

func (s *ScoreService) currentTick(ctx context.Context, db bun.IDB) (sharedtypes.TickID, error) {
	tick, err := s.ticks.CurrentTick(ctx, db)
	if err != nil {
		if errors.Is(err, gamedb.ErrNoTick) {
			return 0, apperrors.Preconditionf("no tick has started")
		}
		return 0, err
	}
	return tick.ID, nil
}

func resultFromErr[T any](err error) (results.OperationResult[T, error], error) {
	if apperrors.IsDomain(err) {
		return results.FailureResult[T, error](err), nil
	}
	return results.OperationResult[T, error]{}, err
}

func tickID(tick sharedtypes.TickID) string {
	return strconv.FormatInt(int64(tick), 10)
}
