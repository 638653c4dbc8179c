package flagservice

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	eventdb "github.com/Black-And-White-Club/ctf-engine/app/modules/event/infrastructure/repositories"
	flagdb "github.com/Black-And-White-Club/ctf-engine/app/modules/flag/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/pgerr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// TickReader is the slice of the game repository flags need.
type TickReader interface {
	CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
}

// RosterReader resolves teams and services.
type RosterReader interface {
	GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error)
	GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error)
}

// ActivityChecker answers whether a service counted as active in a tick.
type ActivityChecker interface {
	WasActive(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (bool, error)
}

// EventRecorder writes flag-stolen events inside the submission transaction
// and announces them after commit.
type EventRecorder interface {
	RecordTx(ctx context.Context, db bun.IDB, ev *eventdb.Event) error
	Publish(ctx context.Context, ev *eventdb.Event)
}

// StealCounter counts prior steals on a service, for first blood.
type StealCounter interface {
	CountFlagStolenForService(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID) (int, error)
}

// FlagService implements the Service interface.
type FlagService struct {
	repo        flagdb.Repository
	ticks       TickReader
	roster      RosterReader
	activity    ActivityChecker
	events      EventRecorder
	steals      StealCounter
	gen         *Generator
	validWindow int
	metrics     metrics.FlagMetrics
	logger      *slog.Logger
	run         *operation.Runner
}

// Deps groups the collaborators of FlagService.
type Deps struct {
	Ticks    TickReader
	Roster   RosterReader
	Activity ActivityChecker
	Events   EventRecorder
	Steals   StealCounter
}

// NewFlagService creates a new FlagService.
func NewFlagService(
	repo flagdb.Repository,
	deps Deps,
	gen *Generator,
	validWindow int,
	logger *slog.Logger,
	m metrics.FlagMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *FlagService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNoop()
	}
	return &FlagService{
		repo:        repo,
		ticks:       deps.Ticks,
		roster:      deps.Roster,
		activity:    deps.Activity,
		events:      deps.Events,
		steals:      deps.Steals,
		gen:         gen,
		validWindow: validWindow,
		metrics:     m,
		logger:      logger,
		run:         operation.NewRunner("FlagService", logger, m, tracer, db),
	}
}

// GenerateFlag returns the flag for (team, service, current tick), creating
// it on first request. Concurrent callers for the same triple race on the
// natural key and the loser reads the winner's row, so everyone sees the
// same text. Unknown teams or services are ErrNotFound.
func (s *FlagService) GenerateFlag(ctx context.Context, serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) (*flagdb.Flag, error) {
	return operation.Do(s.run, ctx, "GenerateFlag", pairID(serviceID, teamID), func(ctx context.Context, db bun.IDB) (results.OperationResult[*flagdb.Flag, error], error) {
		if err := s.requirePair(ctx, db, serviceID, teamID); err != nil {
			return resultFromErr[*flagdb.Flag](err)
		}
		current, err := s.currentTick(ctx, db)
		if err != nil {
			return resultFromErr[*flagdb.Flag](err)
		}

		existing, err := s.repo.GetFlagFor(ctx, db, teamID, serviceID, current)
		if err == nil {
			return results.SuccessResult[*flagdb.Flag, error](existing), nil
		}
		if !errors.Is(err, flagdb.ErrFlagNotFound) {
			return results.OperationResult[*flagdb.Flag, error]{}, err
		}

		text, err := s.gen.Next()
		if err != nil {
			return results.OperationResult[*flagdb.Flag, error]{}, err
		}
		flag := &flagdb.Flag{Flag: text, TeamID: teamID, ServiceID: serviceID, TickID: current}
		inserted, err := s.repo.InsertFlagIfAbsent(ctx, db, flag)
		if err != nil {
			if pgerr.IsUniqueViolation(err) {
				return results.OperationResult[*flagdb.Flag, error]{}, apperrors.Invariantf("generated flag text collided (%s)", pgerr.Constraint(err))
			}
			return results.OperationResult[*flagdb.Flag, error]{}, err
		}
		if !inserted {
			// A concurrent request won the slot.
			flag, err = s.repo.GetFlagFor(ctx, db, teamID, serviceID, current)
			if err != nil {
				return results.OperationResult[*flagdb.Flag, error]{}, err
			}
			return results.SuccessResult[*flagdb.Flag, error](flag), nil
		}

		s.logger.InfoContext(ctx, "Flag issued",
			attr.ExtractCorrelationID(ctx),
			attr.FlagID("flag_id", flag.ID),
			attr.TeamID("team_id", teamID),
			attr.ServiceID("service_id", serviceID),
			attr.TickID("tick_id", current),
		)
		return results.SuccessResult[*flagdb.Flag, error](flag), nil
	})
}

// LatestFlag returns the most recently issued flag for the pair.
func (s *FlagService) LatestFlag(ctx context.Context, serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) (*flagdb.Flag, error) {
	return operation.Do(s.run, ctx, "LatestFlag", pairID(serviceID, teamID), func(ctx context.Context, db bun.IDB) (results.OperationResult[*flagdb.Flag, error], error) {
		flag, err := s.repo.LatestFlag(ctx, db, serviceID, teamID)
		if err != nil {
			return resultFromErr[*flagdb.Flag](err)
		}
		return results.SuccessResult[*flagdb.Flag, error](flag), nil
	})
}

// FlagsForTick lists every flag issued during tickID.
func (s *FlagService) FlagsForTick(ctx context.Context, tickID sharedtypes.TickID) ([]flagdb.Flag, error) {
	return operation.Do(s.run, ctx, "FlagsForTick", strconv.FormatInt(int64(tickID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]flagdb.Flag, error], error) {
		flags, err := s.repo.FlagsForTick(ctx, db, tickID)
		if err != nil {
			return results.OperationResult[[]flagdb.Flag, error]{}, err
		}
		if flags == nil {
			flags = []flagdb.Flag{}
		}
		return results.SuccessResult[[]flagdb.Flag, error](flags), nil
	})
}

// SubmissionsForTeam returns every stored submission of teamID, oldest first.
// ALREADY_SUBMITTED answers are never stored, so they do not appear.
func (s *FlagService) SubmissionsForTeam(ctx context.Context, teamID sharedtypes.TeamID) ([]flagdb.Submission, error) {
	return operation.Do(s.run, ctx, "SubmissionsForTeam", strconv.FormatInt(int64(teamID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]flagdb.Submission, error], error) {
		if _, err := s.roster.GetTeam(ctx, db, teamID); err != nil {
			return resultFromErr[[]flagdb.Submission](err)
		}
		subs, err := s.repo.ListSubmissions(ctx, db, teamID)
		if err != nil {
			return results.OperationResult[[]flagdb.Submission, error]{}, err
		}
		if subs == nil {
			subs = []flagdb.Submission{}
		}
		return results.SuccessResult[[]flagdb.Submission, error](subs), nil
	})
}

// FlagStolenReason is the reason recorded on events created by submissions.
const FlagStolenReason = "flag submitted"

// submitOutcome carries what must happen after the submission commits.
type submitOutcome struct {
	submission *flagdb.Submission
	stolen     *eventdb.Event
	firstBlood bool
}

// SubmitFlag classifies text for teamID and freezes the answer.
//
// The text is compared exactly as sent. A (team, text) pair is classified
// once: a repeat gets ALREADY_SUBMITTED and stores nothing. A CORRECT answer
// records a FLAG_STOLEN event credited to the flag's own tick, in the same
// transaction as the submission, and publishes it after commit.
func (s *FlagService) SubmitFlag(ctx context.Context, teamID sharedtypes.TeamID, text string) (*flagdb.Submission, error) {
	out, err := operation.Do(s.run, ctx, "SubmitFlag", strconv.FormatInt(int64(teamID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*submitOutcome, error], error) {
		return s.submitLogic(ctx, db, teamID, text)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordSubmission(ctx, string(out.submission.Result))
	if out.stolen != nil {
		if out.firstBlood {
			s.logger.InfoContext(ctx, "First blood",
				attr.ExtractCorrelationID(ctx),
				attr.TeamID("team_id", teamID),
				attr.ServiceID("service_id", out.stolen.FlagStolen.ServiceID),
				attr.TickID("tick_id", out.stolen.TickID),
			)
		}
		s.events.Publish(ctx, out.stolen)
	}
	return out.submission, nil
}

func (s *FlagService) submitLogic(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, text string) (results.OperationResult[*submitOutcome, error], error) {
	if text == "" {
		return results.FailureResult[*submitOutcome, error](apperrors.Validationf("flag is required")), nil
	}
	if _, err := s.roster.GetTeam(ctx, db, teamID); err != nil {
		return resultFromErr[*submitOutcome](err)
	}
	current, err := s.currentTick(ctx, db)
	if err != nil {
		return resultFromErr[*submitOutcome](err)
	}

	already := func() (results.OperationResult[*submitOutcome, error], error) {
		return results.SuccessResult[*submitOutcome, error](&submitOutcome{submission: &flagdb.Submission{
			TeamID:     teamID,
			Submission: text,
			Result:     sharedtypes.SubmissionAlreadySubmitted,
		}}), nil
	}

	if _, err := s.repo.GetSubmission(ctx, db, teamID, text); err == nil {
		return already()
	} else if !errors.Is(err, flagdb.ErrSubmissionNotFound) {
		return results.OperationResult[*submitOutcome, error]{}, err
	}

	sub := &flagdb.Submission{TeamID: teamID, Submission: text}
	flag, err := s.repo.GetFlagByText(ctx, db, text)
	switch {
	case errors.Is(err, flagdb.ErrFlagNotFound):
		sub.Result = sharedtypes.SubmissionIncorrect
	case err != nil:
		return results.OperationResult[*submitOutcome, error]{}, err
	default:
		sub.FlagID = &flag.ID
		sub.Result, err = s.classify(ctx, db, teamID, flag, current)
		if err != nil {
			return results.OperationResult[*submitOutcome, error]{}, err
		}
	}

	out := &submitOutcome{submission: sub}
	if sub.Result == sharedtypes.SubmissionCorrect {
		prior, err := s.steals.CountFlagStolenForService(ctx, db, flag.ServiceID)
		if err != nil {
			return results.OperationResult[*submitOutcome, error]{}, err
		}
		out.firstBlood = prior == 0
	}

	inserted, err := s.repo.InsertSubmissionIfAbsent(ctx, db, sub)
	if err != nil {
		return results.OperationResult[*submitOutcome, error]{}, err
	}
	if !inserted {
		return already()
	}

	if sub.Result == sharedtypes.SubmissionCorrect {
		ev := &eventdb.Event{
			Type:   sharedtypes.EventFlagStolen,
			Reason: FlagStolenReason,
			TickID: flag.TickID,
			FlagStolen: &eventdb.FlagStolen{
				ExploitTeamID: teamID,
				VictimTeamID:  flag.TeamID,
				ServiceID:     flag.ServiceID,
				FlagID:        flag.ID,
			},
		}
		// Any failure here, including a duplicate credit, rolls back the
		// submission row with it.
		if err := s.events.RecordTx(ctx, db, ev); err != nil {
			return results.OperationResult[*submitOutcome, error]{}, err
		}
		out.stolen = ev
	}

	s.logger.InfoContext(ctx, "Flag submitted",
		attr.ExtractCorrelationID(ctx),
		attr.TeamID("team_id", teamID),
		attr.String("result", string(sub.Result)),
		attr.TickID("current_tick", current),
	)
	return results.SuccessResult[*submitOutcome, error](out), nil
}

// classify applies the precedence after a flag matched: an inactive service
// first, then the team's own flag, a test team's flag, and finally age.
func (s *FlagService) classify(ctx context.Context, db bun.IDB, teamID sharedtypes.TeamID, flag *flagdb.Flag, current sharedtypes.TickID) (sharedtypes.SubmissionResult, error) {
	active, err := s.activity.WasActive(ctx, db, flag.ServiceID, flag.TickID)
	if err != nil {
		return "", err
	}
	if !active {
		return sharedtypes.SubmissionServiceInactive, nil
	}
	if flag.TeamID == teamID {
		return sharedtypes.SubmissionOwnFlag, nil
	}
	victim, err := s.roster.GetTeam(ctx, db, flag.TeamID)
	if err != nil {
		return "", err
	}
	if victim.IsTestTeam {
		return sharedtypes.SubmissionTestTeamFlag, nil
	}
	if int64(flag.TickID)+int64(s.validWindow) < int64(current) {
		return sharedtypes.SubmissionTooOld, nil
	}
	return sharedtypes.SubmissionCorrect, nil
}

func (s *FlagService) requirePair(ctx context.Context, db bun.IDB, serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) error {
	if _, err := s.roster.GetTeam(ctx, db, teamID); err != nil {
		return err
	}
	_, err := s.roster.GetService(ctx, db, serviceID)
	return err
}

func (s *FlagService) currentTick(ctx context.Context, db bun.IDB) (sharedtypes.TickID, error) {
	tick, err := s.ticks.CurrentTick(ctx, db)
	if err != nil {
		if errors.Is(err, gamedb.ErrNoTick) {
			return 0, apperrors.Preconditionf("no tick has started")
		}
		return 0, err
	}
	return tick.ID, nil
}

// resultFromErr turns taxonomy errors into failure results and passes
// infrastructure errors through.
func resultFromErr[T any](err error) (results.OperationResult[T, error], error) {
	if apperrors.IsDomain(err) {
		return results.FailureResult[T, error](err), nil
	}
	return results.OperationResult[T, error]{}, err
}

func pairID(serviceID sharedtypes.ServiceID, teamID sharedtypes.TeamID) string {
	return strconv.FormatInt(int64(serviceID), 10) + "/" + strconv.FormatInt(int64(teamID), 10)
}
