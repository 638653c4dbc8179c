package patchservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	activitydb "github.com/Black-And-White-Club/ctf-engine/app/modules/activity/infrastructure/repositories"
	gamedb "github.com/Black-And-White-Club/ctf-engine/app/modules/game/infrastructure/repositories"
	patchdb "github.com/Black-And-White-Club/ctf-engine/app/modules/patch/infrastructure/repositories"
	rosterdb "github.com/Black-And-White-Club/ctf-engine/app/modules/roster/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	sharedtypes "github.com/Black-And-White-Club/ctf-engine/app/shared/types"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// MaxMetadataLength bounds the public and private metadata strings.
const MaxMetadataLength = 256

// SubmittedMetadata is the private note on the first result of every patch.
const SubmittedMetadata = "accepted by the engine"

// TickReader is the slice of the game repository patches need.
type TickReader interface {
	CurrentTick(ctx context.Context, db bun.IDB) (*gamedb.Tick, error)
}

// RosterReader resolves teams and services.
type RosterReader interface {
	GetTeam(ctx context.Context, db bun.IDB, id sharedtypes.TeamID) (*rosterdb.Team, error)
	GetService(ctx context.Context, db bun.IDB, id sharedtypes.ServiceID) (*rosterdb.Service, error)
}

// ActivityReader resolves a service switch as of a tick.
type ActivityReader interface {
	ValueAt(ctx context.Context, db bun.IDB, kind activitydb.ToggleKind, serviceID sharedtypes.ServiceID, tick sharedtypes.TickID) (string, error)
}

// Deps groups the collaborators of PatchService.
type Deps struct {
	Ticks    TickReader
	Roster   RosterReader
	Activity ActivityReader
	Bus      eventbus.Publisher
}

// PatchService implements the Service interface.
type PatchService struct {
	repo     patchdb.Repository
	ticks    TickReader
	roster   RosterReader
	activity ActivityReader
	bus      eventbus.Publisher
	logger   *slog.Logger
	run      *operation.Runner
}

// NewPatchService creates a new PatchService.
func NewPatchService(
	repo patchdb.Repository,
	deps Deps,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *PatchService {
	if logger == nil {
		logger = slog.Default()
	}
	bus := deps.Bus
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &PatchService{
		repo:     repo,
		ticks:    deps.Ticks,
		roster:   deps.Roster,
		activity: deps.Activity,
		bus:      bus,
		logger:   logger,
		run:      operation.NewRunner("PatchService", logger, metrics, tracer, db),
	}
}

// HashPatch returns the hex sha256 of a patch file.
func HashPatch(file []byte) string {
	sum := sha256.Sum256(file)
	return hex.EncodeToString(sum[:])
}

type uploadOutcome struct {
	patch  *patchdb.Patch
	manual bool
}

// UploadPatch stores a team's patch for a service, stamped with the current
// tick, and opens its history with a SUBMITTED result.
//
// Only active NORMAL services take patches, and a team gets one patch per
// service per tick. A file larger than the service's max_bytes is stored but
// immediately marked TOO_MANY_BYTES. The patch tester is notified after
// commit unless the service is reviewed manually.
func (s *PatchService) UploadPatch(ctx context.Context, req UploadRequest) (*patchdb.Patch, error) {
	out, err := operation.Do(s.run, ctx, "UploadPatch", teamServiceID(req.TeamID, req.ServiceID), func(ctx context.Context, db bun.IDB) (results.OperationResult[*uploadOutcome, error], error) {
		if len(req.File) == 0 {
			return results.FailureResult[*uploadOutcome, error](apperrors.Validationf("uploaded file is empty")), nil
		}
		if _, err := s.roster.GetTeam(ctx, db, req.TeamID); err != nil {
			return resultFromErr[*uploadOutcome](err)
		}
		service, err := s.roster.GetService(ctx, db, req.ServiceID)
		if err != nil {
			return resultFromErr[*uploadOutcome](err)
		}
		if service.Type != sharedtypes.ServiceTypeNormal {
			return results.FailureResult[*uploadOutcome, error](apperrors.Validationf("only NORMAL services accept patches, service %d is %s", service.ID, service.Type)), nil
		}

		tick, err := s.ticks.CurrentTick(ctx, db)
		if err != nil {
			if errors.Is(err, gamedb.ErrNoTick) {
				return results.FailureResult[*uploadOutcome, error](apperrors.Preconditionf("there is no tick, cannot accept a patch")), nil
			}
			return results.OperationResult[*uploadOutcome, error]{}, err
		}
		active, err := s.activity.ValueAt(ctx, db, activitydb.KindIsActive, service.ID, tick.ID)
		if err != nil {
			return results.OperationResult[*uploadOutcome, error]{}, err
		}
		if b, _ := strconv.ParseBool(active); !b {
			return results.FailureResult[*uploadOutcome, error](apperrors.Preconditionf("service %d is not active", service.ID)), nil
		}

		if _, err := s.repo.FindPatch(ctx, db, req.TeamID, req.ServiceID, tick.ID); err == nil {
			return results.FailureResult[*uploadOutcome, error](patchdb.ErrPatchExists), nil
		} else if !errors.Is(err, patchdb.ErrPatchNotFound) {
			return results.OperationResult[*uploadOutcome, error]{}, err
		}

		patch := &patchdb.Patch{
			TeamID:       req.TeamID,
			ServiceID:    req.ServiceID,
			TickID:       tick.ID,
			UploadedFile: req.File,
			UploadedHash: HashPatch(req.File),
		}
		if err := s.repo.CreatePatch(ctx, db, patch); err != nil {
			return resultFromErr[*uploadOutcome](err)
		}

		history := []*patchdb.PatchResult{{PatchID: patch.ID, Status: patchdb.StatusSubmitted, PrivateMetadata: ptr(SubmittedMetadata)}}
		if service.MaxBytes != nil && len(req.File) > *service.MaxBytes {
			history = append(history, &patchdb.PatchResult{
				PatchID:        patch.ID,
				Status:         patchdb.StatusTooManyBytes,
				PublicMetadata: ptr(fmt.Sprintf("patch is %d bytes, the limit is %d", len(req.File), *service.MaxBytes)),
			})
		}
		for _, res := range history {
			if err := s.repo.AppendResult(ctx, db, res); err != nil {
				return results.OperationResult[*uploadOutcome, error]{}, err
			}
		}
		for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
			history[i], history[j] = history[j], history[i]
		}
		patch.Results = history

		s.logger.InfoContext(ctx, "Patch uploaded",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("patch_id", patch.ID),
			attr.TeamID("team_id", patch.TeamID),
			attr.ServiceID("service_id", patch.ServiceID),
			attr.TickID("tick_id", patch.TickID),
			attr.Int("bytes", len(req.File)),
		)
		return results.SuccessResult[*uploadOutcome, error](&uploadOutcome{patch: patch, manual: service.IsManualPatching}), nil
	})
	if err != nil {
		return nil, err
	}

	patch := out.patch
	if out.manual {
		s.logger.InfoContext(ctx, "Manual patch review required",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("patch_id", patch.ID),
			attr.TeamID("team_id", patch.TeamID),
		)
	}
	s.publish(ctx, eventbus.PatchUploadedV1, patch.ID, PatchUploaded{
		PatchID:      patch.ID,
		TeamID:       patch.TeamID,
		ServiceID:    patch.ServiceID,
		TickID:       patch.TickID,
		UploadedHash: patch.UploadedHash,
		ManualReview: out.manual,
	})
	// TOO_MANY_BYTES is final, so the tester hears about it like any status.
	for _, res := range patch.Results {
		if res.Status != patchdb.StatusSubmitted {
			s.publishStatus(ctx, res)
		}
	}
	return patch, nil
}

// RecordResult appends a status to a patch's history. Unknown patches are
// ErrNotFound and unknown statuses ErrValidation.
func (s *PatchService) RecordResult(ctx context.Context, patchID int64, req ResultRequest) (*patchdb.PatchResult, error) {
	res, err := operation.Do(s.run, ctx, "RecordResult", strconv.FormatInt(patchID, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*patchdb.PatchResult, error], error) {
		if !req.Status.Valid() {
			return results.FailureResult[*patchdb.PatchResult, error](apperrors.Validationf("unknown patch status %q", req.Status)), nil
		}
		if err := checkMetadata(req.PublicMetadata, req.PrivateMetadata); err != nil {
			return results.FailureResult[*patchdb.PatchResult, error](err), nil
		}
		if _, err := s.repo.GetPatch(ctx, db, patchID); err != nil {
			return resultFromErr[*patchdb.PatchResult](err)
		}
		res := &patchdb.PatchResult{
			PatchID:         patchID,
			Status:          req.Status,
			PublicMetadata:  req.PublicMetadata,
			PrivateMetadata: req.PrivateMetadata,
		}
		if err := s.repo.AppendResult(ctx, db, res); err != nil {
			return resultFromErr[*patchdb.PatchResult](err)
		}
		s.logger.InfoContext(ctx, "Patch status recorded",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("patch_id", patchID),
			attr.String("status", string(req.Status)),
		)
		return results.SuccessResult[*patchdb.PatchResult, error](res), nil
	})
	if err != nil {
		return nil, err
	}
	s.publishStatus(ctx, res)
	return res, nil
}

// GetPatch loads a patch with its file and its history, newest first.
func (s *PatchService) GetPatch(ctx context.Context, id int64) (*PatchDetail, error) {
	return operation.Do(s.run, ctx, "GetPatch", strconv.FormatInt(id, 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*PatchDetail, error], error) {
		patch, err := s.repo.GetPatch(ctx, db, id)
		if err != nil {
			return resultFromErr[*PatchDetail](err)
		}
		return results.SuccessResult[*PatchDetail, error](&PatchDetail{Patch: patch, UploadedFile: patch.UploadedFile}), nil
	})
}

// PatchesForTeam lists a team's patches without their files.
func (s *PatchService) PatchesForTeam(ctx context.Context, teamID sharedtypes.TeamID) ([]patchdb.Patch, error) {
	return operation.Do(s.run, ctx, "PatchesForTeam", strconv.FormatInt(int64(teamID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]patchdb.Patch, error], error) {
		if _, err := s.roster.GetTeam(ctx, db, teamID); err != nil {
			return resultFromErr[[]patchdb.Patch](err)
		}
		patches, err := s.repo.ListPatchesForTeam(ctx, db, teamID)
		if err != nil {
			return results.OperationResult[[]patchdb.Patch, error]{}, err
		}
		if patches == nil {
			patches = []patchdb.Patch{}
		}
		return results.SuccessResult[[]patchdb.Patch, error](patches), nil
	})
}

// SetServiceProfile replaces the execution profile of a service. The profile
// is opaque to the engine but must be a JSON value.
func (s *PatchService) SetServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID, profile json.RawMessage) (*patchdb.ServiceProfile, error) {
	return operation.Do(s.run, ctx, "SetServiceProfile", strconv.FormatInt(int64(serviceID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*patchdb.ServiceProfile, error], error) {
		if len(profile) == 0 || !json.Valid(profile) {
			return results.FailureResult[*patchdb.ServiceProfile, error](apperrors.Validationf("execution profile must be a JSON value")), nil
		}
		if _, err := s.roster.GetService(ctx, db, serviceID); err != nil {
			return resultFromErr[*patchdb.ServiceProfile](err)
		}
		row := &patchdb.ServiceProfile{ServiceID: serviceID, Profile: profile}
		if err := s.repo.PutProfile(ctx, db, row); err != nil {
			return results.OperationResult[*patchdb.ServiceProfile, error]{}, err
		}
		return results.SuccessResult[*patchdb.ServiceProfile, error](row), nil
	})
}

// ServiceProfile returns the stored execution profile of a service.
func (s *PatchService) ServiceProfile(ctx context.Context, serviceID sharedtypes.ServiceID) (*patchdb.ServiceProfile, error) {
	return operation.Do(s.run, ctx, "ServiceProfile", strconv.FormatInt(int64(serviceID), 10), func(ctx context.Context, db bun.IDB) (results.OperationResult[*patchdb.ServiceProfile, error], error) {
		profile, err := s.repo.GetProfile(ctx, db, serviceID)
		if err != nil {
			return resultFromErr[*patchdb.ServiceProfile](err)
		}
		return results.SuccessResult[*patchdb.ServiceProfile, error](profile), nil
	})
}

func (s *PatchService) publishStatus(ctx context.Context, res *patchdb.PatchResult) {
	s.publish(ctx, eventbus.PatchStatusV1, res.PatchID, PatchStatusChanged{
		PatchID:        res.PatchID,
		ResultID:       res.ID,
		Status:         res.Status,
		PublicMetadata: res.PublicMetadata,
	})
}

// publish logs failures only; the tables are the source of truth.
func (s *PatchService) publish(ctx context.Context, topic string, patchID int64, payload any) {
	if err := s.bus.Publish(ctx, topic, payload); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish patch message",
			attr.ExtractCorrelationID(ctx),
			attr.String("topic", topic),
			attr.Int64("patch_id", patchID),
			attr.Error(err),
		)
	}
}

func checkMetadata(fields ...*string) error {
	for _, f := range fields {
		if f != nil && len(*f) > MaxMetadataLength {
			return apperrors.Validationf("metadata is longer than %d bytes", MaxMetadataLength)
		}
	}
	return nil
}

func resultFromErr[T any](err error) (results.OperationResult[T, error], error) {
	if apperrors.IsDomain(err) {
		return results.FailureResult[T, error](err), nil
	}
	return results.OperationResult[T, error]{}, err
}

func teamServiceID(teamID sharedtypes.TeamID, serviceID sharedtypes.ServiceID) string {
	return strconv.FormatInt(int64(teamID), 10) + "/" + strconv.FormatInt(int64(serviceID), 10)
}

func ptr[T any](v T) *T { return &v }
