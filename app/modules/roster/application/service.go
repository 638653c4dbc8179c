package rosterservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"

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

// RosterService implements the Service interface.
type RosterService struct {
	repo   rosterdb.Repository
	logger *slog.Logger
	run    *operation.Runner
}

// NewRosterService creates a new RosterService.
func NewRosterService(
	repo rosterdb.Repository,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *RosterService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RosterService{
		repo:   repo,
		logger: logger,
		run:    operation.NewRunner("RosterService", logger, metrics, tracer, db),
	}
}

// CreateTeam registers a team after validating its network fields.
func (s *RosterService) CreateTeam(ctx context.Context, input TeamInput) (*rosterdb.Team, error) {
	return operation.Do(s.run, ctx, "CreateTeam", input.Name, func(ctx context.Context, db bun.IDB) (results.OperationResult[*rosterdb.Team, error], error) {
		return s.createTeamLogic(ctx, db, input)
	})
}

func (s *RosterService) createTeamLogic(ctx context.Context, db bun.IDB, input TeamInput) (results.OperationResult[*rosterdb.Team, error], error) {
	if err := validateTeam(input); err != nil {
		return results.FailureResult[*rosterdb.Team, error](err), nil
	}

	team := &rosterdb.Team{
		Name:        strings.TrimSpace(input.Name),
		TeamNetwork: input.TeamNetwork,
		VMAddress:   input.VMAddress,
		IsTestTeam:  input.IsTestTeam,
	}
	if err := s.repo.CreateTeam(ctx, db, team); err != nil {
		if pgerr.IsUniqueViolation(err) {
			return results.FailureResult[*rosterdb.Team, error](apperrors.Validationf("team %q already exists", team.Name)), nil
		}
		return results.OperationResult[*rosterdb.Team, error]{}, fmt.Errorf("failed to create team: %w", err)
	}
	return results.SuccessResult[*rosterdb.Team, error](team), nil
}

func validateTeam(input TeamInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.Validationf("team name is required")
	}
	if _, err := netip.ParsePrefix(input.TeamNetwork); err != nil {
		return apperrors.Validationf("team_network %q is not a CIDR", input.TeamNetwork)
	}
	if _, err := netip.ParseAddr(input.VMAddress); err != nil {
		return apperrors.Validationf("vm_address %q is not an IP address", input.VMAddress)
	}
	return nil
}

// GetTeam retrieves a team by id.
func (s *RosterService) GetTeam(ctx context.Context, id sharedtypes.TeamID) (*rosterdb.Team, error) {
	return operation.Do(s.run, ctx, "GetTeam", id.String(), func(ctx context.Context, db bun.IDB) (results.OperationResult[*rosterdb.Team, error], error) {
		team, err := s.repo.GetTeam(ctx, db, id)
		if err != nil {
			if errors.Is(err, rosterdb.ErrTeamNotFound) {
				return results.FailureResult[*rosterdb.Team, error](err), nil
			}
			return results.OperationResult[*rosterdb.Team, error]{}, err
		}
		return results.SuccessResult[*rosterdb.Team, error](team), nil
	})
}

// ListTeams lists teams ordered by id. The public listing omits test teams.
func (s *RosterService) ListTeams(ctx context.Context, includeTest bool) ([]rosterdb.Team, error) {
	return operation.Do(s.run, ctx, "ListTeams", fmt.Sprintf("include_test=%t", includeTest), func(ctx context.Context, db bun.IDB) (results.OperationResult[[]rosterdb.Team, error], error) {
		teams, err := s.repo.ListTeams(ctx, db, includeTest)
		if err != nil {
			return results.OperationResult[[]rosterdb.Team, error]{}, err
		}
		return results.SuccessResult[[]rosterdb.Team, error](teams), nil
	})
}

// TeamFromIP returns the first team whose network contains ip, or nil when
// no team claims the address.
func (s *RosterService) TeamFromIP(ctx context.Context, ip string) (*rosterdb.Team, error) {
	return operation.Do(s.run, ctx, "TeamFromIP", ip, func(ctx context.Context, db bun.IDB) (results.OperationResult[*rosterdb.Team, error], error) {
		addr, err := netip.ParseAddr(ip)
		if err != nil {
			return results.FailureResult[*rosterdb.Team, error](apperrors.Validationf("%q is not an IP address", ip)), nil
		}
		teams, err := s.repo.ListTeams(ctx, db, true)
		if err != nil {
			return results.OperationResult[*rosterdb.Team, error]{}, err
		}
		return results.SuccessResult[*rosterdb.Team, error](matchTeam(teams, addr)), nil
	})
}

func matchTeam(teams []rosterdb.Team, addr netip.Addr) *rosterdb.Team {
	for i := range teams {
		prefix, err := netip.ParsePrefix(teams[i].TeamNetwork)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return &teams[i]
		}
	}
	return nil
}

// CreateService registers a competition service.
func (s *RosterService) CreateService(ctx context.Context, input ServiceInput) (*rosterdb.Service, error) {
	return operation.Do(s.run, ctx, "CreateService", input.Name, func(ctx context.Context, db bun.IDB) (results.OperationResult[*rosterdb.Service, error], error) {
		return s.createServiceLogic(ctx, db, input)
	})
}

func (s *RosterService) createServiceLogic(ctx context.Context, db bun.IDB, input ServiceInput) (results.OperationResult[*rosterdb.Service, error], error) {
	if err := validateService(input); err != nil {
		return results.FailureResult[*rosterdb.Service, error](err), nil
	}

	service := newServiceModel(input)
	if err := s.repo.CreateService(ctx, db, service); err != nil {
		if pgerr.IsUniqueViolation(err) {
			return results.FailureResult[*rosterdb.Service, error](apperrors.Validationf("service %q already exists", service.Name)), nil
		}
		return results.OperationResult[*rosterdb.Service, error]{}, fmt.Errorf("failed to create service: %w", err)
	}
	return results.SuccessResult[*rosterdb.Service, error](service), nil
}

func validateService(input ServiceInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.Validationf("service name is required")
	}
	if input.Type != "" && !input.Type.Valid() {
		return apperrors.Validationf("unknown service type %q", input.Type)
	}
	if input.Isolation != nil && !input.Isolation.Valid() {
		return apperrors.Validationf("unknown isolation %q", *input.Isolation)
	}
	if input.Port < 0 || input.Port > 65535 {
		return apperrors.Validationf("port %d out of range", input.Port)
	}
	return nil
}

func newServiceModel(input ServiceInput) *rosterdb.Service {
	svc := &rosterdb.Service{
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		Type:             input.Type,
		Port:             input.Port,
		RepoURL:          input.RepoURL,
		ScoreLocation:    input.ScoreLocation,
		FlagLocation:     input.FlagLocation,
		CentralServer:    input.CentralServer,
		Isolation:        input.Isolation,
		ContainerPort:    input.ContainerPort,
		LimitMemory:      input.LimitMemory,
		RequestMemory:    input.RequestMemory,
		MaxBytes:         input.MaxBytes,
		CheckTimeout:     input.CheckTimeout,
		IsManualPatching: input.IsManualPatching,
	}
	if svc.Type == "" {
		svc.Type = sharedtypes.ServiceTypeNormal
	}
	if svc.LimitMemory == "" {
		svc.LimitMemory = "512m"
	}
	if svc.RequestMemory == "" {
		svc.RequestMemory = "512m"
	}
	return svc
}

// GetService retrieves a service by id.
func (s *RosterService) GetService(ctx context.Context, id sharedtypes.ServiceID) (*rosterdb.Service, error) {
	return operation.Do(s.run, ctx, "GetService", id.String(), func(ctx context.Context, db bun.IDB) (results.OperationResult[*rosterdb.Service, error], error) {
		service, err := s.repo.GetService(ctx, db, id)
		if err != nil {
			if errors.Is(err, rosterdb.ErrServiceNotFound) {
				return results.FailureResult[*rosterdb.Service, error](err), nil
			}
			return results.OperationResult[*rosterdb.Service, error]{}, err
		}
		return results.SuccessResult[*rosterdb.Service, error](service), nil
	})
}

// ListServices lists every service ordered by id.
func (s *RosterService) ListServices(ctx context.Context) ([]rosterdb.Service, error) {
	return operation.Do(s.run, ctx, "ListServices", "all", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]rosterdb.Service, error], error) {
		services, err := s.repo.ListServices(ctx, db)
		if err != nil {
			return results.OperationResult[[]rosterdb.Service, error]{}, err
		}
		return results.SuccessResult[[]rosterdb.Service, error](services), nil
	})
}

// Seed creates every team and service in roster that does not already exist
// by name. The whole roster is written in one transaction.
func (s *RosterService) Seed(ctx context.Context, roster *RosterFile) (*SeedResult, error) {
	if roster == nil {
		return nil, apperrors.Validationf("roster is required")
	}
	return operation.Do(s.run, ctx, "Seed", fmt.Sprintf("teams=%d services=%d", len(roster.Teams), len(roster.Services)), func(ctx context.Context, db bun.IDB) (results.OperationResult[*SeedResult, error], error) {
		return s.seedLogic(ctx, db, roster)
	})
}

func (s *RosterService) seedLogic(ctx context.Context, db bun.IDB, roster *RosterFile) (results.OperationResult[*SeedResult, error], error) {
	out := &SeedResult{}

	for _, input := range roster.Teams {
		_, err := s.repo.GetTeamByName(ctx, db, strings.TrimSpace(input.Name))
		if err == nil {
			out.TeamsSkipped++
			continue
		}
		if !errors.Is(err, rosterdb.ErrTeamNotFound) {
			return results.OperationResult[*SeedResult, error]{}, err
		}
		res, err := s.createTeamLogic(ctx, db, input)
		if err != nil {
			return results.OperationResult[*SeedResult, error]{}, err
		}
		if res.IsFailure() {
			return results.FailureResult[*SeedResult, error](*res.Failure), nil
		}
		out.TeamsCreated++
	}

	for _, input := range roster.Services {
		_, err := s.repo.GetServiceByName(ctx, db, strings.TrimSpace(input.Name))
		if err == nil {
			out.ServicesSkipped++
			continue
		}
		if !errors.Is(err, rosterdb.ErrServiceNotFound) {
			return results.OperationResult[*SeedResult, error]{}, err
		}
		res, err := s.createServiceLogic(ctx, db, input)
		if err != nil {
			return results.OperationResult[*SeedResult, error]{}, err
		}
		if res.IsFailure() {
			return results.FailureResult[*SeedResult, error](*res.Failure), nil
		}
		out.ServicesCreated++
	}

	s.logger.InfoContext(ctx, "Roster seeded",
		attr.Int("teams_created", out.TeamsCreated),
		attr.Int("teams_skipped", out.TeamsSkipped),
		attr.Int("services_created", out.ServicesCreated),
		attr.Int("services_skipped", out.ServicesSkipped),
	)
	return results.SuccessResult[*SeedResult, error](out), nil
}
