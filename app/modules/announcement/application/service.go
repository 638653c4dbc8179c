package announcementservice

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	announcementdb "github.com/Black-And-White-Club/ctf-engine/app/modules/announcement/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/eventbus"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Service defines the announcement operations.
type Service interface {
	Post(ctx context.Context, text string) (*announcementdb.Announcement, error)
	List(ctx context.Context) ([]announcementdb.Announcement, error)
}

// AnnouncementService implements the Service interface.
type AnnouncementService struct {
	repo   announcementdb.Repository
	bus    eventbus.Publisher
	logger *slog.Logger
	run    *operation.Runner
}

// NewAnnouncementService creates a new AnnouncementService.
func NewAnnouncementService(
	repo announcementdb.Repository,
	bus eventbus.Publisher,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *AnnouncementService {
	if logger == nil {
		logger = slog.Default()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	return &AnnouncementService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		run:    operation.NewRunner("AnnouncementService", logger, metrics, tracer, db),
	}
}

// Post stores an announcement and publishes it after commit. Blank text and
// text over MaxTextLength characters are rejected.
func (s *AnnouncementService) Post(ctx context.Context, text string) (*announcementdb.Announcement, error) {
	a, err := operation.Do(s.run, ctx, "Post", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[*announcementdb.Announcement, error], error) {
		if strings.TrimSpace(text) == "" {
			return results.FailureResult[*announcementdb.Announcement, error](apperrors.Validationf("announcement text is empty")), nil
		}
		if n := utf8.RuneCountInString(text); n > announcementdb.MaxTextLength {
			return results.FailureResult[*announcementdb.Announcement, error](apperrors.Validationf("announcement is %d characters, the limit is %d", n, announcementdb.MaxTextLength)), nil
		}
		a := &announcementdb.Announcement{Text: text}
		if err := s.repo.Create(ctx, db, a); err != nil {
			return results.OperationResult[*announcementdb.Announcement, error]{}, err
		}
		return results.SuccessResult[*announcementdb.Announcement, error](a), nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.bus.Publish(ctx, eventbus.AnnouncementPostedV1, a); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish announcement",
			attr.ExtractCorrelationID(ctx),
			attr.Int64("announcement_id", a.ID),
			attr.Error(err),
		)
	}
	return a, nil
}

func (s *AnnouncementService) List(ctx context.Context) ([]announcementdb.Announcement, error) {
	return operation.Do(s.run, ctx, "List", "", func(ctx context.Context, db bun.IDB) (results.OperationResult[[]announcementdb.Announcement, error], error) {
		out, err := s.repo.List(ctx, db)
		if err != nil {
			return results.OperationResult[[]announcementdb.Announcement, error]{}, err
		}
		if out == nil {
			out = []announcementdb.Announcement{}
		}
		return results.SuccessResult[[]announcementdb.Announcement, error](out), nil
	})
}
