package archiveservice

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	archivedb "github.com/Black-And-White-Club/ctf-engine/app/modules/archive/infrastructure/repositories"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/apperrors"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/attr"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/metrics"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/operation"
	"github.com/Black-And-White-Club/ctf-engine/app/shared/results"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace"
)

// Service deletes any registered entity kind through a tombstone.
type Service interface {
	Register(kind string, d archivedb.Deleter)
	AddInvalidator(inv archivedb.Invalidator)
	Kinds() []string
	DeleteEntity(ctx context.Context, kind string, id int64) (int64, error)
}

// ArchiveService implements the Service interface.
type ArchiveService struct {
	repo   archivedb.Repository
	logger *slog.Logger
	run    *operation.Runner

	mu           sync.RWMutex
	deleters     map[string]archivedb.Deleter
	invalidators archivedb.Invalidators
}

// NewArchiveService creates a new ArchiveService with no registered kinds.
func NewArchiveService(
	repo archivedb.Repository,
	logger *slog.Logger,
	metrics metrics.OperationMetrics,
	tracer trace.Tracer,
	db *bun.DB,
) *ArchiveService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveService{
		repo:     repo,
		logger:   logger,
		run:      operation.NewRunner("ArchiveService", logger, metrics, tracer, db),
		deleters: make(map[string]archivedb.Deleter),
	}
}

// Register binds kind to d. Registering a kind twice replaces the deleter.
// Modules call it once at startup.
func (s *ArchiveService) Register(kind string, d archivedb.Deleter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleters[kind] = d
}

// AddInvalidator registers inv to run after every delete, in registration
// order. Modules holding caches derived from deletable rows add one.
func (s *ArchiveService) AddInvalidator(inv archivedb.Invalidator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidators = append(s.invalidators, inv)
}

// Invalidate runs every registered invalidator. It lets delete paths outside
// DeleteEntity share the same cache hygiene.
func (s *ArchiveService) Invalidate(ctx context.Context, db bun.IDB, typeName string, snapshot any) error {
	s.mu.RLock()
	invs := make(archivedb.Invalidators, len(s.invalidators))
	copy(invs, s.invalidators)
	s.mu.RUnlock()
	return invs.Invalidate(ctx, db, typeName, snapshot)
}

// Kinds lists the registered kinds in lexical order.
func (s *ArchiveService) Kinds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kinds := make([]string, 0, len(s.deleters))
	for k := range s.deleters {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

func (s *ArchiveService) deleter(kind string) (archivedb.Deleter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deleters[kind]
	return d, ok
}

// DeleteEntity tombstones and removes one row, returning the tombstone id.
// Unknown kinds fail validation. A row other rows still point at is left in
// place with ErrPrecondition. Derived caches are invalidated in the same
// transaction.
func (s *ArchiveService) DeleteEntity(ctx context.Context, kind string, id int64) (int64, error) {
	return operation.Do(s.run, ctx, "DeleteEntity", fmt.Sprintf("%s/%d", kind, id), func(ctx context.Context, db bun.IDB) (results.OperationResult[int64, error], error) {
		d, ok := s.deleter(kind)
		if !ok {
			return results.FailureResult[int64, error](apperrors.Validationf("unknown entity kind %q", kind)), nil
		}
		tombstone, err := archivedb.DeleteWithTombstone(ctx, db, s.repo, d, id, s)
		if err != nil {
			if apperrors.IsDomain(err) {
				return results.FailureResult[int64, error](err), nil
			}
			return results.OperationResult[int64, error]{}, err
		}
		s.logger.InfoContext(ctx, "Entity deleted",
			attr.ExtractCorrelationID(ctx),
			attr.String("kind", kind),
			attr.Int64("id", id),
			attr.Int64("tombstone_id", tombstone.ID),
		)
		return results.SuccessResult[int64, error](tombstone.ID), nil
	})
}
