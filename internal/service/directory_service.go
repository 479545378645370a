package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/visibility"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
)

type directoryUserRepository interface {
	ListIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
	ListStudentIDsBySection(ctx context.Context, section string) ([]string, error)
}

type directoryBatchRepository interface {
	FindByID(ctx context.Context, id string) (*models.Batch, error)
	FindBatchOfStudent(ctx context.Context, studentID string) (*models.Batch, error)
	FindBatchNamesTaughtBy(ctx context.Context, teacherID string) ([]string, error)
	ListStudentIDs(ctx context.Context, batchID string) ([]string, error)
	ListTeacherIDs(ctx context.Context, batchID string) ([]string, error)
}

type directoryCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DirectoryService resolves batch membership and role rosters. Results are
// cached briefly in Redis; every answer is a point-in-time snapshot and may
// lag membership changes by up to the TTL.
type DirectoryService struct {
	users   directoryUserRepository
	batches directoryBatchRepository
	cache   directoryCache
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewDirectoryService constructs a DirectoryService.
func NewDirectoryService(users directoryUserRepository, batches directoryBatchRepository, cache directoryCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *DirectoryService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectoryService{users: users, batches: batches, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// ViewerFor assembles the visibility attributes for a user: the student's
// batch and its teaching staff, or the teacher's taught batch names.
func (s *DirectoryService) ViewerFor(ctx context.Context, user *models.User) (visibility.Viewer, error) {
	viewer := visibility.Viewer{
		ID:        user.ID,
		Role:      user.Role,
		Section:   user.Section,
		CreatedAt: user.CreatedAt,
	}

	key := "directory:viewer:" + user.ID
	if s.cachedGet(ctx, key, &viewer) {
		return viewer, nil
	}

	switch user.Role {
	case models.RoleStudent:
		batch, err := s.batches.FindBatchOfStudent(ctx, user.ID)
		if err != nil {
			return viewer, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student batch")
		}
		if batch != nil {
			viewer.BatchID = batch.ID
			viewer.BatchName = batch.Name
			teacherIDs, err := s.batches.ListTeacherIDs(ctx, batch.ID)
			if err != nil {
				return viewer, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch teachers")
			}
			viewer.BatchTeacherIDs = teacherIDs
		}
	case models.RoleTeacher:
		names, err := s.batches.FindBatchNamesTaughtBy(ctx, user.ID)
		if err != nil {
			return viewer, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve taught batches")
		}
		viewer.TaughtBatchNames = names
	}

	s.cachedSet(ctx, key, viewer)
	return viewer, nil
}

// RoleAuthorIDs resolves the author roster behind a role filter. An
// unrecognised role returns an empty roster, which the visibility builder
// turns into a provably-empty result.
func (s *DirectoryService) RoleAuthorIDs(ctx context.Context, roleParam string) ([]string, error) {
	role, ok := models.ParseRole(roleParam)
	if !ok {
		return nil, nil
	}

	var ids []string
	key := "directory:role:" + string(role)
	if s.cachedGet(ctx, key, &ids) {
		return ids, nil
	}

	ids, err := s.users.ListIDsByRole(ctx, role)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve role roster")
	}
	s.cachedSet(ctx, key, ids)
	return ids, nil
}

// Snapshot returns the batch row plus its membership.
func (s *DirectoryService) Snapshot(ctx context.Context, batchID string) (*models.BatchSnapshot, error) {
	var snapshot models.BatchSnapshot
	key := "directory:batch:" + batchID
	if s.cachedGet(ctx, key, &snapshot) {
		return &snapshot, nil
	}

	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}
	studentIDs, err := s.batches.ListStudentIDs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	teacherIDs, err := s.batches.ListTeacherIDs(ctx, batchID)
	if err != nil {
		return nil, err
	}
	snapshot = models.BatchSnapshot{Batch: *batch, StudentIDs: studentIDs, TeacherIDs: teacherIDs}
	s.cachedSet(ctx, key, snapshot)
	return &snapshot, nil
}

// BatchOfStudent returns the student's batch, nil when unassigned.
func (s *DirectoryService) BatchOfStudent(ctx context.Context, studentID string) (*models.Batch, error) {
	return s.batches.FindBatchOfStudent(ctx, studentID)
}

// StudentIDs returns every student, optionally narrowed to a section.
func (s *DirectoryService) StudentIDs(ctx context.Context, section string) ([]string, error) {
	if section != "" && section != models.SectionAll {
		return s.users.ListStudentIDsBySection(ctx, section)
	}
	return s.users.ListIDsByRole(ctx, models.RoleStudent)
}

func (s *DirectoryService) cachedGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	start := time.Now()
	err := s.cache.Get(ctx, key, dest)
	if s.metrics != nil {
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("directory cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

func (s *DirectoryService) cachedSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("directory cache set failed", zap.String("key", key), zap.Error(err))
	}
}
