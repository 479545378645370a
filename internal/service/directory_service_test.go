package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/models"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
)

type stubDirectoryCache struct {
	store map[string][]byte
}

func (s *stubDirectoryCache) Get(_ context.Context, key string, dest interface{}) error {
	payload, ok := s.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (s *stubDirectoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.store == nil {
		s.store = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.store[key] = payload
	return nil
}

func TestDirectoryViewerForStudentResolvesBatch(t *testing.T) {
	batches := &stubBatchesRepo{
		ofStudent:  map[string]*models.Batch{"student-1": {ID: "batch-1", Name: "CS-2026"}},
		teacherIDs: map[string][]string{"batch-1": {"advisor-1", "advisor-2"}},
	}
	cache := &stubDirectoryCache{}
	svc := NewDirectoryService(&stubUsersRepo{}, batches, cache, nil, time.Minute, zap.NewNop())

	student := &models.User{ID: "student-1", Role: models.RoleStudent, Section: "Aeronautical"}
	viewer, err := svc.ViewerFor(context.Background(), student)
	require.NoError(t, err)

	assert.Equal(t, "batch-1", viewer.BatchID)
	assert.Equal(t, "CS-2026", viewer.BatchName)
	assert.Equal(t, []string{"advisor-1", "advisor-2"}, viewer.BatchTeacherIDs)
	assert.Equal(t, 1, batches.ofStudentCalls)

	// Second resolution is served from the cache.
	again, err := svc.ViewerFor(context.Background(), student)
	require.NoError(t, err)
	assert.Equal(t, viewer.BatchID, again.BatchID)
	assert.Equal(t, 1, batches.ofStudentCalls)
}

func TestDirectoryViewerForTeacherCollectsTaughtBatches(t *testing.T) {
	batches := &stubBatchesRepo{taughtBy: map[string][]string{"advisor-1": {"CS-2026", "CS-2027"}}}
	svc := NewDirectoryService(&stubUsersRepo{}, batches, nil, nil, time.Minute, zap.NewNop())

	teacher := &models.User{ID: "advisor-1", Role: models.RoleTeacher}
	viewer, err := svc.ViewerFor(context.Background(), teacher)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS-2026", "CS-2027"}, viewer.TaughtBatchNames)
}

func TestDirectoryRoleAuthorIDsUnknownRoleIsEmpty(t *testing.T) {
	users := &stubUsersRepo{byRole: map[models.UserRole][]string{models.RoleTeacher: {"advisor-1"}}}
	svc := NewDirectoryService(users, &stubBatchesRepo{}, nil, nil, time.Minute, zap.NewNop())

	ids, err := svc.RoleAuthorIDs(context.Background(), "janitor")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = svc.RoleAuthorIDs(context.Background(), "teacher")
	require.NoError(t, err)
	assert.Equal(t, []string{"advisor-1"}, ids)
}

func TestDirectorySnapshotCachesMembership(t *testing.T) {
	batches := &stubBatchesRepo{
		batches:    map[string]*models.Batch{"batch-1": {ID: "batch-1", Name: "CS-2026"}},
		studentIDs: map[string][]string{"batch-1": {"student-1"}},
		teacherIDs: map[string][]string{"batch-1": {"advisor-1"}},
	}
	cache := &stubDirectoryCache{}
	svc := NewDirectoryService(&stubUsersRepo{}, batches, cache, nil, time.Minute, zap.NewNop())

	snapshot, err := svc.Snapshot(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"student-1"}, snapshot.StudentIDs)
	assert.Equal(t, 1, batches.findByIDCalls)

	_, err = svc.Snapshot(context.Background(), "batch-1")
	require.NoError(t, err)
	assert.Equal(t, 1, batches.findByIDCalls)
}

func TestDirectoryStudentIDsSectionNarrowing(t *testing.T) {
	users := &stubUsersRepo{
		byRole:    map[models.UserRole][]string{models.RoleStudent: {"s-1", "s-2"}},
		bySection: map[string][]string{"Aeronautical": {"s-1"}},
	}
	svc := NewDirectoryService(users, &stubBatchesRepo{}, nil, nil, time.Minute, zap.NewNop())

	ids, err := svc.StudentIDs(context.Background(), "Aeronautical")
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1"}, ids)

	ids, err = svc.StudentIDs(context.Background(), models.SectionAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"s-1", "s-2"}, ids)
}
