package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
)

type mockJobRepo struct {
	stored  map[string]*models.Job
	deleted []string
}

func (m *mockJobRepo) Create(_ context.Context, job *models.Job) error {
	job.ID = "job-1"
	if m.stored == nil {
		m.stored = make(map[string]*models.Job)
	}
	m.stored[job.ID] = job
	return nil
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*models.Job, error) {
	job, ok := m.stored[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (m *mockJobRepo) List(_ context.Context, _, _ int) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (m *mockJobRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func TestJobCreateNotifiesAllStudents(t *testing.T) {
	repo := &mockJobRepo{}
	notifier := &captureNotifier{}
	users := &stubUsersRepo{byRole: map[models.UserRole][]string{models.RoleStudent: {"s-1", "s-2"}}}
	svc := NewJobService(repo, newTestDirectory(users, nil), &stubMediaStore{}, notifier, nil, zap.NewNop())

	poster := &models.User{ID: "coord-1", Role: models.RoleCoordinator}
	job, err := svc.Create(context.Background(), poster, dto.CreateJobRequest{
		Title:   "Flight systems intern",
		Company: "Aerodyne",
		Link:    "https://careers.aerodyne.example/intern",
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "coord-1", job.PostedBy)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.NotificationJob, notifier.events[0].Type)
	assert.Equal(t, []string{"s-1", "s-2"}, notifier.events[0].Recipients)
}

func TestJobCreateRejectsBadLink(t *testing.T) {
	svc := NewJobService(&mockJobRepo{}, newTestDirectory(nil, nil), &stubMediaStore{}, &captureNotifier{}, nil, zap.NewNop())

	poster := &models.User{ID: "coord-1", Role: models.RoleCoordinator}
	_, err := svc.Create(context.Background(), poster, dto.CreateJobRequest{
		Title:   "Intern",
		Company: "Aerodyne",
		Link:    "not a url",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestJobDeletePosterOnly(t *testing.T) {
	repo := &mockJobRepo{stored: map[string]*models.Job{
		"job-1": {ID: "job-1", PostedBy: "coord-1"},
	}}
	svc := NewJobService(repo, newTestDirectory(nil, nil), &stubMediaStore{}, &captureNotifier{}, nil, zap.NewNop())

	intruder := &models.User{ID: "coord-2", Role: models.RoleCoordinator}
	err := svc.Delete(context.Background(), intruder, "job-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	poster := &models.User{ID: "coord-1", Role: models.RoleCoordinator}
	require.NoError(t, svc.Delete(context.Background(), poster, "job-1"))
	assert.Equal(t, []string{"job-1"}, repo.deleted)
}
