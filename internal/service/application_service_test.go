package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/repository"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

type captureNotifier struct {
	events []Event
	err    error
}

func (c *captureNotifier) Fanout(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return c.err
}

type stubMediaStore struct {
	urls []string
	err  error
}

func (s *stubMediaStore) Upload(_ context.Context, _ storage.MediaFile) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if len(s.urls) > 0 {
		return s.urls[0], nil
	}
	return "", nil
}

func (s *stubMediaStore) UploadMany(_ context.Context, files []storage.MediaFile) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(files) == 0 {
		return nil, nil
	}
	return s.urls, nil
}

type stubUsersRepo struct {
	byRole    map[models.UserRole][]string
	bySection map[string][]string
}

func (s *stubUsersRepo) ListIDsByRole(_ context.Context, role models.UserRole) ([]string, error) {
	return s.byRole[role], nil
}

func (s *stubUsersRepo) ListStudentIDsBySection(_ context.Context, section string) ([]string, error) {
	return s.bySection[section], nil
}

type stubBatchesRepo struct {
	batches    map[string]*models.Batch
	ofStudent  map[string]*models.Batch
	taughtBy   map[string][]string
	studentIDs map[string][]string
	teacherIDs map[string][]string
	findErr    error

	findByIDCalls  int
	ofStudentCalls int
}

func (s *stubBatchesRepo) FindByID(_ context.Context, id string) (*models.Batch, error) {
	s.findByIDCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	batch, ok := s.batches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return batch, nil
}

func (s *stubBatchesRepo) FindBatchOfStudent(_ context.Context, studentID string) (*models.Batch, error) {
	s.ofStudentCalls++
	return s.ofStudent[studentID], nil
}

func (s *stubBatchesRepo) FindBatchNamesTaughtBy(_ context.Context, teacherID string) ([]string, error) {
	return s.taughtBy[teacherID], nil
}

func (s *stubBatchesRepo) ListStudentIDs(_ context.Context, batchID string) ([]string, error) {
	return s.studentIDs[batchID], nil
}

func (s *stubBatchesRepo) ListTeacherIDs(_ context.Context, batchID string) ([]string, error) {
	return s.teacherIDs[batchID], nil
}

func newTestDirectory(users *stubUsersRepo, batches *stubBatchesRepo) *DirectoryService {
	if users == nil {
		users = &stubUsersRepo{}
	}
	if batches == nil {
		batches = &stubBatchesRepo{}
	}
	return NewDirectoryService(users, batches, nil, nil, time.Minute, zap.NewNop())
}

type mockApplicationRepo struct {
	stored map[string]*models.Application

	advisorActions    []models.ApplicationStatus
	coordinatorAction *models.ApplicationStatus
	claimedBy         string
	edits             []repository.StudentEditParams
	hidden            []models.UserRole
	comments          []models.ApplicationComment
}

func (m *mockApplicationRepo) Create(_ context.Context, application *models.Application) error {
	application.ID = "app-1"
	if m.stored == nil {
		m.stored = make(map[string]*models.Application)
	}
	m.stored[application.ID] = application
	return nil
}

func (m *mockApplicationRepo) GetByID(_ context.Context, id string) (*models.Application, error) {
	application, ok := m.stored[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *application
	return &clone, nil
}

func (m *mockApplicationRepo) ListForStudent(_ context.Context, _ string, _, _ int) ([]models.Application, int, error) {
	return nil, 0, nil
}

func (m *mockApplicationRepo) ListForAdvisor(_ context.Context, _ string, _, _ int) ([]models.Application, int, error) {
	return nil, 0, nil
}

func (m *mockApplicationRepo) ListForCoordinator(_ context.Context, _, _ int) ([]models.Application, int, error) {
	return nil, 0, nil
}

func (m *mockApplicationRepo) RecordAdvisorAction(_ context.Context, id string, status models.ApplicationStatus, comments string, at time.Time) error {
	m.advisorActions = append(m.advisorActions, status)
	if application, ok := m.stored[id]; ok {
		application.Status = status
		application.AdvisorComments = comments
		application.AdvisorActionAt = &at
	}
	return nil
}

func (m *mockApplicationRepo) RecordCoordinatorAction(_ context.Context, id, coordinatorID string, status models.ApplicationStatus, comments string, at time.Time) error {
	m.coordinatorAction = &status
	m.claimedBy = coordinatorID
	if application, ok := m.stored[id]; ok {
		application.Status = status
		application.CoordinatorID = coordinatorID
		application.CoordinatorComments = comments
		application.CoordinatorActionAt = &at
	}
	return nil
}

func (m *mockApplicationRepo) ApplyStudentEdit(_ context.Context, params repository.StudentEditParams) error {
	m.edits = append(m.edits, params)
	if application, ok := m.stored[params.ID]; ok {
		application.Subject = params.Subject
		application.Body = params.Body
		application.Media = append(application.Media, params.AppendMedia...)
		if params.ResetToPending {
			application.Status = models.ApplicationPending
			application.AdvisorComments = ""
		}
	}
	return nil
}

func (m *mockApplicationRepo) SetHidden(_ context.Context, _ string, actor models.UserRole) error {
	m.hidden = append(m.hidden, actor)
	return nil
}

func (m *mockApplicationRepo) AddComment(_ context.Context, comment *models.ApplicationComment) error {
	comment.ID = "comment-1"
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *mockApplicationRepo) ListComments(_ context.Context, _ string) ([]models.ApplicationComment, error) {
	return m.comments, nil
}

func seedApplication(repo *mockApplicationRepo, application models.Application) {
	if repo.stored == nil {
		repo.stored = make(map[string]*models.Application)
	}
	clone := application
	repo.stored[application.ID] = &clone
}

var (
	testStudent     = &models.User{ID: "student-1", FullName: "Asha Nair", Role: models.RoleStudent}
	testAdvisor     = &models.User{ID: "advisor-1", FullName: "Karim Osman", Role: models.RoleTeacher}
	testCoordinator = &models.User{ID: "coord-1", FullName: "Dana Silva", Role: models.RoleCoordinator}
)

func newApplicationService(repo *mockApplicationRepo, notifier *captureNotifier, batches *stubBatchesRepo) *ApplicationService {
	return NewApplicationService(repo, newTestDirectory(nil, batches), &stubMediaStore{}, notifier, nil, zap.NewNop())
}

func TestApplicationCreateRoutesToBatchAdvisor(t *testing.T) {
	repo := &mockApplicationRepo{}
	notifier := &captureNotifier{}
	batches := &stubBatchesRepo{ofStudent: map[string]*models.Batch{
		"student-1": {ID: "batch-1", Name: "CS-2026", AdvisorID: "advisor-1", CoordinatorID: "coord-1"},
	}}
	svc := newApplicationService(repo, notifier, batches)

	application, err := svc.Create(context.Background(), testStudent, dto.CreateApplicationRequest{
		Subject: "Semester leave",
		Body:    "Requesting leave for the spring semester.",
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationPending, application.Status)
	assert.Equal(t, "advisor-1", application.AdvisorID)
	assert.Equal(t, "coord-1", application.CoordinatorID)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, models.NotificationApplicationSubmitted, notifier.events[0].Type)
	assert.Equal(t, []string{"advisor-1"}, notifier.events[0].Recipients)
}

func TestApplicationCreateRequiresBatch(t *testing.T) {
	svc := newApplicationService(&mockApplicationRepo{}, &captureNotifier{}, &stubBatchesRepo{})

	_, err := svc.Create(context.Background(), testStudent, dto.CreateApplicationRequest{
		Subject: "Semester leave",
		Body:    "body",
	}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAdvisorForwardNotifiesStudentAndCoordinator(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", CoordinatorID: "coord-1",
		Status: models.ApplicationPending,
	})
	notifier := &captureNotifier{}
	svc := newApplicationService(repo, notifier, nil)

	application, err := svc.AdvisorAction(context.Background(), testAdvisor, "app-1", dto.AdvisorActionRequest{Status: "Transit"})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationForwarded, application.Status)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, []string{"student-1", "coord-1"}, notifier.events[0].Recipients)
}

func TestAdvisorRejectNotifiesStudentOnly(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", CoordinatorID: "coord-1",
		Status: models.ApplicationPending,
	})
	notifier := &captureNotifier{}
	svc := newApplicationService(repo, notifier, nil)

	application, err := svc.AdvisorAction(context.Background(), testAdvisor, "app-1", dto.AdvisorActionRequest{
		Status:   string(models.ApplicationRejected),
		Comments: "missing signature",
	})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationRejected, application.Status)
	require.Len(t, notifier.events, 1)
	assert.Equal(t, []string{"student-1"}, notifier.events[0].Recipients)
	assert.Contains(t, notifier.events[0].Message, "missing signature")
}

func TestAdvisorActionRejectsOtherTeachers(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", Status: models.ApplicationPending})
	svc := newApplicationService(repo, &captureNotifier{}, nil)

	other := &models.User{ID: "advisor-2", Role: models.RoleTeacher}
	_, err := svc.AdvisorAction(context.Background(), other, "app-1", dto.AdvisorActionRequest{Status: "Transit"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCoordinatorApproveClaimsApplication(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", CoordinatorID: "coord-0",
		Status: models.ApplicationForwarded,
	})
	notifier := &captureNotifier{}
	svc := newApplicationService(repo, notifier, nil)

	application, err := svc.CoordinatorAction(context.Background(), testCoordinator, "app-1", dto.CoordinatorActionRequest{Status: "Forwarded"})
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationApproved, application.Status)
	assert.Equal(t, "coord-1", application.CoordinatorID)
	assert.Equal(t, "coord-1", repo.claimedBy)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, []string{"student-1", "advisor-1"}, notifier.events[0].Recipients)
}

func TestCoordinatorActionRequiresForwardedStatus(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", Status: models.ApplicationPending})
	svc := newApplicationService(repo, &captureNotifier{}, nil)

	_, err := svc.CoordinatorAction(context.Background(), testCoordinator, "app-1", dto.CoordinatorActionRequest{Status: "Approved by Coordinator"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentResubmitResetsStatusAndNotifiesAdvisor(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", Subject: "Semester leave", Body: "old body",
		StudentID: "student-1", AdvisorID: "advisor-1",
		Status: models.ApplicationRejected, AdvisorComments: "attach the form",
	})
	notifier := &captureNotifier{}
	svc := newApplicationService(repo, notifier, nil)

	application, err := svc.StudentEdit(context.Background(), testStudent, "app-1", dto.UpdateApplicationRequest{Body: "new body"}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ApplicationPending, application.Status)
	assert.Equal(t, "", application.AdvisorComments)
	assert.Equal(t, "Semester leave", application.Subject)
	assert.Equal(t, "new body", application.Body)

	require.Len(t, repo.edits, 1)
	assert.True(t, repo.edits[0].ResetToPending)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, []string{"advisor-1"}, notifier.events[0].Recipients)
}

func TestStudentEditBlockedAfterForward(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1",
		Status: models.ApplicationForwarded,
	})
	svc := newApplicationService(repo, &captureNotifier{}, nil)

	_, err := svc.StudentEdit(context.Background(), testStudent, "app-1", dto.UpdateApplicationRequest{Body: "late edit"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestHideGuardsPerRole(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", CoordinatorID: "coord-1",
		Status: models.ApplicationPending,
	})
	svc := newApplicationService(repo, &captureNotifier{}, nil)

	// Advisors cannot hide while the application still awaits them.
	err := svc.Hide(context.Background(), testAdvisor, "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	// Coordinators cannot hide before a decision exists.
	err = svc.Hide(context.Background(), testCoordinator, "app-1")
	require.Error(t, err)

	// Students can hide at any stage.
	require.NoError(t, svc.Hide(context.Background(), testStudent, "app-1"))
	assert.Equal(t, []models.UserRole{models.RoleStudent}, repo.hidden)
}

func TestApplicationCommentNotifiesOtherParticipants(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{
		ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", CoordinatorID: "coord-1",
		Status: models.ApplicationForwarded,
	})
	notifier := &captureNotifier{}
	svc := newApplicationService(repo, notifier, nil)

	comment, err := svc.Comment(context.Background(), testAdvisor, "app-1", dto.CommentRequest{Text: "please follow up"})
	require.NoError(t, err)

	assert.Equal(t, models.RoleTeacher, comment.AuthorRole)
	require.Len(t, notifier.events, 1)
	assert.ElementsMatch(t, []string{"student-1", "coord-1"}, notifier.events[0].Recipients)
}

func TestApplicationGetHiddenFromStrangers(t *testing.T) {
	repo := &mockApplicationRepo{}
	seedApplication(repo, models.Application{ID: "app-1", StudentID: "student-1", AdvisorID: "advisor-1", Status: models.ApplicationPending})
	svc := newApplicationService(repo, &captureNotifier{}, nil)

	stranger := &models.User{ID: "student-2", Role: models.RoleStudent}
	_, err := svc.Get(context.Background(), stranger, "app-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.Get(context.Background(), stranger, "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
