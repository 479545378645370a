package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	"github.com/noah-isme/airconnect-api/internal/repository"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

type applicationRepository interface {
	Create(ctx context.Context, application *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	ListForStudent(ctx context.Context, studentID string, page, size int) ([]models.Application, int, error)
	ListForAdvisor(ctx context.Context, advisorID string, page, size int) ([]models.Application, int, error)
	ListForCoordinator(ctx context.Context, page, size int) ([]models.Application, int, error)
	RecordAdvisorAction(ctx context.Context, id string, status models.ApplicationStatus, comments string, at time.Time) error
	RecordCoordinatorAction(ctx context.Context, id, coordinatorID string, status models.ApplicationStatus, comments string, at time.Time) error
	ApplyStudentEdit(ctx context.Context, params repository.StudentEditParams) error
	SetHidden(ctx context.Context, id string, actor models.UserRole) error
	AddComment(ctx context.Context, comment *models.ApplicationComment) error
	ListComments(ctx context.Context, applicationID string) ([]models.ApplicationComment, error)
}

type applicationNotifier interface {
	Fanout(ctx context.Context, event Event) error
}

// ApplicationService drives the advisor/coordinator approval chain. Every
// mutation notifies the affected actors; routing is fixed at creation from
// the student's batch.
type ApplicationService struct {
	repo      applicationRepository
	directory *DirectoryService
	media     storage.MediaStore
	notifier  applicationNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewApplicationService constructs the service.
func NewApplicationService(repo applicationRepository, directory *DirectoryService, media storage.MediaStore, notifier applicationNotifier, validate *validator.Validate, logger *zap.Logger) *ApplicationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		repo:      repo,
		directory: directory,
		media:     media,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create submits a new application. The advisor and coordinator are fixed
// from the student's batch for the application's entire lifetime.
func (s *ApplicationService) Create(ctx context.Context, student *models.User, req dto.CreateApplicationRequest, files []storage.MediaFile) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	batch, err := s.directory.BatchOfStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}
	if batch == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not assigned to a batch")
	}
	if batch.AdvisorID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch has no advisor")
	}

	urls, err := s.media.UploadMany(ctx, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "media upload failed")
	}

	application := &models.Application{
		Subject:       req.Subject,
		Body:          req.Body,
		StudentID:     student.ID,
		AdvisorID:     batch.AdvisorID,
		CoordinatorID: batch.CoordinatorID,
		Status:        models.ApplicationPending,
		Media:         urls,
	}
	if err := s.repo.Create(ctx, application); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create application")
	}

	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationApplicationSubmitted,
		Title:      "New application",
		Message:    fmt.Sprintf("%s submitted: %s", student.FullName, application.Subject),
		SenderID:   student.ID,
		RelatedID:  application.ID,
		Recipients: []string{application.AdvisorID},
	}); err != nil {
		return nil, err
	}
	return application, nil
}

// Get returns an application visible to the actor.
func (s *ApplicationService) Get(ctx context.Context, actor *models.User, id string) (*models.Application, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := application.ActorRole(actor.ID); !ok && actor.Role != models.RoleCoordinator && actor.Role != models.RoleStudentAffairs {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this application")
	}
	return application, nil
}

// List returns the actor's role-scoped application listing.
func (s *ApplicationService) List(ctx context.Context, actor *models.User, filter dto.ApplicationFilter) ([]models.Application, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Limit
	if size <= 0 {
		size = 20
	}

	var (
		rows  []models.Application
		total int
		err   error
	)
	switch actor.Role {
	case models.RoleStudent:
		rows, total, err = s.repo.ListForStudent(ctx, actor.ID, page, size)
	case models.RoleTeacher:
		rows, total, err = s.repo.ListForAdvisor(ctx, actor.ID, page, size)
	case models.RoleCoordinator, models.RoleStudentAffairs:
		rows, total, err = s.repo.ListForCoordinator(ctx, page, size)
	default:
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "role cannot list applications")
	}
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list applications")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// AdvisorAction records the assigned advisor's decision. The "Transit"
// shorthand canonicalizes to the forwarded state; any other status is stored
// verbatim, which covers rejection and reopening to Pending.
func (s *ApplicationService) AdvisorAction(ctx context.Context, advisor *models.User, id string, req dto.AdvisorActionRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.AdvisorID != advisor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned advisor may act on this application")
	}

	status := models.CanonicalAdvisorStatus(req.Status)
	switch status {
	case models.ApplicationForwarded, models.ApplicationRejected, models.ApplicationPending:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("advisor cannot set status %q", req.Status))
	}

	now := time.Now().UTC()
	if err := s.repo.RecordAdvisorAction(ctx, id, status, req.Comments, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record advisor action")
	}
	application.Status = status
	application.AdvisorComments = req.Comments
	application.AdvisorActionAt = &now

	// The student always hears back; the coordinator only when the
	// application moves to their queue.
	recipients := []string{application.StudentID}
	if status == models.ApplicationForwarded {
		recipients = append(recipients, application.CoordinatorID)
	}
	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationAdvisorAction,
		Title:      "Application " + string(status),
		Message:    advisorActionMessage(advisor.FullName, status, req.Comments),
		SenderID:   advisor.ID,
		RelatedID:  application.ID,
		Recipients: recipients,
	}); err != nil {
		return nil, err
	}
	return application, nil
}

// CoordinatorAction records a coordinator's decision. Any coordinator may
// act; acting claims the application by overwriting its coordinator.
func (s *ApplicationService) CoordinatorAction(ctx context.Context, coordinator *models.User, id string, req dto.CoordinatorActionRequest) (*models.Application, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	if coordinator.Role != models.RoleCoordinator {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only coordinators may act at this stage")
	}
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.Status != models.ApplicationForwarded {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application has not been forwarded for review")
	}

	status := models.CanonicalCoordinatorStatus(req.Status)
	switch status {
	case models.ApplicationApproved, models.ApplicationRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("coordinator cannot set status %q", req.Status))
	}

	now := time.Now().UTC()
	if err := s.repo.RecordCoordinatorAction(ctx, id, coordinator.ID, status, req.Comments, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record coordinator action")
	}
	application.Status = status
	application.CoordinatorID = coordinator.ID
	application.CoordinatorComments = req.Comments
	application.CoordinatorActionAt = &now

	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationCoordinatorAction,
		Title:      "Application " + string(status),
		Message:    fmt.Sprintf("%s marked the application %s", coordinator.FullName, status),
		SenderID:   coordinator.ID,
		RelatedID:  application.ID,
		Recipients: []string{application.StudentID, application.AdvisorID},
	}); err != nil {
		return nil, err
	}
	return application, nil
}

// StudentEdit lets the owning student modify the application while it is
// still Pending, or resubmit after the advisor sent it back with comments.
// Resubmission resets the status and clears the change request.
func (s *ApplicationService) StudentEdit(ctx context.Context, student *models.User, id string, req dto.UpdateApplicationRequest, files []storage.MediaFile) (*models.Application, error) {
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning student may edit an application")
	}
	if !application.EditableByStudent() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application can no longer be edited")
	}

	urls, err := s.media.UploadMany(ctx, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "media upload failed")
	}

	subject := req.Subject
	if subject == "" {
		subject = application.Subject
	}
	body := req.Body
	if body == "" {
		body = application.Body
	}

	resubmitted := application.AdvisorComments != ""
	if err := s.repo.ApplyStudentEdit(ctx, repository.StudentEditParams{
		ID:             id,
		Subject:        subject,
		Body:           body,
		AppendMedia:    urls,
		ResetToPending: resubmitted,
	}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update application")
	}

	application.Subject = subject
	application.Body = body
	application.Media = append(application.Media, urls...)
	if resubmitted {
		application.Status = models.ApplicationPending
		application.AdvisorComments = ""

		if err := s.notifier.Fanout(ctx, Event{
			Type:       models.NotificationApplicationSubmitted,
			Title:      "Application resubmitted",
			Message:    fmt.Sprintf("%s resubmitted: %s", student.FullName, subject),
			SenderID:   student.ID,
			RelatedID:  application.ID,
			Recipients: []string{application.AdvisorID},
		}); err != nil {
			return nil, err
		}
	}
	return application, nil
}

// Hide removes the application from the acting participant's own view only.
// Advisors may hide once the application has left Pending; coordinators only
// once a final decision exists.
func (s *ApplicationService) Hide(ctx context.Context, actor *models.User, id string) error {
	application, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	role, ok := application.ActorRole(actor.ID)
	if !ok {
		return appErrors.Clone(appErrors.ErrForbidden, "not a participant of this application")
	}

	switch role {
	case models.RoleTeacher:
		if application.Status == models.ApplicationPending {
			return appErrors.Clone(appErrors.ErrValidation, "cannot hide a pending application")
		}
	case models.RoleCoordinator:
		if application.Status != models.ApplicationApproved && application.Status != models.ApplicationRejected {
			return appErrors.Clone(appErrors.ErrValidation, "cannot hide an application before a decision")
		}
	}

	if err := s.repo.SetHidden(ctx, id, role); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hide application")
	}
	return nil
}

// Comment appends a role-tagged comment. The role is resolved by identity
// against the three stored actor references, never from claims.
func (s *ApplicationService) Comment(ctx context.Context, actor *models.User, id string, req dto.CommentRequest) (*models.ApplicationComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	application, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	role, ok := application.ActorRole(actor.ID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant of this application")
	}

	comment := &models.ApplicationComment{
		ApplicationID: id,
		AuthorID:      actor.ID,
		AuthorRole:    role,
		Text:          req.Text,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	// The other two participants hear about the comment.
	recipients := make([]string, 0, 2)
	for _, participant := range []string{application.StudentID, application.AdvisorID, application.CoordinatorID} {
		if participant != actor.ID {
			recipients = append(recipients, participant)
		}
	}
	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationComment,
		Title:      "New application comment",
		Message:    fmt.Sprintf("%s commented: %s", actor.FullName, truncate(req.Text, 150)),
		SenderID:   actor.ID,
		RelatedID:  application.ID,
		Recipients: recipients,
	}); err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments returns the application's thread, oldest first.
func (s *ApplicationService) Comments(ctx context.Context, actor *models.User, id string) ([]models.ApplicationComment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListComments(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return comments, nil
}

func (s *ApplicationService) load(ctx context.Context, id string) (*models.Application, error) {
	application, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "application not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load application")
	}
	return application, nil
}

func advisorActionMessage(advisorName string, status models.ApplicationStatus, comments string) string {
	switch status {
	case models.ApplicationForwarded:
		return fmt.Sprintf("%s forwarded your application to the coordinator", advisorName)
	case models.ApplicationRejected:
		if comments != "" {
			return fmt.Sprintf("%s rejected your application: %s", advisorName, comments)
		}
		return fmt.Sprintf("%s rejected your application", advisorName)
	default:
		if comments != "" {
			return fmt.Sprintf("%s requested changes: %s", advisorName, comments)
		}
		return fmt.Sprintf("%s returned your application", advisorName)
	}
}
