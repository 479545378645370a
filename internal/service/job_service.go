package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

type jobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, page, size int) ([]models.Job, int, error)
	Delete(ctx context.Context, id string) error
}

// JobService manages vacancy postings. Thin by design; the interesting part
// is the notification fan-out to every student on creation.
type JobService struct {
	repo      jobRepository
	directory *DirectoryService
	media     storage.MediaStore
	notifier  announcementNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewJobService constructs the service.
func NewJobService(repo jobRepository, directory *DirectoryService, media storage.MediaStore, notifier announcementNotifier, validate *validator.Validate, logger *zap.Logger) *JobService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobService{
		repo:      repo,
		directory: directory,
		media:     media,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// Create posts a vacancy and notifies every student.
func (s *JobService) Create(ctx context.Context, author *models.User, req dto.CreateJobRequest, files []storage.MediaFile) (*models.Job, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	urls, err := s.media.UploadMany(ctx, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "media upload failed")
	}

	job := &models.Job{
		Title:       req.Title,
		Company:     req.Company,
		Description: req.Description,
		Link:        req.Link,
		PostedBy:    author.ID,
		Media:       urls,
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create job")
	}

	students, err := s.directory.StudentIDs(ctx, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve audience")
	}
	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationJob,
		Title:      "New job posting",
		Message:    fmt.Sprintf("%s at %s", job.Title, job.Company),
		SenderID:   author.ID,
		RelatedID:  job.ID,
		Recipients: students,
	}); err != nil {
		return nil, err
	}
	return job, nil
}

// Get returns one posting.
func (s *JobService) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get job")
	}
	return job, nil
}

// List returns postings newest first.
func (s *JobService) List(ctx context.Context, filter dto.JobFilter) ([]models.Job, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Limit
	if size <= 0 {
		size = 20
	}
	rows, total, err := s.repo.List(ctx, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list jobs")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a posting. Only the poster may delete it.
func (s *JobService) Delete(ctx context.Context, actor *models.User, id string) error {
	job, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if job.PostedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the poster may delete a job")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete job")
	}
	return nil
}
