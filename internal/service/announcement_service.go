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
	"github.com/noah-isme/airconnect-api/internal/query"
	"github.com/noah-isme/airconnect-api/internal/visibility"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
	"github.com/noah-isme/airconnect-api/pkg/storage"
)

type announcementRepository interface {
	List(ctx context.Context, scope query.Node, filter dto.AnnouncementFilter) ([]dto.AnnouncementItem, int, error)
	GetByID(ctx context.Context, id string) (*models.Announcement, error)
	Create(ctx context.Context, announcement *models.Announcement) error
	UpdateDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
	React(ctx context.Context, announcementID, userID string, kind models.ReactionKind) error
	AddComment(ctx context.Context, comment *models.AnnouncementComment) error
	ListComments(ctx context.Context, announcementID string, page, size int) ([]models.AnnouncementComment, int, error)
}

type announcementNotifier interface {
	Fanout(ctx context.Context, event Event) error
}

// AnnouncementService handles the announcement feed: role-scoped listing,
// authoring, reactions and comments.
type AnnouncementService struct {
	repo      announcementRepository
	directory *DirectoryService
	media     storage.MediaStore
	notifier  announcementNotifier
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(repo announcementRepository, directory *DirectoryService, media storage.MediaStore, notifier announcementNotifier, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{
		repo:      repo,
		directory: directory,
		media:     media,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
	}
}

// List returns the page of announcements the viewer is entitled to see.
// Entitlement misses surface as empty pages, never as errors.
func (s *AnnouncementService) List(ctx context.Context, viewer *models.User, filter dto.AnnouncementFilter) ([]dto.AnnouncementItem, *models.Pagination, error) {
	vis, err := s.directory.ViewerFor(ctx, viewer)
	if err != nil {
		return nil, nil, err
	}

	params := visibility.Params{
		Batch:   filter.Batch,
		Section: filter.Section,
		Role:    filter.Role,
	}
	if filter.Role != "" && filter.Role != models.SectionAll {
		authorIDs, err := s.directory.RoleAuthorIDs(ctx, filter.Role)
		if err != nil {
			return nil, nil, err
		}
		params.RoleAuthorIDs = authorIDs
	}

	scope := visibility.Build(vis, params)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Limit
	if size <= 0 {
		size = 20
	}
	filter.Page = page
	filter.Limit = size

	items, total, err := s.repo.List(ctx, scope, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list announcements")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return items, pagination, nil
}

// Create persists a new announcement and notifies its audience. Media is
// uploaded before the row is written so a storage failure never leaves a
// half-written post.
func (s *AnnouncementService) Create(ctx context.Context, author *models.User, req dto.CreateAnnouncementRequest, files []storage.MediaFile) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	announcement := &models.Announcement{
		Description:              req.Description,
		Section:                  req.Section,
		CreatedBy:                author.ID,
		CreatedByRole:            author.Role,
		RestrictToTeacherBatches: req.RestrictToTeacherBatches,
	}
	if announcement.Section == "" {
		announcement.Section = author.Section
		if announcement.Section == "" {
			announcement.Section = models.SectionAll
		}
	}

	var audience []string
	if req.BatchID != "" {
		snapshot, err := s.directory.Snapshot(ctx, req.BatchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch")
		}
		batchID := snapshot.ID
		announcement.BatchID = &batchID
		announcement.BatchName = snapshot.Name
		// A batch post cannot also carry the teacher-batch restriction.
		announcement.RestrictToTeacherBatches = false
		audience = snapshot.StudentIDs
	} else {
		students, err := s.directory.StudentIDs(ctx, announcement.Section)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve audience")
		}
		audience = students
	}

	urls, err := s.media.UploadMany(ctx, files)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "media upload failed")
	}
	announcement.Media = urls

	if err := s.repo.Create(ctx, announcement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create announcement")
	}

	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationAnnouncement,
		Title:      "New announcement",
		Message:    truncate(announcement.Description, 200),
		SenderID:   author.ID,
		RelatedID:  announcement.ID,
		Recipients: audience,
	}); err != nil {
		return nil, err
	}
	return announcement, nil
}

// Get returns one announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*models.Announcement, error) {
	announcement, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "announcement not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to get announcement")
	}
	return announcement, nil
}

// Update modifies the description. Only the author may edit.
func (s *AnnouncementService) Update(ctx context.Context, actor *models.User, id string, req dto.UpdateAnnouncementRequest) (*models.Announcement, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	announcement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if announcement.CreatedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author may edit an announcement")
	}
	if err := s.repo.UpdateDescription(ctx, id, req.Description); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update announcement")
	}
	announcement.Description = req.Description
	return announcement, nil
}

// Delete removes an announcement. Only the author may delete.
func (s *AnnouncementService) Delete(ctx context.Context, actor *models.User, id string) error {
	announcement, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if announcement.CreatedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author may delete an announcement")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete announcement")
	}
	return nil
}

// React toggles the actor's like or dislike. The repository guarantees the
// two sets stay disjoint per user.
func (s *AnnouncementService) React(ctx context.Context, actorID, id string, kind models.ReactionKind) error {
	if kind != models.ReactionLike && kind != models.ReactionDislike {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown reaction %q", kind))
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.React(ctx, id, actorID, kind); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record reaction")
	}
	return nil
}

// Comment appends a comment and notifies the announcement author.
func (s *AnnouncementService) Comment(ctx context.Context, actor *models.User, id string, req dto.CommentRequest) (*models.AnnouncementComment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	announcement, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	comment := &models.AnnouncementComment{
		AnnouncementID: id,
		AuthorID:       actor.ID,
		AuthorName:     actor.FullName,
		Text:           req.Text,
	}
	if err := s.repo.AddComment(ctx, comment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create comment")
	}

	if err := s.notifier.Fanout(ctx, Event{
		Type:       models.NotificationComment,
		Title:      "New comment",
		Message:    fmt.Sprintf("%s commented: %s", actor.FullName, truncate(req.Text, 150)),
		SenderID:   actor.ID,
		RelatedID:  id,
		Recipients: []string{announcement.CreatedBy},
	}); err != nil {
		return nil, err
	}
	return comment, nil
}

// Comments returns one page of an announcement's comments.
func (s *AnnouncementService) Comments(ctx context.Context, id string, page, size int) ([]models.AnnouncementComment, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	rows, total, err := s.repo.ListComments(ctx, id, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list comments")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
