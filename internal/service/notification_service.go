package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/airconnect-api/internal/dto"
	"github.com/noah-isme/airconnect-api/internal/models"
	appErrors "github.com/noah-isme/airconnect-api/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, page, size int) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id, recipientID string) error
	MarkAllRead(ctx context.Context, recipientID string) error
}

type livePusher interface {
	PushToUser(userID string, payload interface{}) error
}

// NotificationService persists notifications and fans them out to live
// channels. Persistence failures propagate; the live-push leg never does.
type NotificationService struct {
	repo    notificationRepository
	pusher  livePusher
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, pusher livePusher, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, pusher: pusher, metrics: metrics, logger: logger}
}

// Event is one state change to fan out. Recipients are computed by the
// triggering service; duplicates and the sender itself are dropped here.
type Event struct {
	Type       models.NotificationType
	Title      string
	Message    string
	SenderID   string
	RelatedID  string
	Recipients []string
}

// Fanout creates one notification per recipient. Each creation is attempted
// independently; failures are collected and returned in aggregate so one bad
// recipient never voids the rest. The live-push leg is fired only for rows
// that persisted.
func (s *NotificationService) Fanout(ctx context.Context, event Event) error {
	seen := make(map[string]struct{}, len(event.Recipients))
	var errs []error
	created := 0

	for _, recipientID := range event.Recipients {
		if recipientID == "" || recipientID == event.SenderID {
			continue
		}
		if _, dup := seen[recipientID]; dup {
			continue
		}
		seen[recipientID] = struct{}{}

		notification := &models.Notification{
			RecipientID: recipientID,
			SenderID:    event.SenderID,
			Type:        event.Type,
			Title:       event.Title,
			Message:     event.Message,
			RelatedID:   event.RelatedID,
		}
		if err := s.repo.Create(ctx, notification); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", recipientID, err))
			continue
		}
		created++
		s.push(recipientID, event)
	}

	if s.metrics != nil {
		s.metrics.RecordFanout(created, len(errs))
	}
	if err := errors.Join(errs...); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("fan-out failed for %d of %d recipients", len(errs), created+len(errs)))
	}
	return nil
}

// push delivers the live leg. Best effort: any failure is logged and dropped.
func (s *NotificationService) push(recipientID string, event Event) {
	if s.pusher == nil {
		return
	}
	payload := dto.PushMessage{
		Type:      event.Type,
		Title:     event.Title,
		Message:   event.Message,
		SenderID:  event.SenderID,
		RelatedID: event.RelatedID,
	}
	if err := s.pusher.PushToUser(recipientID, payload); err != nil {
		if s.metrics != nil {
			s.metrics.RecordPush(false)
		}
		s.logger.Warn("live push failed",
			zap.String("recipient_id", recipientID), zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.RecordPush(true)
	}
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string, filter dto.NotificationFilter) ([]models.Notification, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.Limit
	if size <= 0 {
		size = 20
	}
	rows, total, err := s.repo.ListForRecipient(ctx, recipientID, filter.UnreadOnly, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	return rows, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UnreadCount returns the recipient's unread badge count.
func (s *NotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return count, nil
}

// MarkRead acknowledges one notification for the recipient.
func (s *NotificationService) MarkRead(ctx context.Context, id, recipientID string) error {
	if err := s.repo.MarkRead(ctx, id, recipientID); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// MarkAllRead acknowledges everything unread for the recipient.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	if err := s.repo.MarkAllRead(ctx, recipientID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return nil
}
