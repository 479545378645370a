package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/airconnect-api/internal/models"
)

// NotificationRepository persists per-recipient notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts one recipient's notification. Callers fanning out to many
// recipients call this per recipient so one failure cannot abort the rest.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO notifications (id, recipient_id, sender_id, type, title, message, related_id, read, created_at)
VALUES (:id, :recipient_id, :sender_id, :type, :title, :message, :related_id, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, q, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListForRecipient returns the recipient's notifications, newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipientID string, unreadOnly bool, page, size int) ([]models.Notification, int, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	where := "recipient_id = $1"
	if unreadOnly {
		where += " AND NOT read"
	}

	query := fmt.Sprintf(`SELECT id, recipient_id, sender_id, type, title, message, related_id, read, created_at
FROM notifications WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, where, size, offset)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notifications WHERE %s", where)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, recipientID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	return notifications, total, nil
}

// CountUnread returns the recipient's unread badge count.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	const q = `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT read`
	if err := r.db.GetContext(ctx, &count, q, recipientID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one notification as read. The recipient check keeps users
// from acknowledging someone else's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	const q = `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_id = $2`
	result, err := r.db.ExecContext(ctx, q, id, recipientID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("notification %s not found for recipient", id)
	}
	return nil
}

// MarkAllRead flags every unread notification of the recipient as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	const q = `UPDATE notifications SET read = TRUE WHERE recipient_id = $1 AND NOT read`
	if _, err := r.db.ExecContext(ctx, q, recipientID); err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
