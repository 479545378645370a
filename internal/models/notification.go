package models

import "time"

// NotificationType tags what kind of state change produced a notification.
type NotificationType string

const (
	NotificationAnnouncement         NotificationType = "ANNOUNCEMENT"
	NotificationJob                  NotificationType = "JOB"
	NotificationComment              NotificationType = "COMMENT"
	NotificationSystem               NotificationType = "SYSTEM"
	NotificationApplicationSubmitted NotificationType = "APPLICATION_SUBMITTED"
	NotificationAdvisorAction        NotificationType = "APPLICATION_ADVISOR_ACTION"
	NotificationCoordinatorAction    NotificationType = "APPLICATION_COORDINATOR_ACTION"
)

// Notification is created only as a side effect of another entity's state
// change; after creation only the read flag is ever mutated.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipient_id"`
	SenderID    string           `db:"sender_id" json:"sender_id"`
	Type        NotificationType `db:"type" json:"type"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	RelatedID   string           `db:"related_id" json:"related_id"`
	Read        bool             `db:"read" json:"read"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}
