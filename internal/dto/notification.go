package dto

import "github.com/noah-isme/airconnect-api/internal/models"

// PushMessage is the payload delivered on a user's live channel. It mirrors
// the persisted notification so clients can render either source the same
// way.
type PushMessage struct {
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	SenderID  string                  `json:"sender_id"`
	RelatedID string                  `json:"related_id"`
}

// NotificationFilter pages through a recipient's notifications.
type NotificationFilter struct {
	UnreadOnly bool
	Page       int
	Limit      int
}
