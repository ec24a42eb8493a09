package domain

import "time"

// NotificationType classifies an in-app notification.
type NotificationType string

// Notification types.
const (
	NotificationReviewRequested NotificationType = "review_requested"
	NotificationReviewDecision  NotificationType = "review_decision"
	NotificationReviewStarted   NotificationType = "review_started"
	NotificationReopened        NotificationType = "reopened"
)

// Notification is a write-once message addressed to a user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Payload   map[string]any   `json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
}
