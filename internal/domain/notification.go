package domain

import (
	"fmt"
	"time"
)

type NotificationType int

const (
	NotificationSystem NotificationType = iota
	NotificationApplication
	NotificationAudit
)

func ParseNotificationType(code int) (NotificationType, error) {
	switch NotificationType(code) {
	case NotificationSystem, NotificationApplication, NotificationAudit:
		return NotificationType(code), nil
	}
	return 0, fmt.Errorf("unknown notification type %d: %w", code, ErrValidation)
}

func (t NotificationType) String() string {
	switch t {
	case NotificationSystem:
		return "system"
	case NotificationApplication:
		return "application"
	case NotificationAudit:
		return "audit"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

type Notification struct {
	NotificationID  string           `json:"id" dynamodbav:"notification_id"`
	RecipientUserID string           `json:"recipient_user_id" dynamodbav:"user_id"`
	Title           string           `json:"title" dynamodbav:"title"`
	Content         string           `json:"content" dynamodbav:"content"`
	Type            NotificationType `json:"type" dynamodbav:"type"`
	RelatedID       string           `json:"related_id,omitempty" dynamodbav:"related_id,omitempty"`
	IsRead          bool             `json:"is_read" dynamodbav:"is_read"`
	CreatedAt       time.Time        `json:"created" dynamodbav:"created_at"`
}

// NotificationFilter narrows a recipient's inbox listing.
type NotificationFilter struct {
	Type   *NotificationType
	Limit  int32
	Cursor string
}
