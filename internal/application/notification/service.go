package notification

import (
	"context"
	"fmt"

	"github.com/lostfound-api/internal/domain"
)

// Service is the recipient-facing inbox. Every operation is scoped to the
// caller; touching someone else's notification is ErrForbidden.
type Service interface {
	List(ctx context.Context, caller domain.Caller, f domain.NotificationFilter) ([]domain.Notification, string, error)
	UnreadCount(ctx context.Context, caller domain.Caller) (int, error)
	MarkAsRead(ctx context.Context, caller domain.Caller, notificationID string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, caller domain.Caller) (int, error)
	Delete(ctx context.Context, caller domain.Caller, notificationID string) error
}

type notificationStore interface {
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByRecipient(ctx context.Context, userID string, f domain.NotificationFilter) ([]domain.Notification, string, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID string) error
}

type service struct {
	repo notificationStore
}

func NewService(repo notificationStore) Service {
	return &service{repo: repo}
}

func (s *service) List(ctx context.Context, caller domain.Caller, f domain.NotificationFilter) ([]domain.Notification, string, error) {
	f.Limit = domain.ClampLimit(f.Limit)
	return s.repo.ListByRecipient(ctx, caller.UserID, f)
}

func (s *service) UnreadCount(ctx context.Context, caller domain.Caller) (int, error) {
	return s.repo.CountUnread(ctx, caller.UserID)
}

func (s *service) MarkAsRead(ctx context.Context, caller domain.Caller, notificationID string) (*domain.Notification, error) {
	n, err := s.owned(ctx, caller, notificationID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	n.IsRead = true
	return n, nil
}

func (s *service) MarkAllRead(ctx context.Context, caller domain.Caller) (int, error) {
	return s.repo.MarkAllRead(ctx, caller.UserID)
}

func (s *service) Delete(ctx context.Context, caller domain.Caller, notificationID string) error {
	if _, err := s.owned(ctx, caller, notificationID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, notificationID)
}

func (s *service) owned(ctx context.Context, caller domain.Caller, notificationID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientUserID != caller.UserID {
		return nil, fmt.Errorf("notification belongs to another user: %w", domain.ErrForbidden)
	}
	return n, nil
}
