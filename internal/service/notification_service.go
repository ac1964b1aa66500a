package service

import (
	"context"

	"civicboard/internal/models"
	"civicboard/internal/query"
	"civicboard/internal/repository"
)

type NotificationService struct {
	notifications repository.NotificationRepository
	opts          Options
}

func NewNotificationService(notifications repository.NotificationRepository, opts Options) *NotificationService {
	return &NotificationService{notifications: notifications, opts: opts}
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page query.Page) (*repository.ListResult[*models.Notification], error) {
	if userID == 0 {
		return nil, models.NewValidationError("user id is required")
	}
	return s.notifications.ListForUser(ctx, userID, unreadOnly, s.opts.page(page))
}

// MarkRead marks ids (or every notification when ids is empty) as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	if userID == 0 {
		return 0, models.NewValidationError("user id is required")
	}
	return s.notifications.MarkRead(ctx, userID, ids)
}
