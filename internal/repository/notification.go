package repository

import (
	"context"

	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/query"

	"gorm.io/gorm"
)

// NotificationRepository stores in-app notifications.
type NotificationRepository interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListForUser(ctx context.Context, userID uint, unreadOnly bool, page query.Page) (*ListResult[*models.Notification], error)
	MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error)
}

type notificationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db, log: observability.NewRepoLogger("notifications")}
}

func (r *notificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).CreateInBatches(&notifications, 100).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return storageError("create notifications", err)
	}
	return nil
}

func (r *notificationRepository) ListForUser(ctx context.Context, userID uint, unreadOnly bool, page query.Page) (*ListResult[*models.Notification], error) {
	page = page.Normalized()
	base := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		base = base.Where("is_read = ?", false)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, storageError("count notifications", err)
	}
	var rows []*models.Notification
	err := base.Session(&gorm.Session{}).
		Order(query.DefaultSort.Clause()).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, storageError("list notifications", err)
	}
	return newListResult(rows, total, page), nil
}

// MarkRead marks the given notifications read; an empty ids marks all of the
// user's notifications. Other users' rows are never touched.
func (r *notificationRepository) MarkRead(ctx context.Context, userID uint, ids []uint) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Update("is_read", true)
	if res.Error != nil {
		return 0, storageError("mark notifications read", res.Error)
	}
	return res.RowsAffected, nil
}
