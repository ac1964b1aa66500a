package repository

import (
	"context"

	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// FeedbackRepository stores post-event ratings.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *models.EventFeedback) error
	ListByEvent(ctx context.Context, eventID uint) ([]models.EventFeedback, error)
	AverageRating(ctx context.Context, eventID uint) (float64, int64, error)
}

type feedbackRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db, log: observability.NewRepoLogger("event_feedback")}
}

// Create stores feedback; a second entry from the same user is a Conflict.
func (r *feedbackRepository) Create(ctx context.Context, feedback *models.EventFeedback) error {
	exists, err := contentExists(ctx, r.db, models.ContentTypeEvent, feedback.EventID)
	if err != nil {
		return err
	}
	if !exists {
		return models.NewNotFoundError("event", feedback.EventID)
	}

	if err := r.db.WithContext(ctx).Create(feedback).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("feedback already submitted for this event")
		}
		r.log.LogError(ctx, err, "create")
		return storageError("create feedback", err)
	}
	r.log.LogCreate(ctx, map[string]any{"event_id": feedback.EventID, "rating": feedback.Rating})
	return nil
}

func (r *feedbackRepository) ListByEvent(ctx context.Context, eventID uint) ([]models.EventFeedback, error) {
	var rows []models.EventFeedback
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, storageError("list feedback", err)
	}
	return orEmpty(rows), nil
}

// AverageRating returns the mean rating and the number of ratings.
func (r *feedbackRepository) AverageRating(ctx context.Context, eventID uint) (float64, int64, error) {
	var agg struct {
		Average float64
		Count   int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.EventFeedback{}).
		Select("COALESCE(AVG(rating), 0) AS average, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Scan(&agg).Error
	if err != nil {
		return 0, 0, storageError("average feedback", err)
	}
	return agg.Average, agg.Count, nil
}
