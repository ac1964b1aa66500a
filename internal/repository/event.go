package repository

import (
	"context"
	"fmt"

	"civicboard/internal/cache"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// EventRepository defines the interface for event data operations
type EventRepository interface {
	FindMany(ctx context.Context, opts ListOptions) (*ListResult[*models.Event], error)
	FindByID(ctx context.Context, id uint, include []string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event, photos []models.EventPhoto) error
	Update(ctx context.Context, id uint, updates map[string]any) (*models.Event, error)
	Delete(ctx context.Context, id uint) error
}

// eventRepository implements EventRepository
type eventRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *observability.RepoLogger
}

// NewEventRepository creates a new event repository. c may be nil.
func NewEventRepository(db *gorm.DB, c *cache.Cache) EventRepository {
	return &eventRepository{db: db, cache: c, log: observability.NewRepoLogger("events")}
}

func (r *eventRepository) FindMany(ctx context.Context, opts ListOptions) (*ListResult[*models.Event], error) {
	in, err := ParseIncludes(models.ContentTypeEvent, opts.Include)
	if err != nil {
		return nil, err
	}
	res, err := findMany[*models.Event](ctx, r.db, &models.Event{}, EventSchema, opts)
	if err != nil {
		return nil, err
	}
	if err := resolveEventIncludes(ctx, r.db, res.Records, in); err != nil {
		return nil, err
	}
	return res, nil
}

// FindByID returns nil, nil when the event does not exist. The base row is
// served from cache; relations are always resolved fresh.
func (r *eventRepository) FindByID(ctx context.Context, id uint, include []string) (*models.Event, error) {
	in, err := ParseIncludes(models.ContentTypeEvent, include)
	if err != nil {
		return nil, err
	}

	var event models.Event
	err = r.cache.Aside(ctx, cache.EventKey(id), &event, cache.ContentTTL, func() error {
		return r.db.WithContext(ctx).First(&event, id).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find event", err)
	}

	if err := resolveEventIncludes(ctx, r.db, []*models.Event{&event}, in); err != nil {
		return nil, err
	}
	return &event, nil
}

// Create inserts the event and its photos atomically.
func (r *eventRepository) Create(ctx context.Context, event *models.Event, photos []models.EventPhoto) error {
	defer observability.TrackQuery("create", "events")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if len(photos) == 0 {
			return nil
		}
		for i := range photos {
			photos[i].ID = 0
			photos[i].EventID = event.ID
		}
		if err := tx.Create(&photos).Error; err != nil {
			return err
		}
		event.Photos = photos
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return storageError("create event", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": event.ID, "organizer_id": event.OrganizerID})
	return nil
}

// Update applies column updates and returns the fresh row, or nil, nil when
// the event does not exist.
func (r *eventRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.Event, error) {
	defer observability.TrackQuery("update", "events")()

	var event models.Event
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&event, id).Error; err != nil {
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&event).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&event, id).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return nil, storageError("update event", err)
	}

	r.cache.Invalidate(ctx, cache.EventKey(id))
	r.log.LogUpdate(ctx, map[string]any{"id": id, "fields": len(updates)})
	return &event, nil
}

// Delete removes the event and everything referencing it in one transaction.
func (r *eventRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "events")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Event{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("event", id)
		}
		children := []any{
			&models.EventPhoto{},
			&models.EventVote{},
			&models.EventFollower{},
			&models.EventFeedback{},
			&models.Interest{},
		}
		for _, child := range children {
			if err := tx.Where("event_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("delete %T: %w", child, err)
			}
		}
		return deleteContentReferences(tx, models.ContentTypeEvent, id)
	})
	if err != nil {
		if !models.IsNotFound(err) {
			r.log.LogError(ctx, err, "delete")
		}
		return storageError("delete event", err)
	}

	r.cache.Invalidate(ctx, cache.EventKey(id))
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}

// deleteContentReferences removes polymorphic rows pointing at the content.
func deleteContentReferences(tx *gorm.DB, ct models.ContentType, id uint) error {
	if err := tx.Where("content_type = ? AND content_id = ?", ct, id).Delete(&models.ViolationReport{}).Error; err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}
	if err := tx.Where("content_type = ? AND content_id = ?", ct, id).Delete(&models.Notification{}).Error; err != nil {
		return fmt.Errorf("delete notifications: %w", err)
	}
	return nil
}
