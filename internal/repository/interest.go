package repository

import (
	"context"
	"time"

	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RegistrationToggle is the outcome of ToggleRegistration.
type RegistrationToggle struct {
	State    bool             `json:"state"`
	Interest *models.Interest `json:"registration,omitempty"`
}

// InterestRepository manages event registrations.
type InterestRepository interface {
	Register(ctx context.Context, eventID, userID uint, numberOfPeople int, now time.Time) (*models.Interest, error)
	UpdateRegistration(ctx context.Context, eventID, userID uint, numberOfPeople int, now time.Time) (*models.Interest, error)
	Unregister(ctx context.Context, eventID, userID uint) (bool, error)
	ToggleRegistration(ctx context.Context, eventID, userID uint, now time.Time) (*RegistrationToggle, error)
	Find(ctx context.Context, eventID, userID uint) (*models.Interest, error)
	ListByEvent(ctx context.Context, eventID uint) ([]models.Interest, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Interest, error)
}

type interestRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewInterestRepository creates a new interest repository
func NewInterestRepository(db *gorm.DB) InterestRepository {
	return &interestRepository{db: db, log: observability.NewRepoLogger("interests")}
}

// Register records a new registration. It snapshots the user's contact
// details, enforces the registration window and capacity, and returns a
// Conflict when the user is already registered or the event is full.
func (r *interestRepository) Register(ctx context.Context, eventID, userID uint, numberOfPeople int, now time.Time) (*models.Interest, error) {
	defer observability.TrackQuery("register", "interests")()

	var interest *models.Interest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, user, err := loadRegistrationParties(tx, eventID, userID)
		if err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&models.Interest{}).Where("event_id = ? AND user_id = ?", eventID, userID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return models.NewConflictError("already registered for this event")
		}
		if err := checkRegistrationOpen(event, now); err != nil {
			return err
		}
		if err := checkCapacity(tx, event, userID, numberOfPeople); err != nil {
			return err
		}

		interest = newInterest(event, user, numberOfPeople, "")
		if err := tx.Create(interest).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return models.NewConflictError("already registered for this event")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storageError("register", err)
	}
	r.log.LogCreate(ctx, map[string]any{"event_id": eventID, "user_id": userID, "people": numberOfPeople})
	return interest, nil
}

// UpdateRegistration replaces an existing registration with a freshly
// snapshotted one. The delete and the recreate share a transaction, so a
// failure leaves the original registration in place. Returns nil, nil when
// the user is not registered.
func (r *interestRepository) UpdateRegistration(ctx context.Context, eventID, userID uint, numberOfPeople int, now time.Time) (*models.Interest, error) {
	defer observability.TrackQuery("update_registration", "interests")()

	var interest *models.Interest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		event, user, err := loadRegistrationParties(tx, eventID, userID)
		if err != nil {
			return err
		}

		var current models.Interest
		if err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).First(&current).Error; err != nil {
			return err
		}
		if err := checkRegistrationOpen(event, now); err != nil {
			return err
		}
		if err := checkCapacity(tx, event, userID, numberOfPeople); err != nil {
			return err
		}

		if err := tx.Delete(&current).Error; err != nil {
			return err
		}
		interest = newInterest(event, user, numberOfPeople, current.PaymentStatus)
		interest.CreatedAt = current.CreatedAt
		return tx.Create(interest).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("update registration", err)
	}
	r.log.LogUpdate(ctx, map[string]any{"event_id": eventID, "user_id": userID, "people": numberOfPeople})
	return interest, nil
}

// Unregister deletes the registration and reports whether one existed.
func (r *interestRepository) Unregister(ctx context.Context, eventID, userID uint) (bool, error) {
	defer observability.TrackQuery("unregister", "interests")()

	res := r.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).Delete(&models.Interest{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "unregister")
		return false, storageError("unregister", res.Error)
	}
	if res.RowsAffected > 0 {
		r.log.LogDelete(ctx, map[string]any{"event_id": eventID, "user_id": userID})
	}
	return res.RowsAffected > 0, nil
}

// ToggleRegistration unregisters when registered, otherwise registers one
// person. Losing a registration race resolves to "on".
func (r *interestRepository) ToggleRegistration(ctx context.Context, eventID, userID uint, now time.Time) (*RegistrationToggle, error) {
	removed, err := r.Unregister(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if removed {
		return &RegistrationToggle{State: false}, nil
	}

	interest, err := r.Register(ctx, eventID, userID, 1, now)
	if models.IsConflict(err) {
		if existing, findErr := r.Find(ctx, eventID, userID); findErr == nil && existing != nil {
			return &RegistrationToggle{State: true, Interest: existing}, nil
		}
	}
	if err != nil {
		return nil, err
	}
	return &RegistrationToggle{State: true, Interest: interest}, nil
}

// Find returns nil, nil when the user is not registered.
func (r *interestRepository) Find(ctx context.Context, eventID, userID uint) (*models.Interest, error) {
	var interest models.Interest
	err := r.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).First(&interest).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find registration", err)
	}
	return &interest, nil
}

func (r *interestRepository) ListByEvent(ctx context.Context, eventID uint) ([]models.Interest, error) {
	var rows []models.Interest
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC, id ASC").Find(&rows).Error
	if err != nil {
		return nil, storageError("list registrations", err)
	}
	return orEmpty(rows), nil
}

func (r *interestRepository) ListByUser(ctx context.Context, userID uint) ([]models.Interest, error) {
	var rows []models.Interest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Find(&rows).Error
	if err != nil {
		return nil, storageError("list registrations", err)
	}
	return orEmpty(rows), nil
}

// loadRegistrationParties locks the event row (where supported) so capacity
// checks serialize per event.
func loadRegistrationParties(tx *gorm.DB, eventID, userID uint) (*models.Event, *models.User, error) {
	var event models.Event
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventID).Error
	if isNotFound(err) {
		return nil, nil, models.NewNotFoundError("event", eventID)
	}
	if err != nil {
		return nil, nil, err
	}
	var user models.User
	err = tx.First(&user, userID).Error
	if isNotFound(err) {
		return nil, nil, models.NewNotFoundError("user", userID)
	}
	if err != nil {
		return nil, nil, err
	}
	return &event, &user, nil
}

func checkRegistrationOpen(event *models.Event, now time.Time) error {
	if event.RegistrationStart != nil && now.Before(*event.RegistrationStart) {
		return models.NewValidationError("registration has not opened yet")
	}
	if event.RegistrationEnd != nil && now.After(*event.RegistrationEnd) {
		return models.NewValidationError("registration is closed")
	}
	return nil
}

// checkCapacity verifies the event can seat numberOfPeople more, ignoring
// userID's current registration (it is being replaced).
func checkCapacity(tx *gorm.DB, event *models.Event, userID uint, numberOfPeople int) error {
	if event.MaxAttendees == nil {
		return nil
	}
	var taken int64
	err := tx.Model(&models.Interest{}).
		Where("event_id = ? AND user_id <> ?", event.ID, userID).
		Select("COALESCE(SUM(number_of_people), 0)").
		Row().Scan(&taken)
	if err != nil {
		return err
	}
	if taken+int64(numberOfPeople) > int64(*event.MaxAttendees) {
		return models.NewConflictError("event is at capacity")
	}
	return nil
}

func newInterest(event *models.Event, user *models.User, numberOfPeople int, payment models.PaymentStatus) *models.Interest {
	if payment == "" {
		payment = models.PaymentNotRequired
		if event.IsPaid {
			payment = models.PaymentPending
		}
	}
	return &models.Interest{
		UserID:         user.ID,
		EventID:        event.ID,
		NumberOfPeople: numberOfPeople,
		UserName:       user.Name,
		UserEmail:      user.Email,
		UserPhone:      user.Phone,
		PaymentStatus:  payment,
	}
}
