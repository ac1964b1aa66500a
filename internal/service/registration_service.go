package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxPartySize     = 50
	maxCommentLength = 2000
)

// RegistrationService manages event registrations and attendee feedback.
type RegistrationService struct {
	events        repository.EventRepository
	interests     repository.InterestRepository
	feedback      repository.FeedbackRepository
	notifications repository.NotificationRepository
	publisher     Publisher
	opts          Options
}

func NewRegistrationService(
	events repository.EventRepository,
	interests repository.InterestRepository,
	feedback repository.FeedbackRepository,
	notifications repository.NotificationRepository,
	publisher Publisher,
	opts Options,
) *RegistrationService {
	return &RegistrationService{
		events:        events,
		interests:     interests,
		feedback:      feedback,
		notifications: notifications,
		publisher:     publisherOrNoop(publisher),
		opts:          opts,
	}
}

type RegisterInput struct {
	EventID        uint
	UserID         uint
	NumberOfPeople int
}

func (in *RegisterInput) validate() error {
	if in.EventID == 0 || in.UserID == 0 {
		return models.NewValidationError("event and user are required")
	}
	if in.NumberOfPeople == 0 {
		in.NumberOfPeople = 1
	}
	if in.NumberOfPeople < 0 || in.NumberOfPeople > maxPartySize {
		return models.NewValidationError(fmt.Sprintf("number_of_people must be between 1 and %d", maxPartySize))
	}
	return nil
}

// Register signs a user up for an event and tells the organizer.
func (s *RegistrationService) Register(ctx context.Context, in RegisterInput) (interest *models.Interest, err error) {
	ctx, span := observability.StartSpan(ctx, "RegistrationService.Register", attribute.Int64("event.id", int64(in.EventID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	interest, err = s.interests.Register(ctx, in.EventID, in.UserID, in.NumberOfPeople, s.opts.now())
	if err != nil {
		return nil, err
	}
	s.notifyOrganizer(ctx, interest)
	return interest, nil
}

// UpdateRegistration changes the party size. Returns nil, nil when the user
// is not registered.
func (s *RegistrationService) UpdateRegistration(ctx context.Context, in RegisterInput) (interest *models.Interest, err error) {
	ctx, span := observability.StartSpan(ctx, "RegistrationService.UpdateRegistration", attribute.Int64("event.id", int64(in.EventID)))
	defer func() { observability.EndSpan(span, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	return s.interests.UpdateRegistration(ctx, in.EventID, in.UserID, in.NumberOfPeople, s.opts.now())
}

// Unregister reports whether a registration was removed.
func (s *RegistrationService) Unregister(ctx context.Context, eventID, userID uint) (removed bool, err error) {
	ctx, span := observability.StartSpan(ctx, "RegistrationService.Unregister", attribute.Int64("event.id", int64(eventID)))
	defer func() { observability.EndSpan(span, err) }()

	if eventID == 0 || userID == 0 {
		return false, models.NewValidationError("event and user are required")
	}
	return s.interests.Unregister(ctx, eventID, userID)
}

// ToggleRegistration registers a party of one or removes the registration.
func (s *RegistrationService) ToggleRegistration(ctx context.Context, eventID, userID uint) (res *repository.RegistrationToggle, err error) {
	ctx, span := observability.StartSpan(ctx, "RegistrationService.ToggleRegistration", attribute.Int64("event.id", int64(eventID)))
	defer func() { observability.EndSpan(span, err) }()

	if eventID == 0 || userID == 0 {
		return nil, models.NewValidationError("event and user are required")
	}
	res, err = s.interests.ToggleRegistration(ctx, eventID, userID, s.opts.now())
	if err != nil {
		return nil, err
	}
	if res.State && res.Interest != nil {
		s.notifyOrganizer(ctx, res.Interest)
	}
	return res, nil
}

func (s *RegistrationService) ListRegistrations(ctx context.Context, eventID uint) ([]models.Interest, error) {
	return s.interests.ListByEvent(ctx, eventID)
}

func (s *RegistrationService) ListUserRegistrations(ctx context.Context, userID uint) ([]models.Interest, error) {
	return s.interests.ListByUser(ctx, userID)
}

type FeedbackInput struct {
	EventID uint
	UserID  uint
	Rating  int
	Comment string
}

// FeedbackSummary aggregates the feedback left for one event.
type FeedbackSummary struct {
	EventID       uint                   `json:"event_id"`
	AverageRating float64                `json:"average_rating"`
	Count         int64                  `json:"count"`
	Items         []models.EventFeedback `json:"items"`
}

// SubmitFeedback stores one rating per user per event.
func (s *RegistrationService) SubmitFeedback(ctx context.Context, in FeedbackInput) (fb *models.EventFeedback, err error) {
	ctx, span := observability.StartSpan(ctx, "RegistrationService.SubmitFeedback", attribute.Int64("event.id", int64(in.EventID)))
	defer func() { observability.EndSpan(span, err) }()

	if in.EventID == 0 || in.UserID == 0 {
		return nil, models.NewValidationError("event and user are required")
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, models.NewValidationError("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(in.Comment)
	if len(comment) > maxCommentLength {
		return nil, models.NewValidationError("comment too long")
	}

	fb = &models.EventFeedback{EventID: in.EventID, UserID: in.UserID, Rating: in.Rating, Comment: comment}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, err
	}
	return fb, nil
}

func (s *RegistrationService) FeedbackSummary(ctx context.Context, eventID uint) (*FeedbackSummary, error) {
	avg, count, err := s.feedback.AverageRating(ctx, eventID)
	if err != nil {
		return nil, err
	}
	items, err := s.feedback.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.EventFeedback{}
	}
	return &FeedbackSummary{EventID: eventID, AverageRating: avg, Count: count, Items: items}, nil
}

func (s *RegistrationService) notifyOrganizer(ctx context.Context, interest *models.Interest) {
	event, err := s.events.FindByID(ctx, interest.EventID, nil)
	if err != nil || event == nil || event.OrganizerID == interest.UserID {
		return
	}

	note := models.Notification{
		UserID:      event.OrganizerID,
		Type:        models.NotificationEventRegistration,
		Message:     fmt.Sprintf("%s registered %d for %q", interest.UserName, interest.NumberOfPeople, event.Title),
		ContentType: models.ContentTypeEvent,
		ContentID:   event.ID,
	}
	notes := []models.Notification{note}
	if err := s.notifications.CreateBatch(ctx, notes); err != nil {
		observability.Logger.WarnContext(ctx, "storing registration notification failed", slog.String("error", err.Error()))
		return
	}
	if err := s.publisher.PublishNotifications(ctx, notes); err != nil {
		observability.Logger.WarnContext(ctx, "registration notification publish failed", slog.String("error", err.Error()))
	}
}
