package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 10000
)

// ContentService is the call interface over events and issues.
type ContentService struct {
	events        repository.EventRepository
	issues        repository.IssueRepository
	toggles       repository.ToggleRepository
	notifications repository.NotificationRepository
	publisher     Publisher
	opts          Options
}

// NewContentService wires a ContentService. publisher may be nil.
func NewContentService(
	events repository.EventRepository,
	issues repository.IssueRepository,
	toggles repository.ToggleRepository,
	notifications repository.NotificationRepository,
	publisher Publisher,
	opts Options,
) *ContentService {
	return &ContentService{
		events:        events,
		issues:        issues,
		toggles:       toggles,
		notifications: notifications,
		publisher:     publisherOrNoop(publisher),
		opts:          opts,
	}
}

// PhotoInput is an image attached when content is created.
type PhotoInput struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type CreateEventInput struct {
	OrganizerID       uint
	Title             string
	Description       string
	Location          string
	Latitude          float64
	Longitude         float64
	StartDate         time.Time
	EndDate           *time.Time
	Category          string
	IsUrgent          bool
	IsPaid            bool
	TicketPrice       *float64
	MaxAttendees      *int
	RegistrationStart *time.Time
	RegistrationEnd   *time.Time
	Photos            []PhotoInput
}

// EventPatch lists the mutable event fields; nil means unchanged. Upvotes is
// deliberately absent: only the counter materializer writes it.
type EventPatch struct {
	Title             *string    `json:"title"`
	Description       *string    `json:"description"`
	Location          *string    `json:"location"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	StartDate         *time.Time `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
	Category          *string    `json:"category"`
	IsUrgent          *bool      `json:"is_urgent"`
	IsApproved        *bool      `json:"is_approved"`
	IsFlagged         *bool      `json:"is_flagged"`
	IsPaid            *bool      `json:"is_paid"`
	TicketPrice       *float64   `json:"ticket_price"`
	MaxAttendees      *int       `json:"max_attendees"`
	RegistrationStart *time.Time `json:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end"`
}

type CreateIssueInput struct {
	ReporterID  *uint
	Title       string
	Description string
	Category    string
	Location    string
	Latitude    *float64
	Longitude   *float64
	IsAnonymous bool
	Photos      []PhotoInput
}

// IssuePatch lists the mutable issue fields; nil means unchanged. A Status
// change is recorded as a new status update.
type IssuePatch struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	Category    *string             `json:"category"`
	Location    *string             `json:"location"`
	Latitude    *float64            `json:"latitude"`
	Longitude   *float64            `json:"longitude"`
	Status      *models.IssueStatus `json:"status"`
	IsFlagged   *bool               `json:"is_flagged"`
}

func (s *ContentService) FindEvents(ctx context.Context, opts ListOptions) (res *repository.ListResult[*models.Event], err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.FindEvents", attribute.Bool("geo", opts.Geo != nil))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateRadius(opts.Geo); err != nil {
		return nil, err
	}
	return s.events.FindMany(ctx, s.opts.listOptions(opts))
}

func (s *ContentService) FindIssues(ctx context.Context, opts ListOptions) (res *repository.ListResult[*models.Issue], err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.FindIssues", attribute.Bool("geo", opts.Geo != nil))
	defer func() { observability.EndSpan(span, err) }()

	if err := validateRadius(opts.Geo); err != nil {
		return nil, err
	}
	return s.issues.FindMany(ctx, s.opts.listOptions(opts))
}

// FindEvent returns nil, nil when the event does not exist.
func (s *ContentService) FindEvent(ctx context.Context, id uint, include []string) (event *models.Event, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.FindEvent", attribute.Int64("event.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.events.FindByID(ctx, id, include)
}

// FindIssue returns nil, nil when the issue does not exist.
func (s *ContentService) FindIssue(ctx context.Context, id uint, include []string) (issue *models.Issue, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.FindIssue", attribute.Int64("issue.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.issues.FindByID(ctx, id, include)
}

// CreateEvent validates and stores a new event. New events always start
// unapproved with zero upvotes.
func (s *ContentService) CreateEvent(ctx context.Context, in CreateEventInput) (event *models.Event, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.CreateEvent")
	defer func() { observability.EndSpan(span, err) }()

	if in.OrganizerID == 0 {
		return nil, models.NewValidationError("organizer_id is required")
	}
	event = &models.Event{
		Title:             strings.TrimSpace(in.Title),
		Description:       in.Description,
		Location:          in.Location,
		Latitude:          in.Latitude,
		Longitude:         in.Longitude,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Category:          strings.TrimSpace(in.Category),
		IsUrgent:          in.IsUrgent,
		IsPaid:            in.IsPaid,
		TicketPrice:       in.TicketPrice,
		MaxAttendees:      in.MaxAttendees,
		RegistrationStart: in.RegistrationStart,
		RegistrationEnd:   in.RegistrationEnd,
		OrganizerID:       in.OrganizerID,
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	photos, err := eventPhotos(in.Photos)
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, event, photos); err != nil {
		return nil, err
	}
	return event, nil
}

// UpdateEvent applies patch and returns the stored event, or nil, nil when
// the event does not exist.
func (s *ContentService) UpdateEvent(ctx context.Context, id uint, patch EventPatch) (event *models.Event, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.UpdateEvent", attribute.Int64("event.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	current, err := s.events.FindByID(ctx, id, nil)
	if err != nil || current == nil {
		return nil, err
	}

	merged := *current
	updates := patch.apply(&merged)
	if err := validateEvent(&merged); err != nil {
		return nil, err
	}
	return s.events.Update(ctx, id, updates)
}

func (s *ContentService) DeleteEvent(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.DeleteEvent", attribute.Int64("event.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.events.Delete(ctx, id)
}

// CreateIssue validates and stores a new issue with its opening status.
func (s *ContentService) CreateIssue(ctx context.Context, in CreateIssueInput) (issue *models.Issue, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.CreateIssue")
	defer func() { observability.EndSpan(span, err) }()

	issue = &models.Issue{
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Category:    strings.TrimSpace(in.Category),
		Location:    in.Location,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		IsAnonymous: in.IsAnonymous,
		ReporterID:  in.ReporterID,
	}
	if err := validateIssue(issue); err != nil {
		return nil, err
	}
	photos, err := issuePhotos(in.Photos)
	if err != nil {
		return nil, err
	}

	if err := s.issues.Create(ctx, issue, photos); err != nil {
		return nil, err
	}
	return issue, nil
}

// UpdateIssue applies patch and returns the stored issue, or nil, nil when
// the issue does not exist. Followers are notified when the status moves.
func (s *ContentService) UpdateIssue(ctx context.Context, id uint, patch IssuePatch) (issue *models.Issue, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.UpdateIssue", attribute.Int64("issue.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	current, err := s.issues.FindByID(ctx, id, nil)
	if err != nil || current == nil {
		return nil, err
	}

	merged := *current
	updates := patch.apply(&merged)
	if err := validateIssue(&merged); err != nil {
		return nil, err
	}

	issue, err = s.issues.Update(ctx, id, updates)
	if err != nil || issue == nil {
		return issue, err
	}
	if issue.Status != current.Status {
		s.notifyStatusChange(ctx, issue, nil)
	}
	return issue, nil
}

func (s *ContentService) DeleteIssue(ctx context.Context, id uint) (err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.DeleteIssue", attribute.Int64("issue.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.issues.Delete(ctx, id)
}

// Toggle flips a vote or follow for userID on one piece of content.
func (s *ContentService) Toggle(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (res *repository.ToggleResult, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.Toggle",
		attribute.String("toggle.kind", string(kind)),
		attribute.String("content.type", string(ct)),
		attribute.Int64("content.id", int64(contentID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if userID == 0 {
		return nil, models.NewValidationError("user id is required")
	}
	if contentID == 0 {
		return nil, models.NewValidationError("content id is required")
	}

	res, err = s.toggles.Toggle(ctx, kind, ct, contentID, userID)
	if err != nil {
		return nil, err
	}
	if kind == models.ToggleVote {
		if err := s.publisher.PublishContentUpdate(ctx, ct, contentID, "upvotes", res.Count); err != nil {
			observability.Logger.WarnContext(ctx, "content update publish failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// AddStatusUpdate appends to an issue's status history and notifies its
// followers and reporter. Notification failures are logged, not returned:
// the status change has already committed.
func (s *ContentService) AddStatusUpdate(ctx context.Context, issueID uint, status models.IssueStatus, comment *string) (update *models.IssueStatusUpdate, err error) {
	ctx, span := observability.StartSpan(ctx, "ContentService.AddStatusUpdate",
		attribute.Int64("issue.id", int64(issueID)),
		attribute.String("issue.status", string(status)),
	)
	defer func() { observability.EndSpan(span, err) }()

	if !status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("invalid status %q", status))
	}
	if comment != nil {
		trimmed := strings.TrimSpace(*comment)
		if len(trimmed) > maxDescriptionLen {
			return nil, models.NewValidationError("comment too long")
		}
		if trimmed == "" {
			comment = nil
		} else {
			comment = &trimmed
		}
	}

	update, err = s.issues.AddStatusUpdate(ctx, issueID, status, comment)
	if err != nil {
		return nil, err
	}

	issue, err := s.issues.FindByID(ctx, issueID, nil)
	if err != nil || issue == nil {
		observability.Logger.WarnContext(ctx, "issue vanished before notifying", slog.Uint64("issue_id", uint64(issueID)))
		return update, nil
	}
	s.notifyStatusChange(ctx, issue, comment)
	return update, nil
}

func (s *ContentService) notifyStatusChange(ctx context.Context, issue *models.Issue, comment *string) {
	followers, err := s.toggles.FollowerIDs(ctx, models.ContentTypeIssue, issue.ID)
	if err != nil {
		observability.Logger.WarnContext(ctx, "follower lookup failed", slog.String("error", err.Error()))
		return
	}

	recipients := make([]uint, 0, len(followers)+1)
	seen := make(map[uint]struct{}, len(followers)+1)
	add := func(id uint) {
		if _, ok := seen[id]; ok || id == 0 {
			return
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	if issue.ReporterID != nil {
		add(*issue.ReporterID)
	}
	for _, id := range followers {
		add(id)
	}
	if len(recipients) == 0 {
		return
	}

	message := fmt.Sprintf("Issue %q is now %s", issue.Title, issue.Status)
	if comment != nil {
		message += ": " + *comment
	}
	notes := make([]models.Notification, 0, len(recipients))
	for _, id := range recipients {
		notes = append(notes, models.Notification{
			UserID:      id,
			Type:        models.NotificationIssueStatus,
			Message:     message,
			ContentType: models.ContentTypeIssue,
			ContentID:   issue.ID,
		})
	}

	if err := s.notifications.CreateBatch(ctx, notes); err != nil {
		observability.Logger.WarnContext(ctx, "storing notifications failed", slog.String("error", err.Error()))
		return
	}
	if err := s.publisher.PublishNotifications(ctx, notes); err != nil {
		observability.Logger.WarnContext(ctx, "notification publish failed", slog.String("error", err.Error()))
	}
	if err := s.publisher.PublishContentUpdate(ctx, models.ContentTypeIssue, issue.ID, "status", issue.Status); err != nil {
		observability.Logger.WarnContext(ctx, "content update publish failed", slog.String("error", err.Error()))
	}
}

func (p EventPatch) apply(e *models.Event) map[string]any {
	updates := map[string]any{}
	if p.Title != nil {
		e.Title = strings.TrimSpace(*p.Title)
		updates["title"] = e.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
		updates["description"] = e.Description
	}
	if p.Location != nil {
		e.Location = *p.Location
		updates["location"] = e.Location
	}
	if p.Latitude != nil {
		e.Latitude = *p.Latitude
		updates["latitude"] = e.Latitude
	}
	if p.Longitude != nil {
		e.Longitude = *p.Longitude
		updates["longitude"] = e.Longitude
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
		updates["start_date"] = e.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = p.EndDate
		updates["end_date"] = *p.EndDate
	}
	if p.Category != nil {
		e.Category = strings.TrimSpace(*p.Category)
		updates["category"] = e.Category
	}
	if p.IsUrgent != nil {
		e.IsUrgent = *p.IsUrgent
		updates["is_urgent"] = e.IsUrgent
	}
	if p.IsApproved != nil {
		e.IsApproved = *p.IsApproved
		updates["is_approved"] = e.IsApproved
	}
	if p.IsFlagged != nil {
		e.IsFlagged = *p.IsFlagged
		updates["is_flagged"] = e.IsFlagged
	}
	if p.IsPaid != nil {
		e.IsPaid = *p.IsPaid
		updates["is_paid"] = e.IsPaid
	}
	if p.TicketPrice != nil {
		e.TicketPrice = p.TicketPrice
		updates["ticket_price"] = *p.TicketPrice
	}
	if p.MaxAttendees != nil {
		e.MaxAttendees = p.MaxAttendees
		updates["max_attendees"] = *p.MaxAttendees
	}
	if p.RegistrationStart != nil {
		e.RegistrationStart = p.RegistrationStart
		updates["registration_start"] = *p.RegistrationStart
	}
	if p.RegistrationEnd != nil {
		e.RegistrationEnd = p.RegistrationEnd
		updates["registration_end"] = *p.RegistrationEnd
	}
	return updates
}

func (p IssuePatch) apply(i *models.Issue) map[string]any {
	updates := map[string]any{}
	if p.Title != nil {
		i.Title = strings.TrimSpace(*p.Title)
		updates["title"] = i.Title
	}
	if p.Description != nil {
		i.Description = *p.Description
		updates["description"] = i.Description
	}
	if p.Category != nil {
		i.Category = strings.TrimSpace(*p.Category)
		updates["category"] = i.Category
	}
	if p.Location != nil {
		i.Location = *p.Location
		updates["location"] = i.Location
	}
	if p.Latitude != nil {
		i.Latitude = p.Latitude
		updates["latitude"] = *p.Latitude
	}
	if p.Longitude != nil {
		i.Longitude = p.Longitude
		updates["longitude"] = *p.Longitude
	}
	if p.Status != nil {
		i.Status = *p.Status
		updates["status"] = *p.Status
	}
	if p.IsFlagged != nil {
		i.IsFlagged = *p.IsFlagged
		updates["is_flagged"] = i.IsFlagged
	}
	return updates
}
