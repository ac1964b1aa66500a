package server

import (
	"slices"
	"time"

	"civicboard/internal/featureflags"
	"civicboard/internal/middleware"
	"civicboard/internal/models"
	"civicboard/internal/repository"
	"civicboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createEventRequest struct {
	Title             string               `json:"title"`
	Description       string               `json:"description"`
	Location          string               `json:"location"`
	Latitude          float64              `json:"latitude"`
	Longitude         float64              `json:"longitude"`
	StartDate         time.Time            `json:"start_date"`
	EndDate           *time.Time           `json:"end_date"`
	Category          string               `json:"category"`
	IsUrgent          bool                 `json:"is_urgent"`
	IsPaid            bool                 `json:"is_paid"`
	TicketPrice       *float64             `json:"ticket_price"`
	MaxAttendees      *int                 `json:"max_attendees"`
	RegistrationStart *time.Time           `json:"registration_start"`
	RegistrationEnd   *time.Time           `json:"registration_end"`
	Photos            []service.PhotoInput `json:"photos"`
}

type createIssueRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Location    string               `json:"location"`
	Latitude    *float64             `json:"latitude"`
	Longitude   *float64             `json:"longitude"`
	IsAnonymous bool                 `json:"is_anonymous"`
	Photos      []service.PhotoInput `json:"photos"`
}

// ListEvents handles GET /api/events
func (s *Server) ListEvents(c *fiber.Ctx) error {
	opts, err := s.parseListOptions(c, "organizerId")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.authorizeRegistrationsInclude(c, opts.Include, 0); err != nil {
		return respondError(c, err)
	}
	res, err := s.content.FindEvents(c.UserContext(), opts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetEvent handles GET /api/events/:id?include=...
func (s *Server) GetEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	include := parseIncludes(c.Query("include"))
	if err := s.authorizeRegistrationsInclude(c, include, id); err != nil {
		return respondError(c, err)
	}
	event, err := s.content.FindEvent(c.UserContext(), id, include)
	if err != nil {
		return respondError(c, err)
	}
	if event == nil {
		return notFound(c, "Event", id)
	}
	return c.JSON(event)
}

// CreateEvent handles POST /api/events. The caller becomes the organizer.
func (s *Server) CreateEvent(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req createEventRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	event, err := s.content.CreateEvent(c.UserContext(), service.CreateEventInput{
		OrganizerID:       userID,
		Title:             req.Title,
		Description:       req.Description,
		Location:          req.Location,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		StartDate:         req.StartDate,
		EndDate:           req.EndDate,
		Category:          req.Category,
		IsUrgent:          req.IsUrgent,
		IsPaid:            req.IsPaid,
		TicketPrice:       req.TicketPrice,
		MaxAttendees:      req.MaxAttendees,
		RegistrationStart: req.RegistrationStart,
		RegistrationEnd:   req.RegistrationEnd,
		Photos:            req.Photos,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

// UpdateEvent handles PATCH /api/events/:id. Organizers edit their own
// events; approval and flagging are moderator actions.
func (s *Server) UpdateEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var patch service.EventPatch
	if err := parseBody(c, &patch); err != nil {
		return respondError(c, err)
	}
	if patch.IsApproved != nil || patch.IsFlagged != nil {
		if err := requireModerator(c); err != nil {
			return respondError(c, err)
		}
	}
	if err := s.authorizeEvent(c, id); err != nil {
		return respondError(c, err)
	}

	event, err := s.content.UpdateEvent(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	if event == nil {
		return notFound(c, "Event", id)
	}
	return c.JSON(event)
}

// DeleteEvent handles DELETE /api/events/:id
func (s *Server) DeleteEvent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.authorizeEvent(c, id); err != nil {
		return respondError(c, err)
	}
	if err := s.content.DeleteEvent(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// authorizeEvent allows the organizer or a moderator through.
func (s *Server) authorizeEvent(c *fiber.Ctx, id uint) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if middleware.IsModerator(c) {
		return nil
	}
	event, err := s.content.FindEvent(c.UserContext(), id, nil)
	if err != nil {
		return err
	}
	if event == nil {
		return models.NewNotFoundError("Event", id)
	}
	if event.OrganizerID != userID {
		return models.NewForbiddenError("only the organizer can modify this event")
	}
	return nil
}

// authorizeRegistrationsInclude guards the registrations include, which
// carries attendee contact details. A single event needs its organizer or a
// moderator; a listing needs a moderator.
func (s *Server) authorizeRegistrationsInclude(c *fiber.Ctx, include []string, eventID uint) error {
	if !slices.Contains(include, repository.IncludeRegistrations) {
		return nil
	}
	if !s.featureFlags.Enabled(featureflags.Registrations, middleware.UserID(c)) {
		return &models.AppError{Code: models.CodeNotFound, Message: featureflags.Registrations + " is disabled"}
	}
	if eventID == 0 {
		if _, err := requireUser(c); err != nil {
			return err
		}
		return requireModerator(c)
	}
	return s.authorizeEvent(c, eventID)
}

// ListIssues handles GET /api/issues
func (s *Server) ListIssues(c *fiber.Ctx) error {
	opts, err := s.parseListOptions(c, "reporterId")
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.content.FindIssues(c.UserContext(), opts)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// GetIssue handles GET /api/issues/:id?include=...
func (s *Server) GetIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	issue, err := s.content.FindIssue(c.UserContext(), id, parseIncludes(c.Query("include")))
	if err != nil {
		return respondError(c, err)
	}
	if issue == nil {
		return notFound(c, "Issue", id)
	}
	return c.JSON(issue)
}

// CreateIssue handles POST /api/issues. Anonymous callers may report issues.
func (s *Server) CreateIssue(c *fiber.Ctx) error {
	var req createIssueRequest
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	in := service.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		IsAnonymous: req.IsAnonymous,
		Photos:      req.Photos,
	}
	if uid := middleware.UserID(c); uid != 0 {
		in.ReporterID = &uid
	}

	issue, err := s.content.CreateIssue(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(issue)
}

// UpdateIssue handles PATCH /api/issues/:id. Status and flag changes are
// moderator actions.
func (s *Server) UpdateIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	var patch service.IssuePatch
	if err := parseBody(c, &patch); err != nil {
		return respondError(c, err)
	}
	if patch.Status != nil || patch.IsFlagged != nil {
		if err := requireModerator(c); err != nil {
			return respondError(c, err)
		}
	}
	if err := s.authorizeIssue(c, id); err != nil {
		return respondError(c, err)
	}

	issue, err := s.content.UpdateIssue(c.UserContext(), id, patch)
	if err != nil {
		return respondError(c, err)
	}
	if issue == nil {
		return notFound(c, "Issue", id)
	}
	return c.JSON(issue)
}

// DeleteIssue handles DELETE /api/issues/:id
func (s *Server) DeleteIssue(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.authorizeIssue(c, id); err != nil {
		return respondError(c, err)
	}
	if err := s.content.DeleteIssue(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// authorizeIssue allows the reporter or a moderator through.
func (s *Server) authorizeIssue(c *fiber.Ctx, id uint) error {
	userID, err := requireUser(c)
	if err != nil {
		return err
	}
	if middleware.IsModerator(c) {
		return nil
	}
	issue, err := s.content.FindIssue(c.UserContext(), id, nil)
	if err != nil {
		return err
	}
	if issue == nil {
		return models.NewNotFoundError("Issue", id)
	}
	if issue.ReporterID == nil || *issue.ReporterID != userID {
		return models.NewForbiddenError("only the reporter can modify this issue")
	}
	return nil
}

// AddStatusUpdate handles POST /api/issues/:id/status
func (s *Server) AddStatusUpdate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := requireModerator(c); err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status  models.IssueStatus `json:"status"`
		Comment *string            `json:"comment"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	update, err := s.content.AddStatusUpdate(c.UserContext(), id, req.Status, req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(update)
}

// toggle builds the POST /api/{events,issues}/:id/{vote,follow} handler.
func (s *Server) toggle(kind models.ToggleKind, ct models.ContentType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c, "id")
		if err != nil {
			return respondError(c, err)
		}
		userID, err := requireUser(c)
		if err != nil {
			return respondError(c, err)
		}
		res, err := s.content.Toggle(c.UserContext(), kind, ct, id, userID)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}
