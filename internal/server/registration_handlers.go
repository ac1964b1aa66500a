package server

import (
	"civicboard/internal/middleware"
	"civicboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registrationRequest struct {
	NumberOfPeople int `json:"number_of_people"`
}

func (s *Server) registrationInput(c *fiber.Ctx) (service.RegisterInput, error) {
	eventID, err := parseID(c, "id")
	if err != nil {
		return service.RegisterInput{}, err
	}
	userID, err := requireUser(c)
	if err != nil {
		return service.RegisterInput{}, err
	}
	var req registrationRequest
	if err := parseBody(c, &req); err != nil {
		return service.RegisterInput{}, err
	}
	return service.RegisterInput{EventID: eventID, UserID: userID, NumberOfPeople: req.NumberOfPeople}, nil
}

// Register handles POST /api/events/:id/registrations
func (s *Server) Register(c *fiber.Ctx) error {
	in, err := s.registrationInput(c)
	if err != nil {
		return respondError(c, err)
	}
	interest, err := s.registrations.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(interest)
}

// UpdateRegistration handles PUT /api/events/:id/registrations
func (s *Server) UpdateRegistration(c *fiber.Ctx) error {
	in, err := s.registrationInput(c)
	if err != nil {
		return respondError(c, err)
	}
	interest, err := s.registrations.UpdateRegistration(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	if interest == nil {
		return notFound(c, "Registration", in.EventID)
	}
	return c.JSON(interest)
}

// Unregister handles DELETE /api/events/:id/registrations
func (s *Server) Unregister(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	removed, err := s.registrations.Unregister(c.UserContext(), eventID, userID)
	if err != nil {
		return respondError(c, err)
	}
	if !removed {
		return notFound(c, "Registration", eventID)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleRegistration handles POST /api/events/:id/registrations/toggle
func (s *Server) ToggleRegistration(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.registrations.ToggleRegistration(c.UserContext(), eventID, userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ListRegistrations handles GET /api/events/:id/registrations for the
// organizer or a moderator.
func (s *Server) ListRegistrations(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := s.authorizeEvent(c, eventID); err != nil {
		return respondError(c, err)
	}
	rows, err := s.registrations.ListRegistrations(c.UserContext(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// ListMyRegistrations handles GET /api/me/registrations
func (s *Server) ListMyRegistrations(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	rows, err := s.registrations.ListUserRegistrations(c.UserContext(), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rows)
}

// SubmitFeedback handles POST /api/events/:id/feedback
func (s *Server) SubmitFeedback(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	fb, err := s.registrations.SubmitFeedback(c.UserContext(), service.FeedbackInput{
		EventID: eventID,
		UserID:  userID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fb)
}

// GetFeedback handles GET /api/events/:id/feedback
func (s *Server) GetFeedback(c *fiber.Ctx) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	summary, err := s.registrations.FeedbackSummary(c.UserContext(), eventID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

// GetFeatureFlags returns the evaluated flags for the caller.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(middleware.UserID(c)),
	})
}
