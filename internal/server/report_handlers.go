package server

import (
	"civicboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
func (s *Server) CreateReport(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		ContentType string  `json:"content_type"`
		ContentID   uint    `json:"content_id"`
		Reason      string  `json:"reason"`
		Description *string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	report, err := s.reports.ReportContent(c.UserContext(), service.ReportInput{
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		ReporterID:  userID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// ListReports handles GET /api/reports?status=pending for moderators.
func (s *Server) ListReports(c *fiber.Ctx) error {
	if err := requireModerator(c); err != nil {
		return respondError(c, err)
	}
	res, err := s.reports.ListReports(c.UserContext(), c.Query("status"), parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// ReviewReport handles PATCH /api/reports/:id for moderators.
func (s *Server) ReviewReport(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	if err := requireModerator(c); err != nil {
		return respondError(c, err)
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}

	report, err := s.reports.ReviewReport(c.UserContext(), id, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	if report == nil {
		return notFound(c, "Report", id)
	}
	return c.JSON(report)
}

// ListNotifications handles GET /api/me/notifications?unread=true
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	res, err := s.notifications.List(c.UserContext(), userID, c.QueryBool("unread", false), parsePage(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// MarkNotificationsRead handles POST /api/me/notifications/read. An empty
// id list marks everything read.
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	userID, err := requireUser(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		IDs []uint `json:"ids"`
	}
	if err := parseBody(c, &req); err != nil {
		return respondError(c, err)
	}
	n, err := s.notifications.MarkRead(c.UserContext(), userID, req.IDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"updated": n})
}
