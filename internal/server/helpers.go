package server

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"civicboard/internal/featureflags"
	"civicboard/internal/geo"
	"civicboard/internal/middleware"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/query"
	"civicboard/internal/service"

	"github.com/gofiber/fiber/v2"
)

// statusFor maps AppError codes onto HTTP statuses.
func statusFor(err error) int {
	switch models.ErrorCode(err) {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeConflict:
		return fiber.StatusConflict
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeForbidden:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as a JSON ErrorResponse. Storage details stay in
// the logs.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)

	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		observability.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
		return c.Status(status).JSON(models.ErrorResponse{Error: "internal server error"})
	}

	response := models.ErrorResponse{Error: appErr.Message, Code: appErr.Code}
	if status == fiber.StatusInternalServerError {
		observability.Logger.ErrorContext(c.UserContext(), "request failed", slog.String("error", err.Error()))
	} else if appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}
	return c.Status(status).JSON(response)
}

func notFound(c *fiber.Ctx, resource string, id uint) error {
	return respondError(c, models.NewNotFoundError(resource, id))
}

// parseID extracts a route parameter by name as a positive uint.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewValidationError("Invalid " + param)
	}
	return uint(id), nil
}

// requireUser returns the caller id or a Forbidden error for anonymous calls.
func requireUser(c *fiber.Ctx) (uint, error) {
	id := middleware.UserID(c)
	if id == 0 {
		return 0, models.NewForbiddenError("a user identity is required")
	}
	return id, nil
}

func requireModerator(c *fiber.Ctx) error {
	if !middleware.IsModerator(c) {
		return models.NewForbiddenError("moderator access required")
	}
	return nil
}

// requireFlag hides a route group behind a feature flag.
func (s *Server) requireFlag(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(name, middleware.UserID(c)) {
			return respondError(c, &models.AppError{Code: models.CodeNotFound, Message: name + " is disabled"})
		}
		return c.Next()
	}
}

// parseBody decodes a JSON body into dst; an empty body leaves dst untouched.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(dst); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	return nil
}

func parsePage(c *fiber.Ctx) query.Page {
	return query.Page{Number: c.QueryInt("page", 1), Limit: c.QueryInt("limit", 0)}
}

func parseIncludes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOptionalBool(c *fiber.Ctx, key string) (*bool, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, models.NewValidationError(key + " must be a boolean")
	}
	return &v, nil
}

func parseOptionalFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, models.NewValidationError(key + " must be a number")
	}
	return &v, nil
}

// parseListOptions reads filter, sort, include, paging and radius query
// parameters. ownerParam names the owner filter ("organizerId" or "reporterId").
func (s *Server) parseListOptions(c *fiber.Ctx, ownerParam string) (service.ListOptions, error) {
	opts := service.ListOptions{
		Filter: query.Filter{
			Search:    c.Query("search"),
			Category:  c.Query("category"),
			Status:    c.Query("status"),
			DateRange: c.Query("dateRange", c.Query("date_range")),
		},
		Include: parseIncludes(c.Query("include")),
		Sort:    c.Query("sort"),
		Page:    parsePage(c),
	}

	var err error
	if opts.Filter.IsApproved, err = parseOptionalBool(c, "isApproved"); err != nil {
		return opts, err
	}
	if opts.Filter.IsFlagged, err = parseOptionalBool(c, "isFlagged"); err != nil {
		return opts, err
	}
	if raw := c.Query(ownerParam); raw != "" {
		owner, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || owner == 0 {
			return opts, models.NewValidationError(ownerParam + " must be a positive integer")
		}
		id := uint(owner)
		opts.Filter.OwnerID = &id
		opts.Filter.IncludeAnonymous = middleware.IsModerator(c) || middleware.UserID(c) == id
	}

	lat, err := parseOptionalFloat(c, "lat")
	if err != nil {
		return opts, err
	}
	lng, err := parseOptionalFloat(c, "lng")
	if err != nil {
		return opts, err
	}
	radius, err := parseOptionalFloat(c, "radius")
	if err != nil {
		return opts, err
	}
	if lat == nil && lng == nil && radius == nil {
		return opts, nil
	}
	if lat == nil || lng == nil || radius == nil {
		return opts, models.NewValidationError("lat, lng and radius must be given together")
	}
	if !s.featureFlags.Enabled(featureflags.GeoSearch, middleware.UserID(c)) {
		return opts, models.NewForbiddenError("geo search is disabled")
	}
	opts.Geo = &geo.Radius{Origin: geo.Point{Lat: *lat, Lng: *lng}, RadiusKm: *radius}
	return opts, nil
}
