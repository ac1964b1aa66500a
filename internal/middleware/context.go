// Package middleware provides request-scoped fiber middleware for the HTTP adapter.
package middleware

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"civicboard/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Headers carrying identity asserted by the upstream gateway. Authentication
// happens before requests reach this service.
const (
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"

	RoleModerator = "moderator"
)

// Fiber locals keys.
const (
	LocalCorrelationID = "correlationID"
	LocalUserID        = "userID"
	LocalModerator     = "moderator"
)

// CorrelationID reuses an inbound X-Correlation-ID or mints one, echoes it on
// the response and stores it on the request context for the logger.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(HeaderCorrelationID))
		if id == "" || len(id) > 128 {
			id = observability.GenerateCorrelationID()
		}
		c.Locals(LocalCorrelationID, id)
		c.Set(HeaderCorrelationID, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// Identity reads the caller from X-User-ID / X-User-Role. A missing or
// malformed id leaves the request anonymous.
func Identity() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get(HeaderUserID))
		if raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 32); err == nil && id > 0 {
				c.Locals(LocalUserID, uint(id))
				c.SetUserContext(observability.WithUserID(c.UserContext(), uint(id)))
			}
		}
		c.Locals(LocalModerator, strings.EqualFold(strings.TrimSpace(c.Get(HeaderUserRole)), RoleModerator))
		return c.Next()
	}
}

// UserID returns the caller id, or 0 for anonymous requests.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(LocalUserID).(uint)
	return id
}

// IsModerator reports whether the caller asserted the moderator role.
func IsModerator(c *fiber.Ctx) bool {
	mod, _ := c.Locals(LocalModerator).(bool)
	return mod
}

// StructuredLogger returns a Fiber middleware for logging requests using slog
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
		}

		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.Logger.InfoContext(c.UserContext(), "request processed", fields...)
		}

		return err
	}
}
