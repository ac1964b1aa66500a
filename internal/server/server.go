// Package server contains the HTTP adapter that exposes the content core as JSON under /api.
package server

import (
	"context"
	"errors"
	"time"

	"civicboard/internal/cache"
	"civicboard/internal/config"
	"civicboard/internal/database"
	"civicboard/internal/featureflags"
	"civicboard/internal/middleware"
	"civicboard/internal/models"
	"civicboard/internal/notifications"
	"civicboard/internal/repository"
	"civicboard/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	cache          *cache.Cache
	notifier       *notifications.Notifier
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager

	content       *service.ContentService
	reports       *service.ReportService
	registrations *service.RegistrationService
	notifications *service.NotificationService
}

// NewServer wires repositories and services over already-initialized
// storage. c may be nil, in which case caching and realtime delivery are off.
func NewServer(cfg *config.Config, db *gorm.DB, c *cache.Cache) *Server {
	opts := service.Options{
		DefaultPageLimit: cfg.DefaultPageLimit,
		MaxPageLimit:     cfg.MaxPageLimit,
	}

	events := repository.NewEventRepository(db, c)
	issues := repository.NewIssueRepository(db, c)
	toggles := repository.NewToggleRepository(db, c)
	notes := repository.NewNotificationRepository(db)

	notifier := notifications.NewNotifier(c.Client())

	return &Server{
		config:         cfg,
		db:             db,
		cache:          c,
		notifier:       notifier,
		promMiddleware: middleware.InitMetrics("civicboard-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		content:        service.NewContentService(events, issues, toggles, notes, notifier, opts),
		reports:        service.NewReportService(repository.NewReportRepository(db), opts),
		registrations: service.NewRegistrationService(events,
			repository.NewInterestRepository(db),
			repository.NewFeedbackRepository(db),
			notes, notifier, opts),
		notifications: service.NewNotificationService(notes, opts),
	}
}

// Notifier exposes the realtime publisher so the process can subscribe to it.
func (s *Server) Notifier() *notifications.Notifier {
	return s.notifier
}

// App builds the fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "civicboard",
		ErrorHandler: errorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(middleware.CorrelationID())
	app.Use(middleware.Identity())
	app.Use(middleware.Tracing())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(middleware.StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/flags", s.GetFeatureFlags)

	events := api.Group("/events")
	events.Get("/", s.ListEvents)
	events.Post("/", s.CreateEvent)
	// Specific /:id/:resource routes before the generic /:id route
	events.Post("/:id/vote", s.toggle(models.ToggleVote, models.ContentTypeEvent))
	events.Post("/:id/follow", s.toggle(models.ToggleFollow, models.ContentTypeEvent))

	registrations := events.Group("/:id/registrations", s.requireFlag(featureflags.Registrations))
	registrations.Get("/", s.ListRegistrations)
	registrations.Post("/", s.Register)
	registrations.Put("/", s.UpdateRegistration)
	registrations.Delete("/", s.Unregister)
	registrations.Post("/toggle", s.ToggleRegistration)

	feedback := events.Group("/:id/feedback", s.requireFlag(featureflags.Feedback))
	feedback.Get("/", s.GetFeedback)
	feedback.Post("/", s.SubmitFeedback)

	events.Get("/:id", s.GetEvent)
	events.Patch("/:id", s.UpdateEvent)
	events.Delete("/:id", s.DeleteEvent)

	issues := api.Group("/issues")
	issues.Get("/", s.ListIssues)
	issues.Post("/", s.CreateIssue)
	issues.Post("/:id/vote", s.toggle(models.ToggleVote, models.ContentTypeIssue))
	issues.Post("/:id/follow", s.toggle(models.ToggleFollow, models.ContentTypeIssue))
	issues.Post("/:id/status", s.AddStatusUpdate)
	issues.Get("/:id", s.GetIssue)
	issues.Patch("/:id", s.UpdateIssue)
	issues.Delete("/:id", s.DeleteIssue)

	reports := api.Group("/reports", s.requireFlag(featureflags.Reports))
	reports.Post("/", middleware.RateLimit(s.cache.Client(), s.config.ReportRateLimit, time.Minute, "report"), s.CreateReport)
	reports.Get("/", s.ListReports)
	reports.Patch("/:id", s.ReviewReport)

	me := api.Group("/me")
	me.Get("/notifications", s.ListNotifications)
	me.Post("/notifications/read", s.MarkNotificationsRead)
	me.Get("/registrations", s.ListMyRegistrations)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now().UTC(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: an
// unavailable cache degrades the service but does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.cache.Enabled() {
		redisStatus = "healthy"
		if err := s.cache.Client().Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now().UTC(),
	})
}

// errorHandler renders errors that escaped a handler.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	return respondError(c, err)
}
