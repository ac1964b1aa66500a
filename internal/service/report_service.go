package service

import (
	"context"
	"strings"

	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/query"
	"civicboard/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const maxReasonLen = 100

// ReportService files and moderates violation reports.
type ReportService struct {
	reports repository.ReportRepository
	opts    Options
}

func NewReportService(reports repository.ReportRepository, opts Options) *ReportService {
	return &ReportService{reports: reports, opts: opts}
}

type ReportInput struct {
	ContentType string
	ContentID   uint
	ReporterID  uint
	Reason      string
	Description *string
}

// ReportContent files a report. Reporting the same content twice is a Conflict.
func (s *ReportService) ReportContent(ctx context.Context, in ReportInput) (report *models.ViolationReport, err error) {
	ctx, span := observability.StartSpan(ctx, "ReportService.ReportContent",
		attribute.String("content.type", in.ContentType),
		attribute.Int64("content.id", int64(in.ContentID)),
	)
	defer func() { observability.EndSpan(span, err) }()

	ct, err := models.ParseContentType(in.ContentType)
	if err != nil {
		return nil, err
	}
	if in.ContentID == 0 {
		return nil, models.NewValidationError("content_id is required")
	}
	if in.ReporterID == 0 {
		return nil, models.NewValidationError("reporter is required")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, models.NewValidationError("reason is required")
	}
	if len(reason) > maxReasonLen {
		return nil, models.NewValidationError("reason too long")
	}
	description := in.Description
	if description != nil {
		trimmed := strings.TrimSpace(*description)
		if len(trimmed) > maxDescriptionLen {
			return nil, models.NewValidationError("description too long")
		}
		description = &trimmed
	}

	report = &models.ViolationReport{
		ContentType:  ct,
		ContentID:    in.ContentID,
		ReportedByID: in.ReporterID,
		Reason:       reason,
		Description:  description,
		Status:       models.ReportStatusPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports pages reports, optionally filtered by status ("" means all).
func (s *ReportService) ListReports(ctx context.Context, status string, page query.Page) (res *repository.ListResult[*models.ViolationReport], err error) {
	ctx, span := observability.StartSpan(ctx, "ReportService.ListReports")
	defer func() { observability.EndSpan(span, err) }()

	return s.reports.List(ctx, models.ReportStatus(strings.ToLower(strings.TrimSpace(status))), s.opts.page(page))
}

// ReviewReport moves a report out of pending. Returns nil, nil when the
// report does not exist.
func (s *ReportService) ReviewReport(ctx context.Context, id uint, status string) (report *models.ViolationReport, err error) {
	ctx, span := observability.StartSpan(ctx, "ReportService.ReviewReport", attribute.Int64("report.id", int64(id)))
	defer func() { observability.EndSpan(span, err) }()

	return s.reports.Review(ctx, id, models.ReportStatus(strings.ToLower(strings.TrimSpace(status))), s.opts.now())
}
