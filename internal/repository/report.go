package repository

import (
	"context"
	"time"

	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/query"

	"gorm.io/gorm"
)

// ReportRepository stores violation reports and resolves the content they point at.
type ReportRepository interface {
	Create(ctx context.Context, report *models.ViolationReport) error
	FindByID(ctx context.Context, id uint) (*models.ViolationReport, error)
	List(ctx context.Context, status models.ReportStatus, page query.Page) (*ListResult[*models.ViolationReport], error)
	Review(ctx context.Context, id uint, status models.ReportStatus, at time.Time) (*models.ViolationReport, error)
}

type reportRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db, log: observability.NewRepoLogger("violation_reports")}
}

// contentDisplay is what a report shows about the content it references.
type contentDisplay struct {
	ID         uint
	Title      string
	AuthorName *string
}

// contentResolver loads display fields for a batch of content ids of one variant.
type contentResolver func(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]contentDisplay, error)

// contentResolvers has one entry per ContentType variant. Rows whose tag has
// no entry resolve to nil display fields.
var contentResolvers = map[models.ContentType]contentResolver{
	models.ContentTypeEvent: resolveEventDisplay,
	models.ContentTypeIssue: resolveIssueDisplay,
}

func resolveEventDisplay(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]contentDisplay, error) {
	var rows []contentDisplay
	err := db.WithContext(ctx).
		Table("events").
		Select("events.id AS id, events.title AS title, users.name AS author_name").
		Joins("LEFT JOIN users ON users.id = events.organizer_id").
		Where("events.id IN ?", ids).
		Scan(&rows).Error
	return indexDisplays(rows), err
}

func resolveIssueDisplay(ctx context.Context, db *gorm.DB, ids []uint) (map[uint]contentDisplay, error) {
	var rows []contentDisplay
	err := db.WithContext(ctx).
		Table("issues").
		Select("issues.id AS id, issues.title AS title, CASE WHEN issues.is_anonymous THEN NULL ELSE users.name END AS author_name").
		Joins("LEFT JOIN users ON users.id = issues.reporter_id").
		Where("issues.id IN ?", ids).
		Scan(&rows).Error
	return indexDisplays(rows), err
}

func indexDisplays(rows []contentDisplay) map[uint]contentDisplay {
	out := make(map[uint]contentDisplay, len(rows))
	for _, row := range rows {
		out[row.ID] = row
	}
	return out
}

// resolveReports fills ContentTitle and ContentAuthorName with one query per
// content variant present in reports.
func resolveReports(ctx context.Context, db *gorm.DB, reports []*models.ViolationReport) error {
	idsByType := map[models.ContentType][]uint{}
	for _, rep := range reports {
		rep.ContentTitle, rep.ContentAuthorName = nil, nil
		idsByType[rep.ContentType] = append(idsByType[rep.ContentType], rep.ContentID)
	}

	resolved := map[models.ContentType]map[uint]contentDisplay{}
	for ct, ids := range idsByType {
		resolve, ok := contentResolvers[ct]
		if !ok {
			continue
		}
		displays, err := resolve(ctx, db, uniqueIDs(ids))
		if err != nil {
			return storageError("resolve "+string(ct)+" reports", err)
		}
		resolved[ct] = displays
	}

	for _, rep := range reports {
		d, ok := resolved[rep.ContentType][rep.ContentID]
		if !ok {
			continue
		}
		title := d.Title
		rep.ContentTitle = &title
		rep.ContentAuthorName = d.AuthorName
	}
	return nil
}

// Create stores a new report, or returns a Conflict when the reporter already
// reported this content. Content existence is not checked.
func (r *reportRepository) Create(ctx context.Context, report *models.ViolationReport) error {
	if !report.ContentType.Valid() {
		return models.NewValidationError("content type must be 'event' or 'issue'")
	}
	defer observability.TrackQuery("create", "violation_reports")()

	db := r.db.WithContext(ctx)
	var existing int64
	err := db.Model(&models.ViolationReport{}).
		Where("content_type = ? AND content_id = ? AND reported_by_id = ?", report.ContentType, report.ContentID, report.ReportedByID).
		Count(&existing).Error
	if err != nil {
		return storageError("lookup report", err)
	}
	if existing > 0 {
		return models.NewConflictError("you have already reported this content")
	}

	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	if err := db.Create(report).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("you have already reported this content")
		}
		r.log.LogError(ctx, err, "create")
		return storageError("create report", err)
	}
	r.log.LogCreate(ctx, map[string]any{
		"id":           report.ID,
		"content_type": report.ContentType,
		"content_id":   report.ContentID,
	})
	return nil
}

// FindByID returns the report with display fields resolved, or nil, nil.
func (r *reportRepository) FindByID(ctx context.Context, id uint) (*models.ViolationReport, error) {
	var report models.ViolationReport
	err := r.db.WithContext(ctx).First(&report, id).Error
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find report", err)
	}
	if err := resolveReports(ctx, r.db, []*models.ViolationReport{&report}); err != nil {
		return nil, err
	}
	return &report, nil
}

// List pages through reports, newest first, optionally filtered by status.
func (r *reportRepository) List(ctx context.Context, status models.ReportStatus, page query.Page) (*ListResult[*models.ViolationReport], error) {
	if status != "" && !status.Valid() {
		return nil, models.NewValidationError("unknown report status " + string(status))
	}
	page = page.Normalized()
	defer observability.TrackQuery("list", "violation_reports")()

	base := r.db.WithContext(ctx).Model(&models.ViolationReport{})
	if status != "" {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, storageError("count reports", err)
	}
	var rows []*models.ViolationReport
	err := base.Session(&gorm.Session{}).
		Order(query.DefaultSort.Clause()).
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, storageError("list reports", err)
	}
	if err := resolveReports(ctx, r.db, rows); err != nil {
		return nil, err
	}
	return newListResult(rows, total, page), nil
}

// Review moves a report to status and stamps ReviewedAt. Returns nil, nil
// when the report does not exist.
func (r *reportRepository) Review(ctx context.Context, id uint, status models.ReportStatus, at time.Time) (*models.ViolationReport, error) {
	if !status.Valid() || status == models.ReportStatusPending {
		return nil, models.NewValidationError("review status must be reviewed, resolved or dismissed")
	}

	res := r.db.WithContext(ctx).Model(&models.ViolationReport{}).Where("id = ?", id).Updates(map[string]any{
		"status":      status,
		"reviewed_at": at.UTC(),
	})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "review")
		return nil, storageError("review report", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	r.log.LogUpdate(ctx, map[string]any{"id": id, "status": status})
	return r.FindByID(ctx, id)
}
