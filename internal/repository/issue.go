package repository

import (
	"context"
	"fmt"

	"civicboard/internal/cache"
	"civicboard/internal/models"
	"civicboard/internal/observability"

	"gorm.io/gorm"
)

// IssueRepository defines the interface for issue data operations
type IssueRepository interface {
	FindMany(ctx context.Context, opts ListOptions) (*ListResult[*models.Issue], error)
	FindByID(ctx context.Context, id uint, include []string) (*models.Issue, error)
	Create(ctx context.Context, issue *models.Issue, photos []models.IssuePhoto) error
	Update(ctx context.Context, id uint, updates map[string]any) (*models.Issue, error)
	Delete(ctx context.Context, id uint) error
	AddStatusUpdate(ctx context.Context, issueID uint, status models.IssueStatus, comment *string) (*models.IssueStatusUpdate, error)
}

// issueRepository implements IssueRepository
type issueRepository struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *observability.RepoLogger
}

// NewIssueRepository creates a new issue repository. c may be nil.
func NewIssueRepository(db *gorm.DB, c *cache.Cache) IssueRepository {
	return &issueRepository{db: db, cache: c, log: observability.NewRepoLogger("issues")}
}

func (r *issueRepository) FindMany(ctx context.Context, opts ListOptions) (*ListResult[*models.Issue], error) {
	in, err := ParseIncludes(models.ContentTypeIssue, opts.Include)
	if err != nil {
		return nil, err
	}
	res, err := findMany[*models.Issue](ctx, r.db, &models.Issue{}, IssueSchema, opts)
	if err != nil {
		return nil, err
	}
	if err := resolveIssueIncludes(ctx, r.db, res.Records, in); err != nil {
		return nil, err
	}
	return res, nil
}

// FindByID returns nil, nil when the issue does not exist.
func (r *issueRepository) FindByID(ctx context.Context, id uint, include []string) (*models.Issue, error) {
	in, err := ParseIncludes(models.ContentTypeIssue, include)
	if err != nil {
		return nil, err
	}

	var cached cachedIssue
	err = r.cache.Aside(ctx, cache.IssueKey(id), &cached, cache.ContentTTL, func() error {
		if err := r.db.WithContext(ctx).First(&cached.Issue, id).Error; err != nil {
			return err
		}
		cached.ReporterID = cached.Issue.ReporterID
		return nil
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError("find issue", err)
	}

	issue := cached.Issue
	issue.ReporterID = cached.ReporterID
	if err := resolveIssueIncludes(ctx, r.db, []*models.Issue{&issue}, in); err != nil {
		return nil, err
	}
	return &issue, nil
}

// cachedIssue keeps the reporter of anonymous issues, which the public JSON
// form drops.
type cachedIssue struct {
	Issue      models.Issue `json:"issue"`
	ReporterID *uint        `json:"reporter_id,omitempty"`
}

// Create inserts the issue, its photos and the opening status history entry
// in one transaction, so Status always has a matching update row.
func (r *issueRepository) Create(ctx context.Context, issue *models.Issue, photos []models.IssuePhoto) error {
	defer observability.TrackQuery("create", "issues")()

	if issue.Status == "" {
		issue.Status = models.IssueStatusReported
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}
		opening := models.IssueStatusUpdate{IssueID: issue.ID, Status: issue.Status}
		if err := tx.Create(&opening).Error; err != nil {
			return err
		}
		if len(photos) == 0 {
			return nil
		}
		for i := range photos {
			photos[i].ID = 0
			photos[i].IssueID = issue.ID
		}
		if err := tx.Create(&photos).Error; err != nil {
			return err
		}
		issue.Photos = photos
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return storageError("create issue", err)
	}
	r.log.LogCreate(ctx, map[string]any{"id": issue.ID, "anonymous": issue.IsAnonymous})
	return nil
}

// Update applies column updates. A "status" key is routed through the status
// history so the projection invariant holds; it returns nil, nil when the
// issue does not exist.
func (r *issueRepository) Update(ctx context.Context, id uint, updates map[string]any) (*models.Issue, error) {
	defer observability.TrackQuery("update", "issues")()

	var issue models.Issue
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&issue, id).Error; err != nil {
			return err
		}

		fields := make(map[string]any, len(updates))
		for k, v := range updates {
			fields[k] = v
		}
		if raw, ok := fields["status"]; ok {
			delete(fields, "status")
			status, ok := raw.(models.IssueStatus)
			if !ok {
				return models.NewValidationError(fmt.Sprintf("invalid status value %v", raw))
			}
			if status != issue.Status {
				if _, err := appendStatus(tx, id, status, nil); err != nil {
					return err
				}
			}
		}

		if len(fields) > 0 {
			if err := tx.Model(&issue).Updates(fields).Error; err != nil {
				return err
			}
		}
		return tx.First(&issue, id).Error
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return nil, storageError("update issue", err)
	}

	r.cache.Invalidate(ctx, cache.IssueKey(id))
	r.log.LogUpdate(ctx, map[string]any{"id": id, "fields": len(updates)})
	return &issue, nil
}

// AddStatusUpdate appends a history entry and moves the issue's status to it.
func (r *issueRepository) AddStatusUpdate(ctx context.Context, issueID uint, status models.IssueStatus, comment *string) (*models.IssueStatusUpdate, error) {
	if !status.Valid() {
		return nil, models.NewValidationError(fmt.Sprintf("unknown status %q", status))
	}
	defer observability.TrackQuery("status_update", "issues")()

	var update *models.IssueStatusUpdate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.Issue{}).Where("id = ?", issueID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return models.NewNotFoundError("issue", issueID)
		}
		var err error
		update, err = appendStatus(tx, issueID, status, comment)
		return err
	})
	if err != nil {
		if !models.IsNotFound(err) {
			r.log.LogError(ctx, err, "status_update")
		}
		return nil, storageError("add status update", err)
	}

	r.cache.Invalidate(ctx, cache.IssueKey(issueID))
	r.log.LogUpdate(ctx, map[string]any{"id": issueID, "status": status})
	return update, nil
}

func appendStatus(tx *gorm.DB, issueID uint, status models.IssueStatus, comment *string) (*models.IssueStatusUpdate, error) {
	update := &models.IssueStatusUpdate{IssueID: issueID, Status: status, Comment: comment}
	if err := tx.Create(update).Error; err != nil {
		return nil, err
	}
	err := tx.Model(&models.Issue{}).Where("id = ?", issueID).Updates(map[string]any{
		"status":     status,
		"updated_at": update.CreatedAt,
	}).Error
	if err != nil {
		return nil, err
	}
	return update, nil
}

// Delete removes the issue and everything referencing it in one transaction.
func (r *issueRepository) Delete(ctx context.Context, id uint) error {
	defer observability.TrackQuery("delete", "issues")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Issue{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("issue", id)
		}
		children := []any{
			&models.IssuePhoto{},
			&models.IssueVote{},
			&models.IssueFollower{},
			&models.IssueStatusUpdate{},
		}
		for _, child := range children {
			if err := tx.Where("issue_id = ?", id).Delete(child).Error; err != nil {
				return fmt.Errorf("delete %T: %w", child, err)
			}
		}
		return deleteContentReferences(tx, models.ContentTypeIssue, id)
	})
	if err != nil {
		if !models.IsNotFound(err) {
			r.log.LogError(ctx, err, "delete")
		}
		return storageError("delete issue", err)
	}

	r.cache.Invalidate(ctx, cache.IssueKey(id))
	r.log.LogDelete(ctx, map[string]any{"id": id})
	return nil
}
