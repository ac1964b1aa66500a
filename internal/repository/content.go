// Package repository provides data access layer implementations for the content core.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"civicboard/internal/geo"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/query"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// EventSchema exposes event columns to the predicate builder.
var EventSchema = query.Schema{
	Entity:         "events",
	SearchColumns:  []string{"title", "description", "location"},
	CategoryColumn: "category",
	DateColumn:     "start_date",
	OwnerColumn:    "organizer_id",
	ApprovedColumn: "is_approved",
	FlaggedColumn:  "is_flagged",
	Sortable:       query.Sortable("id", "created_at", "updated_at", "start_date", "title", "category", "upvotes"),
}

// IssueSchema exposes issue columns to the predicate builder. Issues have no
// approval step and no date filter.
var IssueSchema = query.Schema{
	Entity:          "issues",
	SearchColumns:   []string{"title", "description", "location"},
	CategoryColumn:  "category",
	StatusColumn:    "status",
	OwnerColumn:     "reporter_id",
	FlaggedColumn:   "is_flagged",
	AnonymousColumn: "is_anonymous",
	Sortable:        query.Sortable("id", "created_at", "updated_at", "title", "category", "status", "upvotes"),
}

// ListOptions is a findMany request.
type ListOptions struct {
	Filter  query.Filter
	Include []string
	Sort    string
	Page    query.Page
	Geo     *geo.Radius
	// Now anchors date-range filters; zero means time.Now().
	Now time.Time
}

func (o ListOptions) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// ListResult is one page of records plus the total matching count. When a
// geo radius was applied, TotalCount counts post-radius matches.
type ListResult[T any] struct {
	Records    []T   `json:"records"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func newListResult[T any](records []T, total int64, page query.Page) *ListResult[T] {
	if records == nil {
		records = []T{}
	}
	return &ListResult[T]{
		Records:    records,
		TotalCount: total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: query.TotalPages(total, page.Limit),
	}
}

// findMany runs the shared list pipeline: predicates, sort, then either a
// parallel rows/COUNT pair or, with a radius, an unpaginated candidate fetch
// trimmed in memory.
func findMany[T geo.Locatable](ctx context.Context, db *gorm.DB, model any, schema query.Schema, opts ListOptions) (*ListResult[T], error) {
	preds, err := query.Build(opts.Filter, schema, opts.now())
	if err != nil {
		return nil, err
	}
	sort, err := query.ParseSort(opts.Sort, schema)
	if err != nil {
		return nil, err
	}
	page := opts.Page.Normalized()

	base := func(ctx context.Context) *gorm.DB {
		return db.WithContext(ctx).Model(model).Scopes(query.Scope(preds))
	}

	if opts.Geo != nil {
		if err := opts.Geo.Validate(); err != nil {
			return nil, err
		}
		defer observability.TrackQuery("find_many_geo", schema.Entity)()

		var candidates []T
		if err := base(ctx).Order(sort.Clause()).Find(&candidates).Error; err != nil {
			return nil, storageError("list "+schema.Entity, err)
		}
		kept := geo.Filter(candidates, *opts.Geo)
		observability.GeoFilteredRecords.WithLabelValues(schema.Entity).Add(float64(len(candidates) - len(kept)))

		lo, hi := page.Window(len(kept))
		return newListResult(kept[lo:hi], int64(len(kept)), page), nil
	}

	defer observability.TrackQuery("find_many", schema.Entity)()

	var (
		rows  []T
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return base(gctx).Order(sort.Clause()).Limit(page.Limit).Offset(page.Offset()).Find(&rows).Error
	})
	g.Go(func() error {
		return base(gctx).Count(&total).Error
	})
	if err := g.Wait(); err != nil {
		return nil, storageError("list "+schema.Entity, err)
	}
	return newListResult(rows, total, page), nil
}

// contentExists reports whether the referenced event or issue row exists.
func contentExists(ctx context.Context, db *gorm.DB, ct models.ContentType, id uint) (bool, error) {
	table, err := contentTable(ct)
	if err != nil {
		return false, err
	}
	var n int64
	if err := db.WithContext(ctx).Table(table).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storageError("lookup "+table, err)
	}
	return n > 0, nil
}

func contentTable(ct models.ContentType) (string, error) {
	switch ct {
	case models.ContentTypeEvent:
		return "events", nil
	case models.ContentTypeIssue:
		return "issues", nil
	}
	return "", models.NewValidationError(fmt.Sprintf("unknown content type %q", ct))
}

// storageError wraps adapter failures as STORAGE_ERROR. AppErrors raised
// inside transactions pass through untouched.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewStorageError(fmt.Errorf("%s: %w", op, err))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
