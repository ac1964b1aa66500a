// Package query turns structured list requests into parameterized SQL
// predicates, ORDER BY clauses and page windows.
package query

import (
	"fmt"
	"strings"
	"time"

	"civicboard/internal/models"

	"gorm.io/gorm"
)

// Filter is a structured list request. Zero values, and the literal "all" for
// string fields, mean "no filter".
type Filter struct {
	Search     string `json:"search,omitempty"`
	Category   string `json:"category,omitempty"`
	Status     string `json:"status,omitempty"`
	DateRange  string `json:"date_range,omitempty"`
	IsApproved *bool  `json:"is_approved,omitempty"`
	IsFlagged  *bool  `json:"is_flagged,omitempty"`
	OwnerID    *uint  `json:"owner_id,omitempty"`
	// IncludeAnonymous lets an owner filter match anonymous rows. Only set it
	// when the caller is that owner or a moderator.
	IncludeAnonymous bool `json:"-"`
}

// Predicate is one AND-combined SQL fragment with its bound parameters.
type Predicate struct {
	SQL  string
	Args []any
}

// Schema describes the columns an entity exposes to filtering and sorting.
// An empty column name means the entity does not support that filter.
type Schema struct {
	Entity         string
	SearchColumns  []string
	CategoryColumn string
	StatusColumn   string
	DateColumn     string
	OwnerColumn    string
	ApprovedColumn string
	FlaggedColumn  string
	// AnonymousColumn hides anonymous rows from owner filters.
	AnonymousColumn string
	// Sortable maps accepted sort names to their column.
	Sortable map[string]string
}

// isUnset reports whether a string filter value means "no filter".
func isUnset(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// Build translates f into ordered predicates for s. now anchors date-range
// tags and is interpreted in its own location.
func Build(f Filter, s Schema, now time.Time) ([]Predicate, error) {
	var preds []Predicate

	if term := strings.TrimSpace(f.Search); term != "" {
		if len(s.SearchColumns) == 0 {
			return nil, unsupported("search", s.Entity)
		}
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		parts := make([]string, 0, len(s.SearchColumns))
		args := make([]any, 0, len(s.SearchColumns))
		for _, col := range s.SearchColumns {
			parts = append(parts, fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, col))
			args = append(args, pattern)
		}
		preds = append(preds, Predicate{SQL: "(" + strings.Join(parts, " OR ") + ")", Args: args})
	}

	if !isUnset(f.Category) {
		if s.CategoryColumn == "" {
			return nil, unsupported("category", s.Entity)
		}
		preds = append(preds, equals(s.CategoryColumn, strings.TrimSpace(f.Category)))
	}

	if !isUnset(f.Status) {
		if s.StatusColumn == "" {
			return nil, unsupported("status", s.Entity)
		}
		status := models.IssueStatus(strings.TrimSpace(f.Status))
		if !status.Valid() {
			return nil, models.NewValidationError(fmt.Sprintf("unknown status %q", f.Status))
		}
		preds = append(preds, equals(s.StatusColumn, string(status)))
	}

	if !isUnset(f.DateRange) {
		if s.DateColumn == "" {
			return nil, unsupported("date_range", s.Entity)
		}
		start, end, err := ResolveDateRange(f.DateRange, now)
		if err != nil {
			return nil, err
		}
		preds = append(preds, Predicate{
			SQL:  fmt.Sprintf("%s >= ? AND %s < ?", s.DateColumn, s.DateColumn),
			Args: []any{start, end},
		})
	}

	if f.IsApproved != nil {
		if s.ApprovedColumn == "" {
			return nil, unsupported("is_approved", s.Entity)
		}
		preds = append(preds, equals(s.ApprovedColumn, *f.IsApproved))
	}

	if f.IsFlagged != nil {
		if s.FlaggedColumn == "" {
			return nil, unsupported("is_flagged", s.Entity)
		}
		preds = append(preds, equals(s.FlaggedColumn, *f.IsFlagged))
	}

	if f.OwnerID != nil {
		if s.OwnerColumn == "" {
			return nil, unsupported("owner_id", s.Entity)
		}
		preds = append(preds, equals(s.OwnerColumn, *f.OwnerID))
		if s.AnonymousColumn != "" && !f.IncludeAnonymous {
			preds = append(preds, equals(s.AnonymousColumn, false))
		}
	}

	return preds, nil
}

// Scope applies preds to a GORM query.
func Scope(preds []Predicate) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, p := range preds {
			db = db.Where(p.SQL, p.Args...)
		}
		return db
	}
}

func equals(col string, v any) Predicate {
	return Predicate{SQL: col + " = ?", Args: []any{v}}
}

func unsupported(filter, entity string) error {
	return models.NewValidationError(fmt.Sprintf("%s filter is not supported for %s", filter, entity))
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
