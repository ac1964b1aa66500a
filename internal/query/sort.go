package query

import (
	"fmt"
	"strings"
	"unicode"

	"civicboard/internal/models"
)

// Sort is a validated ORDER BY column and direction.
type Sort struct {
	Column string
	Desc   bool
}

// DefaultSort orders newest first.
var DefaultSort = Sort{Column: "created_at", Desc: true}

// Sortable builds an allow-list accepting each column by its snake_case name
// and its camelCase alias.
func Sortable(columns ...string) map[string]string {
	out := make(map[string]string, len(columns)*2)
	for _, col := range columns {
		out[col] = col
		out[camel(col)] = col
	}
	return out
}

// ParseSort accepts "field", "field:asc", "field:desc" or "-field". Empty input
// yields DefaultSort; a field outside s.Sortable is a validation error.
func ParseSort(raw string, s Schema) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultSort, nil
	}

	field, dir, hasDir := strings.Cut(raw, ":")
	desc := false
	if strings.HasPrefix(field, "-") {
		field = field[1:]
		desc = true
	}
	if hasDir {
		switch strings.ToLower(strings.TrimSpace(dir)) {
		case "asc":
			desc = false
		case "desc":
			desc = true
		default:
			return Sort{}, models.NewValidationError(fmt.Sprintf("invalid sort direction %q", dir))
		}
	}

	col, ok := s.Sortable[strings.TrimSpace(field)]
	if !ok {
		return Sort{}, models.NewValidationError(fmt.Sprintf("cannot sort %s by %q", s.Entity, field))
	}
	return Sort{Column: col, Desc: desc}, nil
}

// Clause renders the ORDER BY expression with an id tiebreak so pages are stable.
func (s Sort) Clause() string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	if s.Column == "id" {
		return "id " + dir
	}
	return fmt.Sprintf("%s %s, id %s", s.Column, dir, dir)
}

func camel(snake string) string {
	var b strings.Builder
	upper := false
	for _, r := range snake {
		if r == '_' {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
