package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// pgUniqueViolation is the SQLSTATE postgres reports for unique index conflicts.
const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err came from a unique index rejecting an
// insert, whichever driver produced it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	// sqlite errors are not always translated (e.g. raw Exec paths).
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
