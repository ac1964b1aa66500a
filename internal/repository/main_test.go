package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"civicboard/internal/database"
	"civicboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// setupTestDB opens an isolated in-memory sqlite database with the production
// GORM configuration and schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock
}

func ptr[T any](v T) *T {
	return &v
}

func mustCreateUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%d@example.com", name, dbSeq.Add(1)),
		PasswordHash: "hash",
		Phone:        ptr("555-0100"),
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func mustCreateEvent(t *testing.T, db *gorm.DB, organizer *models.User, mutate func(*models.Event)) *models.Event {
	t.Helper()
	e := &models.Event{
		Title:       "Park cleanup",
		Description: "Bring gloves",
		Location:    "Riverside Park",
		Latitude:    40.7128,
		Longitude:   -74.0060,
		StartDate:   time.Date(2024, 1, 20, 9, 0, 0, 0, time.UTC),
		Category:    "Environment",
		OrganizerID: organizer.ID,
	}
	if mutate != nil {
		mutate(e)
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

func mustCreateIssue(t *testing.T, db *gorm.DB, reporter *models.User, mutate func(*models.Issue)) *models.Issue {
	t.Helper()
	i := &models.Issue{
		Title:       "Broken streetlight",
		Description: "Dark corner at night",
		Category:    "Infrastructure",
		Location:    "5th and Main",
		Latitude:    ptr(40.7130),
		Longitude:   ptr(-74.0050),
		Status:      models.IssueStatusReported,
	}
	if reporter != nil {
		i.ReporterID = &reporter.ID
	}
	if mutate != nil {
		mutate(i)
	}
	require.NoError(t, NewIssueRepository(db, nil).Create(context.Background(), i, nil))
	return i
}
