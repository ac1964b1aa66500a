package database

import (
	"context"
	"testing"

	"civicboard/internal/config"
	"civicboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.Config {
	return &config.Config{
		Env:          "test",
		DBDriver:     config.DriverSQLite,
		DBSQLitePath: "file::memory:",
	}
}

func TestConnect_SQLiteMigratesSchema(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)
	require.NoError(t, Ping(context.Background(), db))

	for _, m := range PersistentModels() {
		assert.True(t, db.Migrator().HasTable(m), "missing table for %T", m)
	}

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestConnect_TranslatesUniqueViolation(t *testing.T) {
	db, err := Connect(sqliteConfig())
	require.NoError(t, err)

	user := &models.User{Name: "a", Email: "dup@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(user).Error)

	err = db.Create(&models.EventVote{EventID: 1, UserID: user.ID}).Error
	require.NoError(t, err)
	err = db.Create(&models.EventVote{EventID: 1, UserID: user.ID}).Error
	assert.True(t, IsUniqueViolation(err), "unexpected error: %v", err)
}

func TestDialector_UnsupportedDriver(t *testing.T) {
	_, err := Dialector(&config.Config{DBDriver: "oracle"})
	assert.Error(t, err)
}

func TestPersistentModels_CoversContentTables(t *testing.T) {
	names := map[string]bool{}
	for _, m := range PersistentModels() {
		if tn, ok := m.(interface{ TableName() string }); ok {
			names[tn.TableName()] = true
		}
	}
	for _, table := range []string{
		"users", "events", "event_photos", "event_votes", "event_followers",
		"issues", "issue_photos", "issue_votes", "issue_followers",
		"issue_status_updates", "interests", "notifications",
		"event_feedback", "violation_reports",
	} {
		assert.True(t, names[table], "table %s not registered", table)
	}
}
