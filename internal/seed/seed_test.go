package seed

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"civicboard/internal/database"
	"civicboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seed_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func testSeeder(db *gorm.DB) *Seeder {
	return NewSeeder(db, FactoryOptions{
		Seed:       42,
		BcryptCost: bcrypt.MinCost,
		Now:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	})
}

func TestSplitCounts(t *testing.T) {
	assert.Equal(t, []int{4, 3, 1, 2}, splitCounts(10, issueStatusWeights))
	assert.Equal(t, []int{0, 0, 0, 0}, splitCounts(0, issueStatusWeights))

	for _, n := range []int{1, 3, 7, 19, 101} {
		got := splitCounts(n, issueStatusWeights)
		sum := 0
		for _, c := range got {
			sum += c
		}
		assert.Equal(t, n, sum, "n=%d", n)
	}
}

func TestBuiltinPresets(t *testing.T) {
	presets, err := ParsePresets(builtinPresets)
	require.NoError(t, err)
	assert.Contains(t, presets, "small")
	assert.Contains(t, presets, "demo")

	p, err := LoadPreset(" Small ", "")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Users)
	assert.InDelta(t, 40.7128, p.Center.Lat, 1e-9)

	_, err = LoadPreset("huge", "")
	assert.ErrorContains(t, err, "available: demo, load, small")
}

func TestParsePresets_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not yaml", "presets: ["},
		{"empty", "presets: {}"},
		{"no users", "presets:\n  x:\n    users: 0\n"},
		{"negative events", "presets:\n  x:\n    users: 1\n    events: -1\n"},
		{"bad center", "presets:\n  x:\n    users: 1\n    center: {lat: 95, lng: 0}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePresets([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	p, err := LoadPreset("small", "")
	require.NoError(t, err)

	sum, err := testSeeder(db).Run(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, p.Users, sum.Users)
	assert.Equal(t, p.Events, sum.Events)
	assert.Equal(t, p.Issues, sum.Issues)
	assert.LessOrEqual(t, sum.Reports, p.Reports)

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, p.Users)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte(DefaultPassword)))

	// Counters match the vote rows.
	var drift int64
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM events e
		WHERE e.upvotes <> (SELECT COUNT(*) FROM event_votes v WHERE v.event_id = e.id)`).Scan(&drift).Error)
	assert.Zero(t, drift)
	require.NoError(t, db.Raw(`SELECT COUNT(*) FROM issues i
		WHERE i.upvotes <> (SELECT COUNT(*) FROM issue_votes v WHERE v.issue_id = i.id)`).Scan(&drift).Error)
	assert.Zero(t, drift)

	// Every issue's status is its newest history entry.
	var issues []models.Issue
	require.NoError(t, db.Find(&issues).Error)
	for _, issue := range issues {
		var last models.IssueStatusUpdate
		require.NoError(t, db.Where("issue_id = ?", issue.ID).Order("id DESC").First(&last).Error)
		assert.Equal(t, issue.Status, last.Status, "issue %d", issue.ID)
	}

	// Registrations stay within capacity and never include the organizer.
	var events []models.Event
	require.NoError(t, db.Find(&events).Error)
	for _, e := range events {
		var seats int64
		require.NoError(t, db.Model(&models.Interest{}).Where("event_id = ?", e.ID).
			Select("COALESCE(SUM(number_of_people), 0)").Row().Scan(&seats))
		if e.MaxAttendees != nil {
			assert.LessOrEqual(t, seats, int64(*e.MaxAttendees), "event %d", e.ID)
		}
		var own int64
		require.NoError(t, db.Model(&models.Interest{}).Where("event_id = ? AND user_id = ?", e.ID, e.OrganizerID).Count(&own).Error)
		assert.Zero(t, own)
	}
}

func TestSeeder_ClearAll(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	s := testSeeder(db)

	_, err := s.Run(ctx, Preset{Users: 3, Events: 2, Issues: 2, MaxVotes: 2, Registrations: true, Reports: 1})
	require.NoError(t, err)
	require.NoError(t, s.ClearAll(ctx))

	for _, m := range database.PersistentModels() {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Zero(t, n, "%T", m)
	}
}
