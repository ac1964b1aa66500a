package repository

import (
	"context"
	"regexp"
	"testing"

	"civicboard/internal/cache"
	"civicboard/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecountAll_RepairsDrift(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	organizer := mustCreateUser(t, db, "org")

	drifted := mustCreateEvent(t, db, organizer, func(e *models.Event) { e.Upvotes = 40 })
	clean := mustCreateEvent(t, db, organizer, nil)
	for _, user := range []uint{1, 2, 3} {
		require.NoError(t, db.Create(&models.EventVote{EventID: drifted.ID, UserID: user}).Error)
	}

	n, err := RecountAll(ctx, db, models.ContentTypeEvent)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got models.Event
	require.NoError(t, db.First(&got, drifted.ID).Error)
	assert.Equal(t, int64(3), got.Upvotes)
	require.NoError(t, db.First(&got, clean.ID).Error)
	assert.Equal(t, int64(0), got.Upvotes)
}

func TestInvalidateAll_DropsStaleCountersAfterRecount(t *testing.T) {
	db := setupTestDB(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()
	c := cache.New(rdb)
	ctx := context.Background()

	organizer := mustCreateUser(t, db, "org")
	events := NewEventRepository(db, c)
	drifted := mustCreateEvent(t, db, organizer, func(e *models.Event) { e.Upvotes = 40 })
	issue := mustCreateIssue(t, db, nil, nil)
	require.NoError(t, c.SetJSON(ctx, cache.IssueKey(issue.ID), issue, cache.ContentTTL))

	cached, err := events.FindByID(ctx, drifted.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(40), cached.Upvotes)
	require.True(t, mr.Exists(cache.EventKey(drifted.ID)))

	_, err = RecountAll(ctx, db, models.ContentTypeEvent)
	require.NoError(t, err)
	n, err := InvalidateAll(ctx, db, c, models.ContentTypeEvent)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.False(t, mr.Exists(cache.EventKey(drifted.ID)))
	assert.True(t, mr.Exists(cache.IssueKey(issue.ID)), "other content types are untouched")

	fresh, err := events.FindByID(ctx, drifted.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.Upvotes)

	n, err = InvalidateAll(ctx, db, nil, models.ContentTypeIssue)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = InvalidateAll(ctx, db, c, models.ContentType("poll"))
	assert.True(t, models.IsValidation(err))
}

func TestRecount_Errors(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	_, err := Recount(ctx, db, models.ContentTypeIssue, 404)
	assert.True(t, models.IsNotFound(err))

	_, err = Recount(ctx, db, models.ContentType("poll"), 1)
	assert.True(t, models.IsValidation(err))
}

func TestRecount_SQLShape(t *testing.T) {
	db, mock := setupMockDB(t)

	mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE issues SET upvotes = (SELECT COUNT(*) FROM issue_votes WHERE issue_votes.issue_id = issues.id) WHERE id = $1`)).
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT upvotes FROM "issues" WHERE id = $1`)).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows([]string{"upvotes"}).AddRow(1))

	upvotes, err := Recount(context.Background(), db, models.ContentTypeIssue, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), upvotes)
	assert.NoError(t, mock.ExpectationsWereMet())
}
