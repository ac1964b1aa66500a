package repository

import (
	"context"
	"encoding/json"
	"testing"

	"civicboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIncludes(t *testing.T) {
	in, err := ParseIncludes(models.ContentTypeIssue, []string{"reporter, photos", "status_updates", ""})
	require.NoError(t, err)
	assert.True(t, in.Has(IncludeReporter))
	assert.True(t, in.Has(IncludePhotos))
	assert.True(t, in.Has(IncludeStatusUpdates))
	assert.False(t, in.Has(IncludeVotes))

	_, err = ParseIncludes(models.ContentTypeEvent, []string{"statusUpdates"})
	assert.True(t, models.IsValidation(err))
	_, err = ParseIncludes(models.ContentTypeIssue, []string{"feedback"})
	assert.True(t, models.IsValidation(err))
	_, err = ParseIncludes(models.ContentTypeEvent, []string{"comments"})
	assert.True(t, models.IsValidation(err))
}

func TestEventIncludes_BatchedAndShaped(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEventRepository(db, nil)
	toggles := NewToggleRepository(db, nil)
	ctx := context.Background()

	organizer := mustCreateUser(t, db, "organizer")
	organizer.IsVerifiedOrganizer = true
	require.NoError(t, db.Save(organizer).Error)

	withPhotos := &models.Event{
		Title: "With photos", Latitude: 1, Longitude: 1, OrganizerID: organizer.ID,
	}
	require.NoError(t, repo.Create(ctx, withPhotos, []models.EventPhoto{
		{URL: "https://img.example/1.jpg"},
		{URL: "https://img.example/2.jpg", Caption: "crowd"},
	}))
	bare := mustCreateEvent(t, db, organizer, func(e *models.Event) { e.Title = "Bare" })

	_, err := toggles.Toggle(ctx, models.ToggleVote, models.ContentTypeEvent, withPhotos.ID, 11)
	require.NoError(t, err)

	res, err := repo.FindMany(ctx, ListOptions{
		Include: []string{IncludeFeedback, IncludeVotes, IncludePhotos, IncludeOrganizer},
		Sort:    "id",
	})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)

	first, second := res.Records[0], res.Records[1]
	require.Equal(t, withPhotos.ID, first.ID)
	require.Equal(t, bare.ID, second.ID)

	require.NotNil(t, first.Organizer)
	assert.Equal(t, organizer.Name, first.Organizer.Name)
	assert.True(t, first.Organizer.IsVerifiedOrganizer)
	require.Len(t, first.Photos, 2)
	assert.Equal(t, "https://img.example/1.jpg", first.Photos[0].URL)
	assert.Equal(t, "crowd", first.Photos[1].Caption)
	require.Len(t, first.Votes, 1)
	assert.Equal(t, uint(11), first.Votes[0].UserID)

	assert.NotNil(t, second.Photos)
	assert.Empty(t, second.Photos)
	assert.NotNil(t, second.Votes)
	assert.NotNil(t, second.Feedback)
	assert.Nil(t, second.Followers, "relations not requested stay unset")

	raw, err := json.Marshal(first.Organizer)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
	assert.NotContains(t, string(raw), "hash")
}

func TestIssueIncludes_AnonymousReporterAndHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIssueRepository(db, nil)
	ctx := context.Background()

	reporter := mustCreateUser(t, db, "resident")
	named := mustCreateIssue(t, db, reporter, nil)
	anonymous := mustCreateIssue(t, db, reporter, func(i *models.Issue) { i.IsAnonymous = true })
	orphan := mustCreateIssue(t, db, nil, nil)

	_, err := repo.AddStatusUpdate(ctx, named.ID, models.IssueStatusInProgress, ptr("crew dispatched"))
	require.NoError(t, err)

	got, err := repo.FindByID(ctx, named.ID, []string{"reporter", "statusUpdates"})
	require.NoError(t, err)
	require.NotNil(t, got.Reporter)
	assert.Equal(t, reporter.ID, got.Reporter.ID)
	require.Len(t, got.StatusUpdates, 2)
	assert.Equal(t, models.IssueStatusReported, got.StatusUpdates[0].Status)
	assert.Equal(t, models.IssueStatusInProgress, got.StatusUpdates[1].Status)
	assert.Equal(t, "crew dispatched", *got.StatusUpdates[1].Comment)

	got, err = repo.FindByID(ctx, anonymous.ID, []string{"reporter"})
	require.NoError(t, err)
	assert.Nil(t, got.Reporter)

	got, err = repo.FindByID(ctx, orphan.ID, []string{"reporter", "followers"})
	require.NoError(t, err)
	assert.Nil(t, got.Reporter)
	assert.NotNil(t, got.Followers)
	assert.Empty(t, got.Followers)
}

func TestIncludes_OrderOfRelationsIsIrrelevant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIssueRepository(db, nil)
	ctx := context.Background()
	reporter := mustCreateUser(t, db, "resident")
	issue := mustCreateIssue(t, db, reporter, nil)

	a, err := repo.FindByID(ctx, issue.ID, []string{"photos", "reporter", "votes"})
	require.NoError(t, err)
	b, err := repo.FindByID(ctx, issue.ID, []string{"votes", "reporter", "photos"})
	require.NoError(t, err)

	ja, err := json.Marshal(a)
	require.NoError(t, err)
	jb, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, string(ja), string(jb))
}
