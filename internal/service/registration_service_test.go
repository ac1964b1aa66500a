package service

import (
	"context"
	"testing"
	"time"

	"civicboard/internal/models"
	"civicboard/internal/query"
	"civicboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func organizerEvents(organizerID uint) *eventRepoStub {
	events := noopEventRepo()
	events.findByIDFn = func(_ context.Context, id uint, _ []string) (*models.Event, error) {
		return &models.Event{ID: id, Title: "Food drive", OrganizerID: organizerID}, nil
	}
	return events
}

func TestRegistrationService_Register(t *testing.T) {
	interests := noopInterestRepo()
	var gotPeople int
	var gotNow time.Time
	interests.registerFn = func(_ context.Context, eventID, userID uint, n int, now time.Time) (*models.Interest, error) {
		gotPeople, gotNow = n, now
		return &models.Interest{EventID: eventID, UserID: userID, NumberOfPeople: n, UserName: "Ada"}, nil
	}
	notes := &notificationRepoStub{}
	pub := &publisherStub{}
	svc := NewRegistrationService(organizerEvents(1), interests, &feedbackRepoStub{}, notes, pub, testOptions())

	interest, err := svc.Register(context.Background(), RegisterInput{EventID: 3, UserID: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, gotPeople, "party size defaults to one")
	assert.Equal(t, fixedNow, gotNow)
	assert.Equal(t, uint(7), interest.UserID)

	require.Len(t, notes.stored, 1)
	assert.Equal(t, uint(1), notes.stored[0].UserID)
	assert.Equal(t, models.NotificationEventRegistration, notes.stored[0].Type)
	assert.Equal(t, models.ContentTypeEvent, notes.stored[0].ContentType)
	assert.Len(t, pub.notifications, 1)
}

func TestRegistrationService_Register_PublishFailureIsLogged(t *testing.T) {
	logs := captureLogs(t)
	notes := &notificationRepoStub{}
	pub := &publisherStub{publishErr: errStorage}
	svc := NewRegistrationService(organizerEvents(1), noopInterestRepo(), &feedbackRepoStub{}, notes, pub, testOptions())

	_, err := svc.Register(context.Background(), RegisterInput{EventID: 3, UserID: 7})
	require.NoError(t, err)
	assert.Len(t, notes.stored, 1)
	assert.Contains(t, logs.String(), "registration notification publish failed")
}

func TestRegistrationService_Register_OrganizerNotNotifiedAboutThemselves(t *testing.T) {
	notes := &notificationRepoStub{}
	svc := NewRegistrationService(organizerEvents(7), noopInterestRepo(), &feedbackRepoStub{}, notes, nil, testOptions())

	_, err := svc.Register(context.Background(), RegisterInput{EventID: 3, UserID: 7, NumberOfPeople: 2})
	require.NoError(t, err)
	assert.Empty(t, notes.stored)
}

func TestRegistrationService_Validation(t *testing.T) {
	svc := NewRegistrationService(organizerEvents(1), noopInterestRepo(), &feedbackRepoStub{}, &notificationRepoStub{}, nil, testOptions())
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{EventID: 0, UserID: 7})
	assertValidationError(t, err)
	_, err = svc.Register(ctx, RegisterInput{EventID: 3, UserID: 7, NumberOfPeople: -2})
	assertValidationError(t, err)
	_, err = svc.UpdateRegistration(ctx, RegisterInput{EventID: 3, UserID: 7, NumberOfPeople: maxPartySize + 1})
	assertValidationError(t, err)
	_, err = svc.Unregister(ctx, 3, 0)
	assertValidationError(t, err)
	_, err = svc.ToggleRegistration(ctx, 0, 7)
	assertValidationError(t, err)
}

func TestRegistrationService_ConflictPropagates(t *testing.T) {
	interests := noopInterestRepo()
	interests.registerFn = func(context.Context, uint, uint, int, time.Time) (*models.Interest, error) {
		return nil, models.NewConflictError("event is at capacity")
	}
	notes := &notificationRepoStub{}
	svc := NewRegistrationService(organizerEvents(1), interests, &feedbackRepoStub{}, notes, nil, testOptions())

	_, err := svc.Register(context.Background(), RegisterInput{EventID: 3, UserID: 7})
	assert.True(t, models.IsConflict(err))
	assert.Empty(t, notes.stored)
}

func TestRegistrationService_ToggleOffDoesNotNotify(t *testing.T) {
	interests := noopInterestRepo()
	interests.toggleFn = func(context.Context, uint, uint, time.Time) (*repository.RegistrationToggle, error) {
		return &repository.RegistrationToggle{State: false}, nil
	}
	notes := &notificationRepoStub{}
	svc := NewRegistrationService(organizerEvents(1), interests, &feedbackRepoStub{}, notes, nil, testOptions())

	res, err := svc.ToggleRegistration(context.Background(), 3, 7)
	require.NoError(t, err)
	assert.False(t, res.State)
	assert.Empty(t, notes.stored)
}

func TestRegistrationService_Feedback(t *testing.T) {
	fb := &feedbackRepoStub{}
	svc := NewRegistrationService(organizerEvents(1), noopInterestRepo(), fb, &notificationRepoStub{}, nil, testOptions())
	ctx := context.Background()

	for _, rating := range []int{0, 6, -1} {
		_, err := svc.SubmitFeedback(ctx, FeedbackInput{EventID: 3, UserID: 7, Rating: rating})
		assertValidationError(t, err)
	}

	created, err := svc.SubmitFeedback(ctx, FeedbackInput{EventID: 3, UserID: 7, Rating: 4, Comment: "  great  "})
	require.NoError(t, err)
	assert.Equal(t, "great", created.Comment)
	require.Len(t, fb.created, 1)

	summary, err := svc.FeedbackSummary(ctx, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, summary.AverageRating, 1e-9)
	assert.Equal(t, int64(2), summary.Count)
	assert.NotNil(t, summary.Items)
}

func TestReportService_ReportContent(t *testing.T) {
	reports := noopReportRepo()
	var stored *models.ViolationReport
	reports.createFn = func(_ context.Context, r *models.ViolationReport) error {
		stored = r
		return nil
	}
	svc := NewReportService(reports, testOptions())
	ctx := context.Background()

	_, err := svc.ReportContent(ctx, ReportInput{ContentType: "comment", ContentID: 1, ReporterID: 2, Reason: "spam"})
	assertValidationError(t, err)
	_, err = svc.ReportContent(ctx, ReportInput{ContentType: "issue", ContentID: 1, ReporterID: 2, Reason: "  "})
	assertValidationError(t, err)
	_, err = svc.ReportContent(ctx, ReportInput{ContentType: "issue", ContentID: 0, ReporterID: 2, Reason: "spam"})
	assertValidationError(t, err)

	report, err := svc.ReportContent(ctx, ReportInput{ContentType: "issue", ContentID: 1, ReporterID: 2, Reason: " spam ", Description: ptr(" ad ")})
	require.NoError(t, err)
	assert.Equal(t, models.ContentTypeIssue, stored.ContentType)
	assert.Equal(t, "spam", report.Reason)
	assert.Equal(t, "ad", *report.Description)
	assert.Equal(t, models.ReportStatusPending, report.Status)
}

func TestReportService_DuplicateIsConflict(t *testing.T) {
	reports := noopReportRepo()
	reports.createFn = func(context.Context, *models.ViolationReport) error {
		return models.NewConflictError("you have already reported this content")
	}
	svc := NewReportService(reports, testOptions())

	_, err := svc.ReportContent(context.Background(), ReportInput{ContentType: "event", ContentID: 1, ReporterID: 2, Reason: "spam"})
	assert.True(t, models.IsConflict(err))
}

func TestReportService_ListAndReview(t *testing.T) {
	reports := noopReportRepo()
	var gotStatus models.ReportStatus
	var gotPage query.Page
	reports.listFn = func(_ context.Context, status models.ReportStatus, page query.Page) (*repository.ListResult[*models.ViolationReport], error) {
		gotStatus, gotPage = status, page
		return &repository.ListResult[*models.ViolationReport]{}, nil
	}
	svc := NewReportService(reports, testOptions())
	ctx := context.Background()

	_, err := svc.ListReports(ctx, " Pending ", query.Page{Number: 2})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, gotStatus)
	assert.Equal(t, query.Page{Number: 2, Limit: 20}, gotPage)

	report, err := svc.ReviewReport(ctx, 9, "Resolved")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, report.Status)
	assert.Equal(t, fixedNow, *report.ReviewedAt)
}

func TestNotificationService(t *testing.T) {
	notes := &notificationRepoStub{stored: []models.Notification{{UserID: 1, Message: "a"}, {UserID: 2, Message: "b"}}}
	svc := NewNotificationService(notes, testOptions())
	ctx := context.Background()

	_, err := svc.List(ctx, 0, false, query.Page{})
	assertValidationError(t, err)

	res, err := svc.List(ctx, 1, false, query.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)
	assert.Equal(t, 20, res.Limit)

	n, err := svc.MarkRead(ctx, 1, []uint{4, 5})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
