package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"civicboard/internal/models"
	"civicboard/internal/query"
	"civicboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventRepoStub is a stub for repository.EventRepository.
type eventRepoStub struct {
	findManyFn func(context.Context, repository.ListOptions) (*repository.ListResult[*models.Event], error)
	findByIDFn func(context.Context, uint, []string) (*models.Event, error)
	createFn   func(context.Context, *models.Event, []models.EventPhoto) error
	updateFn   func(context.Context, uint, map[string]any) (*models.Event, error)
	deleteFn   func(context.Context, uint) error
}

func (s *eventRepoStub) FindMany(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[*models.Event], error) {
	return s.findManyFn(ctx, opts)
}
func (s *eventRepoStub) FindByID(ctx context.Context, id uint, include []string) (*models.Event, error) {
	return s.findByIDFn(ctx, id, include)
}
func (s *eventRepoStub) Create(ctx context.Context, event *models.Event, photos []models.EventPhoto) error {
	return s.createFn(ctx, event, photos)
}
func (s *eventRepoStub) Update(ctx context.Context, id uint, updates map[string]any) (*models.Event, error) {
	return s.updateFn(ctx, id, updates)
}
func (s *eventRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopEventRepo() *eventRepoStub {
	return &eventRepoStub{
		findManyFn: func(_ context.Context, _ repository.ListOptions) (*repository.ListResult[*models.Event], error) {
			return &repository.ListResult[*models.Event]{Records: []*models.Event{}}, nil
		},
		findByIDFn: func(_ context.Context, _ uint, _ []string) (*models.Event, error) { return nil, nil },
		createFn:   func(_ context.Context, _ *models.Event, _ []models.EventPhoto) error { return nil },
		updateFn:   func(_ context.Context, _ uint, _ map[string]any) (*models.Event, error) { return nil, nil },
		deleteFn:   func(_ context.Context, _ uint) error { return nil },
	}
}

// issueRepoStub is a stub for repository.IssueRepository.
type issueRepoStub struct {
	findManyFn        func(context.Context, repository.ListOptions) (*repository.ListResult[*models.Issue], error)
	findByIDFn        func(context.Context, uint, []string) (*models.Issue, error)
	createFn          func(context.Context, *models.Issue, []models.IssuePhoto) error
	updateFn          func(context.Context, uint, map[string]any) (*models.Issue, error)
	deleteFn          func(context.Context, uint) error
	addStatusUpdateFn func(context.Context, uint, models.IssueStatus, *string) (*models.IssueStatusUpdate, error)
}

func (s *issueRepoStub) FindMany(ctx context.Context, opts repository.ListOptions) (*repository.ListResult[*models.Issue], error) {
	return s.findManyFn(ctx, opts)
}
func (s *issueRepoStub) FindByID(ctx context.Context, id uint, include []string) (*models.Issue, error) {
	return s.findByIDFn(ctx, id, include)
}
func (s *issueRepoStub) Create(ctx context.Context, issue *models.Issue, photos []models.IssuePhoto) error {
	return s.createFn(ctx, issue, photos)
}
func (s *issueRepoStub) Update(ctx context.Context, id uint, updates map[string]any) (*models.Issue, error) {
	return s.updateFn(ctx, id, updates)
}
func (s *issueRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *issueRepoStub) AddStatusUpdate(ctx context.Context, issueID uint, status models.IssueStatus, comment *string) (*models.IssueStatusUpdate, error) {
	return s.addStatusUpdateFn(ctx, issueID, status, comment)
}

func noopIssueRepo() *issueRepoStub {
	return &issueRepoStub{
		findManyFn: func(_ context.Context, _ repository.ListOptions) (*repository.ListResult[*models.Issue], error) {
			return &repository.ListResult[*models.Issue]{Records: []*models.Issue{}}, nil
		},
		findByIDFn: func(_ context.Context, _ uint, _ []string) (*models.Issue, error) { return nil, nil },
		createFn:   func(_ context.Context, _ *models.Issue, _ []models.IssuePhoto) error { return nil },
		updateFn:   func(_ context.Context, _ uint, _ map[string]any) (*models.Issue, error) { return nil, nil },
		deleteFn:   func(_ context.Context, _ uint) error { return nil },
		addStatusUpdateFn: func(_ context.Context, id uint, status models.IssueStatus, comment *string) (*models.IssueStatusUpdate, error) {
			return &models.IssueStatusUpdate{IssueID: id, Status: status, Comment: comment}, nil
		},
	}
}

// toggleRepoStub is a stub for repository.ToggleRepository.
type toggleRepoStub struct {
	toggleFn      func(context.Context, models.ToggleKind, models.ContentType, uint, uint) (*repository.ToggleResult, error)
	isOnFn        func(context.Context, models.ToggleKind, models.ContentType, uint, uint) (bool, error)
	followerIDsFn func(context.Context, models.ContentType, uint) ([]uint, error)
}

func (s *toggleRepoStub) Toggle(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (*repository.ToggleResult, error) {
	return s.toggleFn(ctx, kind, ct, contentID, userID)
}
func (s *toggleRepoStub) IsOn(ctx context.Context, kind models.ToggleKind, ct models.ContentType, contentID, userID uint) (bool, error) {
	return s.isOnFn(ctx, kind, ct, contentID, userID)
}
func (s *toggleRepoStub) FollowerIDs(ctx context.Context, ct models.ContentType, contentID uint) ([]uint, error) {
	return s.followerIDsFn(ctx, ct, contentID)
}

func noopToggleRepo() *toggleRepoStub {
	return &toggleRepoStub{
		toggleFn: func(_ context.Context, kind models.ToggleKind, ct models.ContentType, id, _ uint) (*repository.ToggleResult, error) {
			return &repository.ToggleResult{Kind: kind, ContentType: ct, ContentID: id, State: true, Count: 1}, nil
		},
		isOnFn:        func(_ context.Context, _ models.ToggleKind, _ models.ContentType, _, _ uint) (bool, error) { return false, nil },
		followerIDsFn: func(_ context.Context, _ models.ContentType, _ uint) ([]uint, error) { return nil, nil },
	}
}

// notificationRepoStub records every stored notification.
type notificationRepoStub struct {
	mu      sync.Mutex
	stored  []models.Notification
	failErr error
}

func (s *notificationRepoStub) CreateBatch(_ context.Context, notes []models.Notification) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, notes...)
	return nil
}
func (s *notificationRepoStub) ListForUser(_ context.Context, userID uint, _ bool, page query.Page) (*repository.ListResult[*models.Notification], error) {
	out := []*models.Notification{}
	for i := range s.stored {
		if s.stored[i].UserID == userID {
			out = append(out, &s.stored[i])
		}
	}
	return &repository.ListResult[*models.Notification]{Records: out, TotalCount: int64(len(out)), Page: page.Number, Limit: page.Limit}, nil
}
func (s *notificationRepoStub) MarkRead(_ context.Context, _ uint, ids []uint) (int64, error) {
	return int64(len(ids)), nil
}

// interestRepoStub is a stub for repository.InterestRepository.
type interestRepoStub struct {
	registerFn   func(context.Context, uint, uint, int, time.Time) (*models.Interest, error)
	updateFn     func(context.Context, uint, uint, int, time.Time) (*models.Interest, error)
	unregisterFn func(context.Context, uint, uint) (bool, error)
	toggleFn     func(context.Context, uint, uint, time.Time) (*repository.RegistrationToggle, error)
}

func (s *interestRepoStub) Register(ctx context.Context, eventID, userID uint, n int, now time.Time) (*models.Interest, error) {
	return s.registerFn(ctx, eventID, userID, n, now)
}
func (s *interestRepoStub) UpdateRegistration(ctx context.Context, eventID, userID uint, n int, now time.Time) (*models.Interest, error) {
	return s.updateFn(ctx, eventID, userID, n, now)
}
func (s *interestRepoStub) Unregister(ctx context.Context, eventID, userID uint) (bool, error) {
	return s.unregisterFn(ctx, eventID, userID)
}
func (s *interestRepoStub) ToggleRegistration(ctx context.Context, eventID, userID uint, now time.Time) (*repository.RegistrationToggle, error) {
	return s.toggleFn(ctx, eventID, userID, now)
}
func (s *interestRepoStub) Find(_ context.Context, _, _ uint) (*models.Interest, error) {
	return nil, nil
}
func (s *interestRepoStub) ListByEvent(_ context.Context, _ uint) ([]models.Interest, error) {
	return []models.Interest{}, nil
}
func (s *interestRepoStub) ListByUser(_ context.Context, _ uint) ([]models.Interest, error) {
	return []models.Interest{}, nil
}

func noopInterestRepo() *interestRepoStub {
	newInterest := func(eventID, userID uint, n int) *models.Interest {
		return &models.Interest{EventID: eventID, UserID: userID, NumberOfPeople: n, UserName: "Ada"}
	}
	return &interestRepoStub{
		registerFn: func(_ context.Context, eventID, userID uint, n int, _ time.Time) (*models.Interest, error) {
			return newInterest(eventID, userID, n), nil
		},
		updateFn: func(_ context.Context, eventID, userID uint, n int, _ time.Time) (*models.Interest, error) {
			return newInterest(eventID, userID, n), nil
		},
		unregisterFn: func(_ context.Context, _, _ uint) (bool, error) { return true, nil },
		toggleFn: func(_ context.Context, eventID, userID uint, _ time.Time) (*repository.RegistrationToggle, error) {
			return &repository.RegistrationToggle{State: true, Interest: newInterest(eventID, userID, 1)}, nil
		},
	}
}

// feedbackRepoStub is a stub for repository.FeedbackRepository.
type feedbackRepoStub struct {
	created []*models.EventFeedback
}

func (s *feedbackRepoStub) Create(_ context.Context, fb *models.EventFeedback) error {
	s.created = append(s.created, fb)
	return nil
}
func (s *feedbackRepoStub) ListByEvent(_ context.Context, _ uint) ([]models.EventFeedback, error) {
	return nil, nil
}
func (s *feedbackRepoStub) AverageRating(_ context.Context, _ uint) (float64, int64, error) {
	return 4.5, 2, nil
}

// reportRepoStub is a stub for repository.ReportRepository.
type reportRepoStub struct {
	createFn func(context.Context, *models.ViolationReport) error
	listFn   func(context.Context, models.ReportStatus, query.Page) (*repository.ListResult[*models.ViolationReport], error)
	reviewFn func(context.Context, uint, models.ReportStatus, time.Time) (*models.ViolationReport, error)
}

func (s *reportRepoStub) Create(ctx context.Context, r *models.ViolationReport) error {
	return s.createFn(ctx, r)
}
func (s *reportRepoStub) FindByID(_ context.Context, _ uint) (*models.ViolationReport, error) {
	return nil, nil
}
func (s *reportRepoStub) List(ctx context.Context, status models.ReportStatus, page query.Page) (*repository.ListResult[*models.ViolationReport], error) {
	return s.listFn(ctx, status, page)
}
func (s *reportRepoStub) Review(ctx context.Context, id uint, status models.ReportStatus, at time.Time) (*models.ViolationReport, error) {
	return s.reviewFn(ctx, id, status, at)
}

func noopReportRepo() *reportRepoStub {
	return &reportRepoStub{
		createFn: func(_ context.Context, _ *models.ViolationReport) error { return nil },
		listFn: func(_ context.Context, _ models.ReportStatus, page query.Page) (*repository.ListResult[*models.ViolationReport], error) {
			return &repository.ListResult[*models.ViolationReport]{Records: []*models.ViolationReport{}, Page: page.Number, Limit: page.Limit}, nil
		},
		reviewFn: func(_ context.Context, id uint, status models.ReportStatus, at time.Time) (*models.ViolationReport, error) {
			return &models.ViolationReport{ID: id, Status: status, ReviewedAt: &at}, nil
		},
	}
}

// publisherStub records published messages.
type publisherStub struct {
	notifications []models.Notification
	updates       []string
	publishErr    error
}

func (p *publisherStub) PublishNotifications(_ context.Context, notes []models.Notification) error {
	if p.publishErr != nil {
		return p.publishErr
	}
	p.notifications = append(p.notifications, notes...)
	return nil
}

func (p *publisherStub) PublishContentUpdate(_ context.Context, _ models.ContentType, _ uint, event string, _ any) error {
	p.updates = append(p.updates, event)
	return nil
}

var errStorage = errors.New("storage down")

var fixedNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{DefaultPageLimit: 20, MaxPageLimit: 100, Now: func() time.Time { return fixedNow }}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func ptr[T any](v T) *T { return &v }
