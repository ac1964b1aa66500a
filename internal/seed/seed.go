package seed

import (
	"context"
	"fmt"
	"log/slog"

	"civicboard/internal/database"
	"civicboard/internal/models"
	"civicboard/internal/observability"
	"civicboard/internal/repository"

	"gorm.io/gorm"
)

// Summary counts the rows one run wrote.
type Summary struct {
	Users         int
	Events        int
	Issues        int
	Votes         int
	Followers     int
	Registrations int
	Feedback      int
	Reports       int
}

// Seeder applies presets to a database.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

// NewSeeder creates a Seeder. opts.Center and opts.SpreadKm are replaced by
// the preset's values on Run.
func NewSeeder(db *gorm.DB, opts FactoryOptions) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// ClearAll deletes every row the content core owns, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	observability.Logger.InfoContext(ctx, "clearing existing data")
	all := database.PersistentModels()
	for i := len(all) - 1; i >= 0; i-- {
		err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error
		if err != nil {
			return fmt.Errorf("clear %T: %w", all[i], err)
		}
	}
	return nil
}

// Run seeds p and then recomputes the upvote counters from the vote rows.
func (s *Seeder) Run(ctx context.Context, p Preset) (Summary, error) {
	var sum Summary
	if err := p.Validate(); err != nil {
		return sum, err
	}
	f := s.factory
	f.opts.Center, f.opts.SpreadKm = p.Center, p.SpreadKm
	log := observability.Logger

	users := make([]*models.User, 0, p.Users)
	for i := 0; i < p.Users; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return sum, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)
	log.InfoContext(ctx, "users created", slog.Int("count", sum.Users))

	events := make([]*models.Event, 0, p.Events)
	for i := 0; i < p.Events; i++ {
		e, err := f.CreateEvent(users[f.faker.Number(0, len(users)-1)])
		if err != nil {
			return sum, fmt.Errorf("create event: %w", err)
		}
		events = append(events, e)
	}
	sum.Events = len(events)

	issues := make([]*models.Issue, 0, p.Issues)
	for i, n := range splitCounts(p.Issues, issueStatusWeights) {
		status := issueStatusWeights[i].Value
		for j := 0; j < n; j++ {
			var reporter *models.User
			if f.faker.Number(1, 10) > 1 {
				reporter = users[f.faker.Number(0, len(users)-1)]
			}
			issue, err := f.CreateIssue(reporter, status)
			if err != nil {
				return sum, fmt.Errorf("create issue: %w", err)
			}
			issues = append(issues, issue)
		}
	}
	sum.Issues = len(issues)
	log.InfoContext(ctx, "content created", slog.Int("events", sum.Events), slog.Int("issues", sum.Issues))

	if err := s.seedMemberships(users, events, issues, p, &sum); err != nil {
		return sum, err
	}
	if p.Registrations {
		if err := s.seedRegistrations(users, events, p.Feedback, &sum); err != nil {
			return sum, err
		}
	}
	if err := s.seedReports(users, events, issues, p.Reports, &sum); err != nil {
		return sum, err
	}

	for _, ct := range []models.ContentType{models.ContentTypeEvent, models.ContentTypeIssue} {
		if _, err := repository.RecountAll(ctx, s.db, ct); err != nil {
			return sum, fmt.Errorf("recount %s: %w", ct, err)
		}
	}

	log.InfoContext(ctx, "seeding completed",
		slog.Int("votes", sum.Votes),
		slog.Int("followers", sum.Followers),
		slog.Int("registrations", sum.Registrations),
		slog.Int("feedback", sum.Feedback),
		slog.Int("reports", sum.Reports),
	)
	return sum, nil
}

func (s *Seeder) seedMemberships(users []*models.User, events []*models.Event, issues []*models.Issue, p Preset, sum *Summary) error {
	f := s.factory
	var (
		eventVotes     []models.EventVote
		eventFollowers []models.EventFollower
		issueVotes     []models.IssueVote
		issueFollowers []models.IssueFollower
	)
	for _, e := range events {
		for _, u := range f.pick(users, f.faker.Number(0, p.MaxVotes)) {
			eventVotes = append(eventVotes, models.EventVote{EventID: e.ID, UserID: u.ID})
		}
		for _, u := range f.pick(users, f.faker.Number(0, p.MaxFollowers)) {
			eventFollowers = append(eventFollowers, models.EventFollower{EventID: e.ID, UserID: u.ID})
		}
	}
	for _, i := range issues {
		for _, u := range f.pick(users, f.faker.Number(0, p.MaxVotes)) {
			issueVotes = append(issueVotes, models.IssueVote{IssueID: i.ID, UserID: u.ID})
		}
		for _, u := range f.pick(users, f.faker.Number(0, p.MaxFollowers)) {
			issueFollowers = append(issueFollowers, models.IssueFollower{IssueID: i.ID, UserID: u.ID})
		}
	}

	if err := createInBatches(s.db, eventVotes); err != nil {
		return fmt.Errorf("create event votes: %w", err)
	}
	if err := createInBatches(s.db, eventFollowers); err != nil {
		return fmt.Errorf("create event followers: %w", err)
	}
	if err := createInBatches(s.db, issueVotes); err != nil {
		return fmt.Errorf("create issue votes: %w", err)
	}
	if err := createInBatches(s.db, issueFollowers); err != nil {
		return fmt.Errorf("create issue followers: %w", err)
	}
	sum.Votes = len(eventVotes) + len(issueVotes)
	sum.Followers = len(eventFollowers) + len(issueFollowers)
	return nil
}

func (s *Seeder) seedRegistrations(users []*models.User, events []*models.Event, feedback bool, sum *Summary) error {
	f := s.factory
	for _, e := range events {
		remaining := 0
		if e.MaxAttendees != nil {
			remaining = *e.MaxAttendees
		}
		for _, u := range f.pick(users, f.faker.Number(0, 8)) {
			if u.ID == e.OrganizerID {
				continue
			}
			if e.MaxAttendees != nil && remaining <= 0 {
				break
			}
			seats, err := f.Register(e, u, remaining)
			if err != nil {
				return fmt.Errorf("register user %d for event %d: %w", u.ID, e.ID, err)
			}
			if seats == 0 {
				continue
			}
			remaining -= seats
			sum.Registrations++

			if feedback && e.StartDate.Before(f.now) && f.faker.Bool() {
				if err := f.CreateFeedback(e, u); err != nil {
					return fmt.Errorf("create feedback: %w", err)
				}
				sum.Feedback++
			}
		}
	}
	return nil
}

func (s *Seeder) seedReports(users []*models.User, events []*models.Event, issues []*models.Issue, n int, sum *Summary) error {
	f := s.factory
	if len(events)+len(issues) == 0 {
		return nil
	}
	seen := map[string]bool{}
	for attempts := 0; sum.Reports < n && attempts < n*4; attempts++ {
		reporter := users[f.faker.Number(0, len(users)-1)]
		ct, id := models.ContentTypeIssue, uint(0)
		if len(issues) == 0 || (len(events) > 0 && f.faker.Bool()) {
			ct, id = models.ContentTypeEvent, events[f.faker.Number(0, len(events)-1)].ID
		} else {
			id = issues[f.faker.Number(0, len(issues)-1)].ID
		}
		key := fmt.Sprintf("%s:%d:%d", ct, id, reporter.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := f.CreateReport(ct, id, reporter); err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		sum.Reports++
	}
	return nil
}

func createInBatches[T any](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return db.CreateInBatches(&rows, 200).Error
}
