// Package seed creates demo and load-test data for the content core. It
// writes through gorm directly and repairs derived counters afterwards, so it
// is meant for development databases only.
package seed

import (
	"fmt"
	"math"
	"strings"
	"time"

	"civicboard/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is the plaintext password of every seeded user.
const DefaultPassword = "password123"

var (
	eventCategories = []string{"community", "volunteering", "sports", "arts", "education", "market", "music", "health"}
	issueCategories = []string{"roads", "lighting", "sanitation", "parks", "noise", "water", "safety", "graffiti"}
	reportReasons   = []string{"spam", "offensive", "misleading", "duplicate", "off-topic"}

	// issueStatusWeights spreads seeded issues across the lifecycle.
	issueStatusWeights = []weighted[models.IssueStatus]{
		{models.IssueStatusReported, 4},
		{models.IssueStatusInProgress, 3},
		{models.IssueStatusUnderReview, 1},
		{models.IssueStatusResolved, 2},
	}
)

type weighted[T any] struct {
	Value  T
	Weight int
}

// Factory builds domain rows with gofakeit and persists them.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	opts  FactoryOptions
	now   time.Time

	passwordHash string
	seq          int
}

// FactoryOptions tune generated data.
type FactoryOptions struct {
	// Seed makes runs reproducible; zero picks a random seed.
	Seed int64
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Center     center
	SpreadKm   float64
	Now        time.Time
}

// NewFactory creates a Factory bound to db.
func NewFactory(db *gorm.DB, opts FactoryOptions) *Factory {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Factory{db: db, faker: gofakeit.New(seed), opts: opts, now: now}
}

func (f *Factory) hashedPassword() (string, error) {
	if f.passwordHash != "" {
		return f.passwordHash, nil
	}
	cost := f.opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	f.passwordHash = string(hash)
	return f.passwordHash, nil
}

// point returns a random coordinate within SpreadKm of the center.
func (f *Factory) point() (float64, float64) {
	const kmPerDegree = 111.32
	spread := f.opts.SpreadKm
	lat := f.opts.Center.Lat + f.faker.Float64Range(-1, 1)*spread/kmPerDegree
	lngScale := kmPerDegree * math.Cos(lat*math.Pi/180)
	lng := f.opts.Center.Lng
	if lngScale > 0 {
		lng += f.faker.Float64Range(-1, 1) * spread / lngScale
	}
	return clamp(lat, -90, 90), clamp(lng, -180, 180)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func (f *Factory) title() string {
	return strings.TrimSuffix(f.faker.Sentence(f.faker.Number(3, 6)), ".")
}

func (f *Factory) photoURL() string {
	return fmt.Sprintf("https://picsum.photos/seed/%s/800/600", f.faker.UUID())
}

// CreateUser persists a user with a unique email.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	hash, err := f.hashedPassword()
	if err != nil {
		return nil, err
	}
	f.seq++
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		Name:                first + " " + last,
		Email:               fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), f.seq),
		PasswordHash:        hash,
		IsVerifiedOrganizer: f.faker.Number(1, 5) == 1,
	}
	if f.faker.Bool() {
		phone := f.faker.Phone()
		user.Phone = &phone
	}
	lat, lng := f.point()
	user.Latitude, user.Longitude = &lat, &lng

	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateEvent persists an event organized by organizer, with up to two photos.
func (f *Factory) CreateEvent(organizer *models.User, overrides ...func(*models.Event)) (*models.Event, error) {
	lat, lng := f.point()
	start := f.now.Add(time.Duration(f.faker.Number(-30*24, 60*24)) * time.Hour).Truncate(time.Hour)
	end := start.Add(time.Duration(f.faker.Number(1, 6)) * time.Hour)

	event := &models.Event{
		Title:       f.title(),
		Description: f.faker.Paragraph(1, 3, 10, "\n"),
		Location:    f.faker.Street() + ", " + f.faker.City(),
		Latitude:    lat,
		Longitude:   lng,
		StartDate:   start,
		EndDate:     &end,
		Category:    f.faker.RandomString(eventCategories),
		IsUrgent:    f.faker.Number(1, 10) == 1,
		IsApproved:  f.faker.Number(1, 10) <= 8,
		OrganizerID: organizer.ID,
	}
	if f.faker.Number(1, 4) == 1 {
		price := math.Round(f.faker.Price(5, 60)*100) / 100
		event.IsPaid = true
		event.TicketPrice = &price
	}
	if f.faker.Bool() {
		capacity := f.faker.Number(5, 40)
		event.MaxAttendees = &capacity
		opens := start.AddDate(0, 0, -21)
		closes := start.Add(-time.Hour)
		event.RegistrationStart, event.RegistrationEnd = &opens, &closes
	}

	for _, override := range overrides {
		override(event)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		photos := make([]models.EventPhoto, f.faker.Number(0, 2))
		for i := range photos {
			photos[i] = models.EventPhoto{EventID: event.ID, URL: f.photoURL(), Caption: f.faker.Sentence(4)}
		}
		if len(photos) == 0 {
			return nil
		}
		return tx.Create(&photos).Error
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// CreateIssue persists an issue with a status history ending in status.
// A nil reporter creates an anonymous, unattributed issue.
func (f *Factory) CreateIssue(reporter *models.User, status models.IssueStatus, overrides ...func(*models.Issue)) (*models.Issue, error) {
	issue := &models.Issue{
		Title:       f.title(),
		Description: f.faker.Paragraph(1, 2, 12, "\n"),
		Category:    f.faker.RandomString(issueCategories),
		Location:    f.faker.Street(),
		Status:      status,
		IsAnonymous: reporter == nil || f.faker.Number(1, 5) == 1,
	}
	if reporter != nil {
		issue.ReporterID = &reporter.ID
	}
	if f.faker.Number(1, 10) <= 9 {
		lat, lng := f.point()
		issue.Latitude, issue.Longitude = &lat, &lng
	}
	for _, override := range overrides {
		override(issue)
	}

	err := f.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(issue).Error; err != nil {
			return err
		}
		history := []models.IssueStatusUpdate{{IssueID: issue.ID, Status: models.IssueStatusReported}}
		if issue.Status != models.IssueStatusReported {
			comment := f.faker.Sentence(6)
			history = append(history, models.IssueStatusUpdate{IssueID: issue.ID, Status: issue.Status, Comment: &comment})
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		if f.faker.Bool() {
			return tx.Create(&models.IssuePhoto{IssueID: issue.ID, URL: f.photoURL()}).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// pick returns up to n distinct users in random order.
func (f *Factory) pick(users []*models.User, n int) []*models.User {
	if n > len(users) {
		n = len(users)
	}
	out := make([]*models.User, 0, n)
	for _, i := range f.faker.Rand.Perm(len(users))[:n] {
		out = append(out, users[i])
	}
	return out
}

// Register writes a registration that fits the event's remaining capacity
// and reports how many seats it took.
func (f *Factory) Register(event *models.Event, user *models.User, remaining int) (int, error) {
	party := f.faker.Number(1, 3)
	if event.MaxAttendees != nil && party > remaining {
		party = remaining
	}
	if party < 1 {
		return 0, nil
	}
	payment := models.PaymentNotRequired
	if event.IsPaid {
		payment = models.PaymentPending
		if f.faker.Bool() {
			payment = models.PaymentPaid
		}
	}
	interest := &models.Interest{
		UserID:         user.ID,
		EventID:        event.ID,
		NumberOfPeople: party,
		UserName:       user.Name,
		UserEmail:      user.Email,
		UserPhone:      user.Phone,
		PaymentStatus:  payment,
	}
	if err := f.db.Create(interest).Error; err != nil {
		return 0, err
	}
	return party, nil
}

// CreateFeedback rates a past event.
func (f *Factory) CreateFeedback(event *models.Event, user *models.User) error {
	return f.db.Create(&models.EventFeedback{
		EventID: event.ID,
		UserID:  user.ID,
		Rating:  f.faker.Number(1, 5),
		Comment: f.faker.Sentence(8),
	}).Error
}

// CreateReport files a pending violation report.
func (f *Factory) CreateReport(ct models.ContentType, contentID uint, reporter *models.User) error {
	return f.db.Create(&models.ViolationReport{
		ContentType:  ct,
		ContentID:    contentID,
		ReportedByID: reporter.ID,
		Reason:       f.faker.RandomString(reportReasons),
		Status:       models.ReportStatusPending,
	}).Error
}

// splitCounts distributes n across weights by largest remainder, so the
// result always sums to n.
func splitCounts[T any](n int, weights []weighted[T]) []int {
	out := make([]int, len(weights))
	total := 0
	for _, w := range weights {
		total += w.Weight
	}
	if n <= 0 || total <= 0 {
		return out
	}

	type rem struct {
		idx  int
		frac int
	}
	rems := make([]rem, len(weights))
	assigned := 0
	for i, w := range weights {
		out[i] = n * w.Weight / total
		assigned += out[i]
		rems[i] = rem{idx: i, frac: n * w.Weight % total}
	}
	for left := n - assigned; left > 0; left-- {
		best := 0
		for i := range rems {
			if rems[i].frac > rems[best].frac {
				best = i
			}
		}
		out[rems[best].idx]++
		rems[best].frac = -1
	}
	return out
}
