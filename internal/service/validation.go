package service

import (
	"fmt"
	"net/url"
	"strings"

	"civicboard/internal/geo"
	"civicboard/internal/models"
)

func validateTitle(title string) error {
	if title == "" {
		return models.NewValidationError("Title is required")
	}
	if len(title) > maxTitleLen {
		return models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
	}
	return nil
}

func validateEvent(e *models.Event) error {
	if err := validateTitle(e.Title); err != nil {
		return err
	}
	if len(e.Description) > maxDescriptionLen {
		return models.NewValidationError("Description too long")
	}
	if err := geo.ValidateCoordinates(e.Latitude, e.Longitude); err != nil {
		return err
	}
	if e.StartDate.IsZero() {
		return models.NewValidationError("start_date is required")
	}
	if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
		return models.NewValidationError("end_date must not precede start_date")
	}
	if e.RegistrationStart != nil && e.RegistrationEnd != nil && e.RegistrationEnd.Before(*e.RegistrationStart) {
		return models.NewValidationError("registration_end must not precede registration_start")
	}
	if e.MaxAttendees != nil && *e.MaxAttendees <= 0 {
		return models.NewValidationError("max_attendees must be positive")
	}
	if e.TicketPrice != nil {
		if *e.TicketPrice < 0 {
			return models.NewValidationError("ticket_price must not be negative")
		}
		if !e.IsPaid && *e.TicketPrice > 0 {
			return models.NewValidationError("ticket_price requires a paid event")
		}
	}
	return nil
}

func validateIssue(i *models.Issue) error {
	if err := validateTitle(i.Title); err != nil {
		return err
	}
	if len(i.Description) > maxDescriptionLen {
		return models.NewValidationError("Description too long")
	}
	if (i.Latitude == nil) != (i.Longitude == nil) {
		return models.NewValidationError("latitude and longitude must be given together")
	}
	if i.Latitude != nil {
		if err := geo.ValidateCoordinates(*i.Latitude, *i.Longitude); err != nil {
			return err
		}
	}
	if i.Status != "" && !i.Status.Valid() {
		return models.NewValidationError(fmt.Sprintf("invalid status %q", i.Status))
	}
	return nil
}

func validateRadius(r *geo.Radius) error {
	if r == nil {
		return nil
	}
	return r.Validate()
}

func validatePhotoURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", models.NewValidationError(fmt.Sprintf("invalid photo url %q", raw))
	}
	return raw, nil
}

func eventPhotos(in []PhotoInput) ([]models.EventPhoto, error) {
	out := make([]models.EventPhoto, 0, len(in))
	for _, p := range in {
		u, err := validatePhotoURL(p.URL)
		if err != nil {
			return nil, err
		}
		out = append(out, models.EventPhoto{URL: u, Caption: p.Caption})
	}
	return out, nil
}

func issuePhotos(in []PhotoInput) ([]models.IssuePhoto, error) {
	out := make([]models.IssuePhoto, 0, len(in))
	for _, p := range in {
		u, err := validatePhotoURL(p.URL)
		if err != nil {
			return nil, err
		}
		out = append(out, models.IssuePhoto{URL: u, Caption: p.Caption})
	}
	return out, nil
}
