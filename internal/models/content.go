package models

import "strings"

// ContentType tags which table a polymorphic content reference points at.
type ContentType string

const (
	// ContentTypeEvent references a row in events.
	ContentTypeEvent ContentType = "event"
	// ContentTypeIssue references a row in issues.
	ContentTypeIssue ContentType = "issue"
)

// ContentTypes lists every known content variant.
var ContentTypes = []ContentType{ContentTypeEvent, ContentTypeIssue}

// Valid reports whether c is one of the known variants.
func (c ContentType) Valid() bool {
	switch c {
	case ContentTypeEvent, ContentTypeIssue:
		return true
	}
	return false
}

// ParseContentType normalizes s and rejects unknown tags.
func ParseContentType(s string) (ContentType, error) {
	c := ContentType(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", NewValidationError("content type must be 'event' or 'issue'")
	}
	return c, nil
}

// ToggleKind selects which membership table a toggle flips.
type ToggleKind string

const (
	ToggleVote   ToggleKind = "vote"
	ToggleFollow ToggleKind = "follow"
)

// ParseToggleKind rejects anything other than vote or follow.
func ParseToggleKind(s string) (ToggleKind, error) {
	k := ToggleKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case ToggleVote, ToggleFollow:
		return k, nil
	}
	return "", NewValidationError("toggle kind must be 'vote' or 'follow'")
}
