package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentType(t *testing.T) {
	tests := []struct {
		in      string
		want    ContentType
		wantErr bool
	}{
		{"event", ContentTypeEvent, false},
		{" Issue ", ContentTypeIssue, false},
		{"comment", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseContentType(tt.in)
			if tt.wantErr {
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToggleKind(t *testing.T) {
	k, err := ParseToggleKind("VOTE")
	require.NoError(t, err)
	assert.Equal(t, ToggleVote, k)

	_, err = ParseToggleKind("like")
	assert.True(t, IsValidation(err))
}

func TestAppError_CodeSurvivesWrapping(t *testing.T) {
	base := errors.New("connection reset")
	err := fmt.Errorf("load event: %w", NewStorageError(base))

	assert.Equal(t, CodeStorage, ErrorCode(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "", ErrorCode(base))
	assert.True(t, IsConflict(NewConflictError("already reported")))
	assert.True(t, IsNotFound(NewNotFoundError("Event", 3)))
}

func TestUserJSON_OmitsPasswordHash(t *testing.T) {
	u := User{ID: 1, Name: "Ada", Email: "ada@example.com", PasswordHash: "secret"}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")

	s := u.Summary()
	assert.Equal(t, uint(1), s.ID)
	assert.Equal(t, "Ada", s.Name)
}

func TestIssueJSON_AnonymousHidesReporter(t *testing.T) {
	reporter := uint(7)
	b, err := json.Marshal(Issue{ID: 3, ReporterID: &reporter, IsAnonymous: true})
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.NotContains(t, fields, "reporter_id")

	b, err = json.Marshal(&Issue{ID: 4, ReporterID: &reporter})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.EqualValues(t, 7, fields["reporter_id"])
}

func TestIssueCoordinates(t *testing.T) {
	lat, lng := 10.5, -20.25
	_, _, ok := (&Issue{}).Coordinates()
	assert.False(t, ok)

	gotLat, gotLng, ok := (&Issue{Latitude: &lat, Longitude: &lng}).Coordinates()
	assert.True(t, ok)
	assert.Equal(t, lat, gotLat)
	assert.Equal(t, lng, gotLng)
}
