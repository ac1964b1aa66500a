package geo

import (
	"math"
	"testing"

	"civicboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type place struct {
	name     string
	lat, lng *float64
}

func (p place) Coordinates() (float64, float64, bool) {
	if p.lat == nil || p.lng == nil {
		return 0, 0, false
	}
	return *p.lat, *p.lng, true
}

func at(name string, lat, lng float64) place {
	return place{name: name, lat: &lat, lng: &lng}
}

func names(ps []place) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.name)
	}
	return out
}

func TestDistance(t *testing.T) {
	oneDegree := 2 * math.Pi * EarthRadiusKm / 360
	assert.InDelta(t, oneDegree, Distance(Point{0, 0}, Point{0, 1}), 1e-9)
	assert.InDelta(t, oneDegree, Distance(Point{0, 0}, Point{1, 0}), 1e-9)
	assert.Zero(t, Distance(Point{45, 7}, Point{45, 7}))

	// London to Paris, roughly 344 km.
	assert.InDelta(t, 343.5, Distance(Point{51.5074, -0.1278}, Point{48.8566, 2.3522}), 1.0)
}

func TestFilter_BoundaryIsInclusive(t *testing.T) {
	origin := Point{Lat: 40.7128, Lng: -74.0060}
	target := at("edge", 40.7306, -73.9352)
	d := Distance(origin, Point{*target.lat, *target.lng})

	kept := Filter([]place{target}, Radius{Origin: origin, RadiusKm: d})
	assert.Equal(t, []string{"edge"}, names(kept))

	kept = Filter([]place{target}, Radius{Origin: origin, RadiusKm: d - 1e-9})
	assert.Empty(t, kept)
}

func TestFilter_DropsMissingCoordinatesAndKeepsOrder(t *testing.T) {
	origin := Point{Lat: 0, Lng: 0}
	records := []place{
		at("b", 0, 0.5),
		{name: "nowhere"},
		at("far", 10, 10),
		at("a", 0.1, 0),
	}

	kept := Filter(records, Radius{Origin: origin, RadiusKm: 100})
	assert.Equal(t, []string{"b", "a"}, names(kept))
}

func TestFilter_WorksWithContentModels(t *testing.T) {
	lat, lng := 1.0, 1.0
	issues := []*models.Issue{
		{ID: 1, Latitude: &lat, Longitude: &lng},
		{ID: 2},
	}
	kept := Filter(issues, Radius{Origin: Point{1, 1}, RadiusKm: 1})
	require.Len(t, kept, 1)
	assert.Equal(t, uint(1), kept[0].ID)

	events := []*models.Event{{ID: 5, Latitude: 1, Longitude: 1}}
	assert.Len(t, Filter(events, Radius{Origin: Point{1, 1}, RadiusKm: 1}), 1)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Point{Lat: 90, Lng: -180}.Validate())
	assert.True(t, models.IsValidation(Point{Lat: 90.0001}.Validate()))
	assert.True(t, models.IsValidation(Point{Lng: 181}.Validate()))
	assert.True(t, models.IsValidation(Point{Lat: math.NaN()}.Validate()))

	assert.NoError(t, Radius{RadiusKm: 5}.Validate())
	assert.True(t, models.IsValidation(Radius{RadiusKm: 0}.Validate()))
	assert.True(t, models.IsValidation(Radius{RadiusKm: -1}.Validate()))
	assert.True(t, models.IsValidation(Radius{Origin: Point{Lat: -91}, RadiusKm: 1}.Validate()))
}
