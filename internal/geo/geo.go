// Package geo implements the in-memory radius filter applied after SQL
// predicates, since the store has no spatial index.
package geo

import (
	"fmt"
	"math"

	"civicboard/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by Distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside [-90,90] x [-180,180].
func (p Point) Validate() error {
	return ValidateCoordinates(p.Lat, p.Lng)
}

// ValidateCoordinates checks a latitude/longitude pair.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return models.NewValidationError(fmt.Sprintf("latitude %v out of range [-90, 90]", lat))
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return models.NewValidationError(fmt.Sprintf("longitude %v out of range [-180, 180]", lng))
	}
	return nil
}

// Distance is the haversine great-circle distance between a and b in km.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLng := radians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Radius is a caller-supplied "within N km of origin" request.
type Radius struct {
	Origin   Point   `json:"origin"`
	RadiusKm float64 `json:"radius_km"`
}

// Validate checks the origin and requires a positive radius.
func (r Radius) Validate() error {
	if err := r.Origin.Validate(); err != nil {
		return err
	}
	if math.IsNaN(r.RadiusKm) || r.RadiusKm <= 0 {
		return models.NewValidationError("radius must be greater than zero")
	}
	return nil
}

// Locatable is anything that may carry a position.
type Locatable interface {
	Coordinates() (lat, lng float64, ok bool)
}

// Filter keeps the records within r, boundary included. Records without
// coordinates are dropped. Input order is preserved.
func Filter[T Locatable](records []T, r Radius) []T {
	out := make([]T, 0, len(records))
	for _, rec := range records {
		lat, lng, ok := rec.Coordinates()
		if !ok {
			continue
		}
		if Distance(r.Origin, Point{Lat: lat, Lng: lng}) <= r.RadiusKm {
			out = append(out, rec)
		}
	}
	return out
}
