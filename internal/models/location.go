package models

// Coordinates returns the event's position. Events always carry one.
func (e *Event) Coordinates() (lat, lng float64, ok bool) {
	return e.Latitude, e.Longitude, true
}

// Coordinates returns the issue's position when both components are set.
func (i *Issue) Coordinates() (lat, lng float64, ok bool) {
	if i.Latitude == nil || i.Longitude == nil {
		return 0, 0, false
	}
	return *i.Latitude, *i.Longitude, true
}
