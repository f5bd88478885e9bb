package entity

import (
	"time"
)

// Event is the ticketed occasion a booking belongs to.
type Event struct {
	EventID       string    `json:"event_id" db:"event_id"`
	Title         string    `json:"title" db:"title"`
	Venue         string    `json:"venue" db:"venue"`
	EventStart    time.Time `json:"event_start" db:"event_start"`
	VenueTimezone string    `json:"venue_timezone" db:"venue_timezone"`
}

// Location returns the venue's time zone, or fallback when the event has none
// or it cannot be loaded.
func (e Event) Location(fallback *time.Location) *time.Location {
	if e.VenueTimezone == "" {
		return fallback
	}

	loc, err := time.LoadLocation(e.VenueTimezone)
	if err != nil {
		return fallback
	}

	return loc
}

// IsOn reports whether the event starts on the same calendar day as now,
// both taken in loc.
func (e Event) IsOn(now time.Time, loc *time.Location) bool {
	ey, em, ed := e.EventStart.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()

	return ey == ny && em == nm && ed == nd
}
