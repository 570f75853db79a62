// Package models contains the domain models for the application.
package models

// Booking is the locally cached copy of an accepted PMS reservation.
// The ID is the external reservation id and is stable across refreshes.
type Booking struct {
	ID            int64  `json:"id"`
	ApartmentID   *int64 `json:"apartment_id,omitempty"`
	ApartmentName string `json:"apartment_name"`
	Arrival       string `json:"arrival"`   // YYYY-MM-DD
	Departure     string `json:"departure"` // YYYY-MM-DD
	Adults        *int   `json:"adults,omitempty"`
	Children      *int   `json:"children,omitempty"`
	GuestName     string `json:"guest_name"`
	GuestComments string `json:"guest_comments"`
}

// DateLayout is the wire format for all calendar dates.
const DateLayout = "2006-01-02"

// MinSaneDate is the earliest date the planner accepts for bookings and
// tasks. Anything older is treated as malformed upstream data.
const MinSaneDate = "2020-01-01"

// WellFormedDate reports whether s looks like a YYYY-MM-DD date string.
// ISO dates compare correctly as plain strings, so the rest of the code
// uses string comparison on top of this check.
func WellFormedDate(s string) bool {
	if len(s) != 10 {
		return false
	}
	return s[4] == '-' && s[7] == '-'
}

// Valid reports whether the booking satisfies the cache invariant:
// well-formed arrival and departure with departure strictly after arrival,
// and a departure on or after MinSaneDate.
func (b *Booking) Valid() bool {
	if !WellFormedDate(b.Arrival) || !WellFormedDate(b.Departure) {
		return false
	}
	if b.Departure <= b.Arrival {
		return false
	}
	return b.Departure >= MinSaneDate
}
