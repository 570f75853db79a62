package pms

import (
	"fmt"
	"strings"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// Rejection reasons returned by Normalize. Empty string means accepted.
const (
	RejectCancellation = "cancellation type"
	RejectCancelled    = "cancelled"
	RejectBlocked      = "blocked"
	RejectInternal     = "internal"
	RejectDraft        = "draft"
	RejectPending      = "pending"
	RejectOnHold       = "on-hold"
	RejectNoDeparture  = "no departure"
	RejectNoArrival    = "no arrival"
	RejectBadFormat    = "malformed date"
	RejectBadDates     = "departure <= arrival"
	RejectTooOld       = "departure before minimum date"
	RejectNoID         = "missing reservation id"
)

// Normalize validates a raw reservation record and converts it into a
// canonical Booking. The returned reason is empty for accepted records;
// rejected records must have any previously cached booking (and its task)
// removed by the caller.
func Normalize(raw Raw) (*models.Booking, string) {
	id, ok := raw.intVal("id")
	if !ok || id == 0 {
		return nil, RejectNoID
	}

	if reason := statusReason(raw); reason != "" {
		return nil, reason
	}

	arrival := clipDate(raw.str("arrival"))
	departure := clipDate(raw.str("departure"))
	switch {
	case strings.TrimSpace(departure) == "":
		return nil, RejectNoDeparture
	case strings.TrimSpace(arrival) == "":
		// Long-term bookings without a checkout never produce a cleaning.
		return nil, RejectNoArrival
	case !models.WellFormedDate(arrival) || !models.WellFormedDate(departure):
		return nil, RejectBadFormat
	case departure <= arrival:
		return nil, RejectBadDates
	case departure < models.MinSaneDate:
		return nil, RejectTooOld
	}

	b := &models.Booking{
		ID:            id,
		Arrival:       arrival,
		Departure:     departure,
		GuestName:     GuestName(raw),
		GuestComments: clip(raw.firstString("guestComments", "guest_comments"), 2000),
	}

	if apt := raw.sub("apartment"); apt != nil {
		if aptID, ok := apt.intVal("id"); ok {
			b.ApartmentID = &aptID
		}
		b.ApartmentName = apt.str("name")
	}
	if adults, ok := raw.intCount("adults"); ok {
		b.Adults = &adults
	}
	if children, ok := raw.intCount("children"); ok {
		b.Children = &children
	}

	return b, ""
}

// ReservationID extracts the external reservation id from a raw record,
// including records Normalize rejects. Rejected ids are what the sync
// pass uses to purge previously cached bookings.
func ReservationID(raw Raw) (int64, bool) {
	return raw.intVal("id")
}

// statusReason checks the various cancellation/visibility flags the PMS
// uses and returns the first matching rejection reason.
func statusReason(raw Raw) string {
	status := strings.ToLower(raw.str("status"))

	switch {
	case strings.ToLower(raw.str("type")) == "cancellation":
		return RejectCancellation
	case status == "cancelled" || raw.boolVal("cancelled"):
		return RejectCancelled
	case raw.boolVal("isBlockedBooking") || raw.boolVal("blocked"):
		return RejectBlocked
	case raw.boolVal("isInternal"):
		return RejectInternal
	case status == "draft":
		return RejectDraft
	case status == "pending":
		return RejectPending
	case status == "on hold" || status == "on_hold":
		return RejectOnHold
	}
	return ""
}

// guestNameResolvers is the prioritized field-resolution chain for the
// guest display name. Channels disagree on where the name lives; the
// first resolver returning a non-empty string wins.
var guestNameResolvers = []func(Raw) string{
	func(r Raw) string { return r.sub("guest").str("fullName") },
	func(r Raw) string {
		g := r.sub("guest")
		return strings.TrimSpace(g.str("firstName") + " " + g.str("lastName"))
	},
	func(r Raw) string { return strings.TrimSpace(r.str("firstName") + " " + r.str("lastName")) },
	func(r Raw) string { return r.str("guestName") },
	func(r Raw) string { return r.str("mainGuestName") },
	func(r Raw) string { return r.str("contactName") },
	func(r Raw) string { return r.str("name") },
	func(r Raw) string { return r.sub("contact").str("name") },
}

// GuestName resolves the guest display name, falling back to an occupancy
// summary and finally the empty string. It never fails.
func GuestName(raw Raw) string {
	for _, resolve := range guestNameResolvers {
		if name := strings.TrimSpace(resolve(raw)); name != "" {
			return name
		}
	}
	return OccupancySummary(raw)
}

// OccupancySummary renders "N Adults, M Children" from the occupancy
// counts, omitting zero parts. Returns "" when both are zero or absent.
func OccupancySummary(raw Raw) string {
	adults, _ := raw.intCount("adults")
	children, _ := raw.intCount("children")

	var parts []string
	if adults > 0 {
		parts = append(parts, fmt.Sprintf("%d Adults", adults))
	}
	if children > 0 {
		parts = append(parts, fmt.Sprintf("%d Children", children))
	}
	return strings.Join(parts, ", ")
}

// Accessors tolerating the PMS payload's loose typing.

func (r Raw) str(key string) string {
	if r == nil {
		return ""
	}
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

func (r Raw) firstString(keys ...string) string {
	for _, k := range keys {
		if s := r.str(k); s != "" {
			return s
		}
	}
	return ""
}

func (r Raw) boolVal(key string) bool {
	if r == nil {
		return false
	}
	b, _ := r[key].(bool)
	return b
}

func (r Raw) sub(key string) Raw {
	if r == nil {
		return nil
	}
	if m, ok := r[key].(map[string]any); ok {
		return Raw(m)
	}
	return nil
}

// intVal reads an integral id field. JSON numbers decode as float64.
func (r Raw) intVal(key string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	switch v := r[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	return 0, false
}

// intCount reads an occupancy count, treating absent and null as missing.
func (r Raw) intCount(key string) (int, bool) {
	v, ok := r.intVal(key)
	return int(v), ok
}

// clipDate trims a timestamped date ("2024-05-01T16:00:00") down to its
// date part.
func clipDate(s string) string {
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
