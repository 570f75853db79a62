package pms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func reservation(overrides map[string]any) Raw {
	raw := Raw{
		"id":        float64(1001),
		"arrival":   "2030-05-01",
		"departure": "2030-05-04",
		"status":    "confirmed",
		"adults":    float64(2),
		"children":  float64(1),
		"apartment": map[string]any{"id": float64(7), "name": "Seaside 2B"},
		"guest":     map[string]any{"fullName": "Ada Lovelace"},
	}
	for k, v := range overrides {
		if v == nil {
			delete(raw, k)
			continue
		}
		raw[k] = v
	}
	return raw
}

func TestNormalizeAccepts(t *testing.T) {
	raw := reservation(map[string]any{
		"arrival":       "2030-05-01T16:00:00",
		"guestComments": "late checkin",
	})

	b, reason := Normalize(raw)
	require.Empty(t, reason)
	require.EqualValues(t, 1001, b.ID)
	require.Equal(t, "2030-05-01", b.Arrival)
	require.Equal(t, "2030-05-04", b.Departure)
	require.Equal(t, "Ada Lovelace", b.GuestName)
	require.Equal(t, "late checkin", b.GuestComments)
	require.NotNil(t, b.ApartmentID)
	require.EqualValues(t, 7, *b.ApartmentID)
	require.Equal(t, "Seaside 2B", b.ApartmentName)
	require.Equal(t, 2, *b.Adults)
	require.Equal(t, 1, *b.Children)
}

func TestNormalizeRejects(t *testing.T) {
	cases := []struct {
		name      string
		overrides map[string]any
		reason    string
	}{
		{"cancellation type", map[string]any{"type": "cancellation"}, RejectCancellation},
		{"cancelled status", map[string]any{"status": "Cancelled"}, RejectCancelled},
		{"cancelled flag", map[string]any{"cancelled": true}, RejectCancelled},
		{"blocked booking", map[string]any{"isBlockedBooking": true}, RejectBlocked},
		{"blocked flag", map[string]any{"blocked": true}, RejectBlocked},
		{"internal", map[string]any{"isInternal": true}, RejectInternal},
		{"draft", map[string]any{"status": "draft"}, RejectDraft},
		{"pending", map[string]any{"status": "pending"}, RejectPending},
		{"on hold", map[string]any{"status": "on hold"}, RejectOnHold},
		{"on_hold", map[string]any{"status": "on_hold"}, RejectOnHold},
		{"missing departure", map[string]any{"departure": nil}, RejectNoDeparture},
		{"missing arrival", map[string]any{"arrival": nil}, RejectNoArrival},
		{"malformed date", map[string]any{"arrival": "01.05.2030"}, RejectBadFormat},
		{"departure equals arrival", map[string]any{"departure": "2030-05-01"}, RejectBadDates},
		{"departure before arrival", map[string]any{"departure": "2030-04-30"}, RejectBadDates},
		{"ancient departure", map[string]any{"arrival": "2019-01-01", "departure": "2019-01-05"}, RejectTooOld},
		{"missing id", map[string]any{"id": nil}, RejectNoID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, reason := Normalize(reservation(tc.overrides))
			require.Nil(t, b)
			require.Equal(t, tc.reason, reason)
		})
	}
}

func TestGuestNameResolution(t *testing.T) {
	cases := []struct {
		name string
		raw  Raw
		want string
	}{
		{
			"guest full name wins",
			Raw{"guest": map[string]any{"fullName": "Ada Lovelace", "firstName": "A"}, "guestName": "Other"},
			"Ada Lovelace",
		},
		{
			"guest first and last joined",
			Raw{"guest": map[string]any{"firstName": "Grace", "lastName": "Hopper"}},
			"Grace Hopper",
		},
		{
			"top-level names",
			Raw{"firstName": "Alan", "lastName": "Turing"},
			"Alan Turing",
		},
		{
			"contact name fallback",
			Raw{"contact": map[string]any{"name": "Front Desk"}},
			"Front Desk",
		},
		{
			"occupancy summary fallback",
			Raw{"adults": float64(2), "children": float64(1)},
			"2 Adults, 1 Children",
		},
		{
			"adults only",
			Raw{"adults": float64(3)},
			"3 Adults",
		},
		{
			"nothing at all",
			Raw{},
			"",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, GuestName(tc.raw))
		})
	}
}
