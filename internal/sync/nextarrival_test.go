package sync

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/turnover-planner/backend/internal/storage/models"
)

func i64(v int64) *int64 { return &v }

func TestIndexNextArrivalsSameApartment(t *testing.T) {
	two := 2
	bookings := []*models.Booking{
		{ID: 1, ApartmentID: i64(10), Arrival: "2024-01-01", Departure: "2024-01-05", GuestName: "First"},
		{ID: 2, ApartmentID: i64(10), Arrival: "2024-01-05", Departure: "2024-01-09", GuestName: "Second", Adults: &two},
		{ID: 3, ApartmentID: i64(10), Arrival: "2024-01-12", Departure: "2024-01-14", GuestName: "Third"},
	}

	next := indexNextArrivals(bookings)

	// Same-day turnover: an arrival on the departure date counts.
	require.NotNil(t, next[1])
	require.Equal(t, "2024-01-05", next[1].Arrival)
	require.Equal(t, "Second", next[1].GuestName)
	require.Equal(t, 2, *next[1].Adults)

	require.NotNil(t, next[2])
	require.Equal(t, "2024-01-12", next[2].Arrival)

	// Last booking on the calendar has no follow-up.
	require.Nil(t, next[3])
}

func TestIndexNextArrivalsIgnoresOtherApartments(t *testing.T) {
	bookings := []*models.Booking{
		{ID: 1, ApartmentID: i64(10), Arrival: "2024-01-01", Departure: "2024-01-05"},
		{ID: 2, ApartmentID: i64(20), Arrival: "2024-01-06", Departure: "2024-01-08"},
	}

	next := indexNextArrivals(bookings)
	require.Nil(t, next[1])
	require.Nil(t, next[2])
}

func TestIndexNextArrivalsNilApartmentsChain(t *testing.T) {
	bookings := []*models.Booking{
		{ID: 1, Arrival: "2024-01-01", Departure: "2024-01-05"},
		{ID: 2, Arrival: "2024-01-05", Departure: "2024-01-09", GuestName: "Walk-in"},
		{ID: 3, ApartmentID: i64(10), Arrival: "2024-01-05", Departure: "2024-01-07"},
	}

	next := indexNextArrivals(bookings)

	// Apartment-less bookings follow each other, not apartment bookings.
	require.NotNil(t, next[1])
	require.Equal(t, "2024-01-05", next[1].Arrival)
	require.Equal(t, "Walk-in", next[1].GuestName)
	require.Nil(t, next[2])
	require.Nil(t, next[3])
}

func TestIndexNextArrivalsTruncates(t *testing.T) {
	bookings := []*models.Booking{
		{ID: 1, ApartmentID: i64(10), Arrival: "2024-01-01", Departure: "2024-01-05"},
		{
			ID: 2, ApartmentID: i64(10), Arrival: "2024-01-05", Departure: "2024-01-09",
			GuestName:     strings.Repeat("n", 300),
			GuestComments: strings.Repeat("c", 3000),
		},
	}

	next := indexNextArrivals(bookings)
	require.Len(t, next[1].GuestName, 255)
	require.Len(t, next[1].GuestComments, 2000)
}
