package sync

import (
	"sort"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// NextArrival caches the booking that follows a departure in the same
// apartment, so cleaners can see how much slack they have before the
// next check-in.
type NextArrival struct {
	Arrival       string
	GuestName     string
	Adults        *int
	Children      *int
	GuestComments string
}

// indexNextArrivals maps each booking id to the next arrival in its
// apartment, or nil when the booking is the last one on the calendar.
// Bookings without an apartment share one group and chain among
// themselves.
func indexNextArrivals(bookings []*models.Booking) map[int64]*NextArrival {
	byApartment := make(map[int64][]*models.Booking)
	for _, b := range bookings {
		var key int64 // 0 collects the apartment-less bookings
		if b.ApartmentID != nil {
			key = *b.ApartmentID
		}
		byApartment[key] = append(byApartment[key], b)
	}

	next := make(map[int64]*NextArrival, len(bookings))
	for _, group := range byApartment {
		sort.Slice(group, func(i, j int) bool {
			if group[i].Arrival != group[j].Arrival {
				return group[i].Arrival < group[j].Arrival
			}
			return group[i].Departure < group[j].Departure
		})
		for i, b := range group {
			next[b.ID] = nil
			for _, other := range group[i+1:] {
				if other.ID == b.ID {
					continue
				}
				if other.Arrival >= b.Departure {
					next[b.ID] = &NextArrival{
						Arrival:       other.Arrival,
						GuestName:     clip(other.GuestName, 255),
						Adults:        other.Adults,
						Children:      other.Children,
						GuestComments: clip(other.GuestComments, 2000),
					}
					break
				}
			}
		}
	}
	return next
}

func clip(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
