package models

import (
	"time"
)

// Task is one unit of cleaning or maintenance work scheduled for a
// specific date. A task is linked to at most one of a booking (checkout
// cleaning) or a series (recurring chore); with neither link it is a
// manually created task.
type Task struct {
	ID               int64   `json:"id"`
	Date             string  `json:"date"` // YYYY-MM-DD, checkout date for booking tasks
	StartTime        *string `json:"start_time,omitempty"`
	PlannedMinutes   int     `json:"planned_minutes"`
	Notes            *string `json:"notes,omitempty"`
	Extras           *string `json:"extras,omitempty"` // JSON bag of flags (crib count, deposit registered, ...)
	ApartmentID      *int64  `json:"apartment_id,omitempty"`
	BookingID        *int64  `json:"booking_id,omitempty"`
	SeriesID         *int64  `json:"series_id,omitempty"`
	AssignedStaffID  *int64  `json:"assigned_staff_id,omitempty"`
	AssignmentStatus *string `json:"assignment_status,omitempty"`
	Status           string  `json:"status"`
	AutoGenerated    bool    `json:"auto_generated"`
	IsRecurring      bool    `json:"is_recurring"`
	Locked           bool    `json:"locked"`
	BookingHash      *string `json:"booking_hash,omitempty"`

	// Denormalized same-apartment turnover lookahead, recomputed on every
	// reconciliation pass. Only set on booking-derived tasks.
	NextArrival          *string `json:"next_arrival,omitempty"`
	NextArrivalAdults    *int    `json:"next_arrival_adults,omitempty"`
	NextArrivalChildren  *int    `json:"next_arrival_children,omitempty"`
	NextArrivalComments  *string `json:"next_arrival_comments,omitempty"`
	NextArrivalGuestName *string `json:"next_arrival_guest_name,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Task lifecycle status constants.
const (
	TaskStatusOpen    = "open"
	TaskStatusRunning = "running"
	TaskStatusPaused  = "paused"
	TaskStatusDone    = "done"
)

// Assignment acceptance status constants.
const (
	AssignmentPending  = "pending"
	AssignmentAccepted = "accepted"
	AssignmentRejected = "rejected"
)

// Provenance classifies where a task came from. It decides which
// background pass may touch the task: the reconciler owns booking tasks,
// the expander owns series task creation, manual tasks belong to humans.
type Provenance string

const (
	ProvenanceBooking Provenance = "booking"
	ProvenanceSeries  Provenance = "series"
	ProvenanceManual  Provenance = "manual"
)

// Provenance returns the task's origin classification. A booking link wins
// over a series link so a row that incorrectly carries both is still owned
// by exactly one writer.
func (t *Task) Provenance() Provenance {
	switch {
	case t.BookingID != nil:
		return ProvenanceBooking
	case t.SeriesID != nil:
		return ProvenanceSeries
	default:
		return ProvenanceManual
	}
}
