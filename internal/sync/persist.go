package sync

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// bookingHash fingerprints the task-relevant fields of a booking. A
// changed hash means the cached task needs its scheduling fields
// rewritten on the next pass.
func bookingHash(b *models.Booking) string {
	sum := sha1.Sum([]byte(fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		formatID(b.ApartmentID), b.Arrival, b.Departure,
		formatCount(b.Adults), formatCount(b.Children), b.GuestComments)))
	return hex.EncodeToString(sum[:])
}

func formatID(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// upsertApartment refreshes the apartment name without touching the
// locally managed planned_minutes override. An empty name never replaces
// a known one.
func upsertApartment(ctx context.Context, q storage.Queryable, id int64, name string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO apartments (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
		WHERE excluded.name != ''`,
		id, name)
	if err != nil {
		return fmt.Errorf("upserting apartment %d: %w", id, err)
	}
	return nil
}

func upsertBooking(ctx context.Context, q storage.Queryable, b *models.Booking) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO bookings (id, apartment_id, apartment_name, arrival, departure,
			adults, children, guest_name, guest_comments)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			apartment_id = excluded.apartment_id,
			apartment_name = excluded.apartment_name,
			arrival = excluded.arrival,
			departure = excluded.departure,
			adults = excluded.adults,
			children = excluded.children,
			guest_name = excluded.guest_name,
			guest_comments = excluded.guest_comments`,
		b.ID, b.ApartmentID, b.ApartmentName, b.Arrival, b.Departure,
		b.Adults, b.Children, clip(b.GuestName, 255), clip(b.GuestComments, 2000))
	if err != nil {
		return fmt.Errorf("upserting booking %d: %w", b.ID, err)
	}
	return nil
}

// deleteBookingCascade removes a rejected reservation's cached booking
// together with its derived task.
func deleteBookingCascade(ctx context.Context, q storage.Queryable, bookingID int64) (taskDeleted bool, err error) {
	res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE booking_id = ?`, bookingID)
	if err != nil {
		return false, fmt.Errorf("deleting task for booking %d: %w", bookingID, err)
	}
	n, _ := res.RowsAffected()
	if _, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, bookingID); err != nil {
		return false, fmt.Errorf("deleting booking %d: %w", bookingID, err)
	}
	return n > 0, nil
}

// deleteVanishedBookings drops cached bookings that still depart today or
// later but are absent from the refreshed feed, together with their
// derived tasks. Past bookings stay as history. Returns how many tasks
// went with them.
func deleteVanishedBookings(ctx context.Context, q storage.Queryable, seen map[int64]bool, today string) (int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM bookings WHERE departure >= ?`, today)
	if err != nil {
		return 0, fmt.Errorf("loading cached bookings: %w", err)
	}
	var vanished []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning booking id: %w", err)
		}
		if !seen[id] {
			vanished = append(vanished, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	tasksDeleted := 0
	for _, id := range vanished {
		taskGone, err := deleteBookingCascade(ctx, q, id)
		if err != nil {
			return 0, err
		}
		if taskGone {
			tasksDeleted++
		}
	}
	return tasksDeleted, nil
}

// bookingTask is the slice of a task row the reconciler needs to decide
// between update, keep and delete.
type bookingTask struct {
	taskID     int64
	date       string
	hash       string
	naArrival  *string
	naGuest    *string
	naAdults   *int
	naChildren *int
	naComments *string
}

// unchanged reports whether a pass over this row would write exactly what
// is already stored, so the reconciler can skip the UPDATE and leave
// updated_at alone.
func (t bookingTask) unchanged(b *models.Booking, hash string, next *NextArrival) bool {
	if t.date != b.Departure || t.hash != hash {
		return false
	}
	if next == nil {
		return t.naArrival == nil && t.naGuest == nil && t.naAdults == nil &&
			t.naChildren == nil && t.naComments == nil
	}
	return strPtrEq(t.naArrival, next.Arrival) &&
		strPtrEq(t.naGuest, next.GuestName) &&
		intPtrEq(t.naAdults, next.Adults) &&
		intPtrEq(t.naChildren, next.Children) &&
		strPtrEq(t.naComments, next.GuestComments)
}

func strPtrEq(p *string, v string) bool { return p != nil && *p == v }

func intPtrEq(p, v *int) bool {
	if p == nil || v == nil {
		return p == nil && v == nil
	}
	return *p == *v
}

func loadBookingTasks(ctx context.Context, q storage.Queryable) (map[int64]bookingTask, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, booking_id, date, COALESCE(booking_hash, ''),
			next_arrival, next_arrival_guest_name, next_arrival_adults,
			next_arrival_children, next_arrival_comments
		FROM tasks WHERE booking_id IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("loading booking tasks: %w", err)
	}
	defer rows.Close()

	tasks := make(map[int64]bookingTask)
	for rows.Next() {
		var t bookingTask
		var bookingID int64
		if err := rows.Scan(&t.taskID, &bookingID, &t.date, &t.hash,
			&t.naArrival, &t.naGuest, &t.naAdults, &t.naChildren, &t.naComments); err != nil {
			return nil, fmt.Errorf("scanning booking task: %w", err)
		}
		tasks[bookingID] = t
	}
	return tasks, rows.Err()
}

func insertBookingTask(ctx context.Context, q storage.Queryable, b *models.Booking, hash string, next *NextArrival, plannedMinutes int) error {
	naArrival, naGuest, naAdults, naChildren, naComments := nextArrivalArgs(next)
	_, err := q.ExecContext(ctx, `
		INSERT INTO tasks (date, planned_minutes, apartment_id, booking_id, status,
			auto_generated, booking_hash,
			next_arrival, next_arrival_guest_name, next_arrival_adults,
			next_arrival_children, next_arrival_comments)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?, ?, ?, ?, ?)`,
		b.Departure, plannedMinutes, b.ApartmentID, b.ID, models.TaskStatusOpen,
		hash, naArrival, naGuest, naAdults, naChildren, naComments)
	if err != nil {
		return fmt.Errorf("inserting task for booking %d: %w", b.ID, err)
	}
	return nil
}

// updateBookingTask rewrites the reconciler-owned scheduling fields and
// nothing else. Planned minutes, assignment, notes and status belong to
// the humans once the task exists.
func updateBookingTask(ctx context.Context, q storage.Queryable, taskID int64, b *models.Booking, hash string, next *NextArrival) error {
	naArrival, naGuest, naAdults, naChildren, naComments := nextArrivalArgs(next)
	_, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			date = ?, apartment_id = ?, auto_generated = 1, booking_hash = ?,
			next_arrival = ?, next_arrival_guest_name = ?, next_arrival_adults = ?,
			next_arrival_children = ?, next_arrival_comments = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		b.Departure, b.ApartmentID, hash,
		naArrival, naGuest, naAdults, naChildren, naComments, taskID)
	if err != nil {
		return fmt.Errorf("updating task %d: %w", taskID, err)
	}
	return nil
}

func nextArrivalArgs(next *NextArrival) (arrival, guest, adults, children, comments any) {
	if next == nil {
		return nil, nil, nil, nil, nil
	}
	return next.Arrival, next.GuestName, next.Adults, next.Children, next.GuestComments
}

func deleteTask(ctx context.Context, q storage.Queryable, taskID int64) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, taskID); err != nil {
		return fmt.Errorf("deleting task %d: %w", taskID, err)
	}
	return nil
}

// plannedMinutesFor resolves the default effort for a new booking task:
// apartment override when set, otherwise the configured default.
func plannedMinutesFor(ctx context.Context, q storage.Queryable, apartmentID *int64, def int) (int, error) {
	if apartmentID == nil {
		return def, nil
	}
	var minutes *int
	err := q.QueryRowContext(ctx,
		`SELECT planned_minutes FROM apartments WHERE id = ?`, *apartmentID).Scan(&minutes)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading apartment %d: %w", *apartmentID, err)
	}
	if minutes == nil {
		return def, nil
	}
	return *minutes, nil
}

// deleteMalformedTasks drops tasks whose date can never be scheduled:
// empty, not YYYY-MM-DD, or older than the minimum sane date.
func deleteMalformedTasks(ctx context.Context, q storage.Queryable) (int, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, date FROM tasks`)
	if err != nil {
		return 0, fmt.Errorf("loading task dates: %w", err)
	}
	var bad []int64
	for rows.Next() {
		var id int64
		var date string
		if err := rows.Scan(&id, &date); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning task date: %w", err)
		}
		if !models.WellFormedDate(date) || date < models.MinSaneDate {
			bad = append(bad, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range bad {
		if err := deleteTask(ctx, q, id); err != nil {
			return 0, err
		}
	}
	return len(bad), nil
}
