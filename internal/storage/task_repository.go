package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// TaskRepository provides data access for cleaning tasks.
type TaskRepository struct {
	BaseRepository
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{BaseRepository: NewBaseRepository(db)}
}

const taskColumns = `id, date, start_time, planned_minutes, notes, extras,
	apartment_id, booking_id, series_id, assigned_staff_id, assignment_status,
	status, auto_generated, is_recurring, locked, booking_hash,
	next_arrival, next_arrival_adults, next_arrival_children,
	next_arrival_comments, next_arrival_guest_name, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID, &t.Date, &t.StartTime, &t.PlannedMinutes, &t.Notes, &t.Extras,
		&t.ApartmentID, &t.BookingID, &t.SeriesID, &t.AssignedStaffID, &t.AssignmentStatus,
		&t.Status, &t.AutoGenerated, &t.IsRecurring, &t.Locked, &t.BookingHash,
		&t.NextArrival, &t.NextArrivalAdults, &t.NextArrivalChildren,
		&t.NextArrivalComments, &t.NextArrivalGuestName, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, t *models.Task) error {
	t.CreatedAt = r.Now()
	t.UpdatedAt = t.CreatedAt
	if t.Status == "" {
		t.Status = models.TaskStatusOpen
	}

	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO tasks (
			date, start_time, planned_minutes, notes, extras,
			apartment_id, booking_id, series_id, assigned_staff_id, assignment_status,
			status, auto_generated, is_recurring, locked, booking_hash,
			next_arrival, next_arrival_adults, next_arrival_children,
			next_arrival_comments, next_arrival_guest_name, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Date, t.StartTime, t.PlannedMinutes, t.Notes, t.Extras,
		t.ApartmentID, t.BookingID, t.SeriesID, t.AssignedStaffID, t.AssignmentStatus,
		t.Status, t.AutoGenerated, t.IsRecurring, t.Locked, t.BookingHash,
		t.NextArrival, t.NextArrivalAdults, t.NextArrivalChildren,
		t.NextArrivalComments, t.NextArrivalGuestName, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}

	t.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading task id: %w", err)
	}
	return nil
}

// GetByID retrieves a task by its ID.
func (r *TaskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	t, err := scanTask(r.DB().QueryRowContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying task: %w", err)
	}
	return t, nil
}

// TaskFilter narrows List results. Zero values mean no restriction.
type TaskFilter struct {
	DateFrom    string
	DateTo      string
	StaffID     int64
	ApartmentID int64
	Status      string
}

// List retrieves tasks matching the filter, ordered by date.
func (r *TaskRepository) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	var conds []string
	var args []any
	if f.DateFrom != "" {
		conds, args = append(conds, "date >= ?"), append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		conds, args = append(conds, "date <= ?"), append(args, f.DateTo)
	}
	if f.StaffID != 0 {
		conds, args = append(conds, "assigned_staff_id = ?"), append(args, f.StaffID)
	}
	if f.ApartmentID != 0 {
		conds, args = append(conds, "apartment_id = ?"), append(args, f.ApartmentID)
	}
	if f.Status != "" {
		conds, args = append(conds, "status = ?"), append(args, f.Status)
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date, id"

	rows, err := r.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Update persists the mutable fields of an existing task. Scheduling
// fields owned by the reconciler (booking link, provenance flags,
// next-arrival cache) are written only by the reconciliation pass itself.
func (r *TaskRepository) Update(ctx context.Context, t *models.Task) error {
	t.UpdatedAt = r.Now()

	result, err := r.DB().ExecContext(ctx, `
		UPDATE tasks SET
			date = ?, start_time = ?, planned_minutes = ?, notes = ?, extras = ?,
			apartment_id = ?, assigned_staff_id = ?, assignment_status = ?,
			status = ?, locked = ?, updated_at = ?
		WHERE id = ?
	`,
		t.Date, t.StartTime, t.PlannedMinutes, t.Notes, t.Extras,
		t.ApartmentID, t.AssignedStaffID, t.AssignmentStatus,
		t.Status, t.Locked, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %d", t.ID)
	}
	return nil
}

// Delete removes a task by ID.
func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %d", id)
	}
	return nil
}

// LastSeriesDate returns the most recent date a series has generated a
// task for, or the empty string when nothing has been generated yet. This
// is the expansion watermark.
func (r *TaskRepository) LastSeriesDate(ctx context.Context, seriesID int64) (string, error) {
	var date string
	err := r.DB().QueryRowContext(ctx,
		"SELECT date FROM tasks WHERE series_id = ? ORDER BY date DESC LIMIT 1",
		seriesID).Scan(&date)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying series watermark: %w", err)
	}
	return date, nil
}

// CountForSeries returns how many tasks a series has generated so far.
// The series count cap is enforced against this number, not per call.
func (r *TaskRepository) CountForSeries(ctx context.Context, seriesID int64) (int, error) {
	var n int
	err := r.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks WHERE series_id = ?", seriesID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting series tasks: %w", err)
	}
	return n, nil
}

// ExistsForSeriesDate reports whether a task already exists for the given
// (series, date) pair.
func (r *TaskRepository) ExistsForSeriesDate(ctx context.Context, seriesID int64, date string) (bool, error) {
	var one int
	err := r.DB().QueryRowContext(ctx,
		"SELECT 1 FROM tasks WHERE series_id = ? AND date = ?",
		seriesID, date).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying series task: %w", err)
	}
	return true, nil
}

// DeleteFutureForSeries removes generated tasks of a series dated on or
// after the given date. Used by cascading series deletion; past
// occurrences are kept.
func (r *TaskRepository) DeleteFutureForSeries(ctx context.Context, seriesID int64, fromDate string) (int64, error) {
	result, err := r.DB().ExecContext(ctx,
		"DELETE FROM tasks WHERE series_id = ? AND date >= ?", seriesID, fromDate)
	if err != nil {
		return 0, fmt.Errorf("deleting series tasks: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

// ListAssignedTo retrieves tasks assigned to a staff member from the given
// date onward, excluding rejected assignments.
func (r *TaskRepository) ListAssignedTo(ctx context.Context, staffID int64, fromDate string) ([]models.Task, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT `+taskColumns+` FROM tasks
		WHERE assigned_staff_id = ? AND date >= ?
		  AND (assignment_status IS NULL OR assignment_status != ?)
		ORDER BY date, id
	`, staffID, fromDate, models.AssignmentRejected)
	if err != nil {
		return nil, fmt.Errorf("querying assigned tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// SetAssignmentStatus records a staff member's response to an assignment.
// The staff id must match the task's assignee.
func (r *TaskRepository) SetAssignmentStatus(ctx context.Context, taskID, staffID int64, status string) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE tasks SET assignment_status = ?, updated_at = ?
		WHERE id = ? AND assigned_staff_id = ?
	`, status, r.Now(), taskID, staffID)
	if err != nil {
		return fmt.Errorf("updating assignment status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task %d is not assigned to staff %d", taskID, staffID)
	}
	return nil
}

// SetStatus updates a task's lifecycle status.
func (r *TaskRepository) SetStatus(ctx context.Context, taskID int64, status string) error {
	result, err := r.DB().ExecContext(ctx,
		"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
		status, r.Now(), taskID)
	if err != nil {
		return fmt.Errorf("updating task status: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %d", taskID)
	}
	return nil
}
