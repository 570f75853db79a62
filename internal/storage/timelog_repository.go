package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// TimeLogRepository provides data access for staff time tracking.
type TimeLogRepository struct {
	BaseRepository
}

// NewTimeLogRepository creates a new time log repository.
func NewTimeLogRepository(db *DB) *TimeLogRepository {
	return &TimeLogRepository{BaseRepository: NewBaseRepository(db)}
}

// Start opens a new time span for the staff member on the task. If a span
// is already open for this (task, staff) pair it is returned unchanged,
// so double-taps on the start button do not produce overlapping logs.
func (r *TimeLogRepository) Start(ctx context.Context, taskID, staffID int64) (*models.TimeLog, error) {
	open, err := r.openLog(ctx, taskID, staffID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return open, nil
	}

	log := &models.TimeLog{TaskID: taskID, StaffID: staffID, StartTime: r.Now()}
	result, err := r.DB().ExecContext(ctx,
		"INSERT INTO time_logs (task_id, staff_id, start_time) VALUES (?, ?, ?)",
		log.TaskID, log.StaffID, log.StartTime)
	if err != nil {
		return nil, fmt.Errorf("inserting time log: %w", err)
	}

	log.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading time log id: %w", err)
	}
	return log, nil
}

// StopOpen closes the open span for the (task, staff) pair. It reports
// false when no span was open.
func (r *TimeLogRepository) StopOpen(ctx context.Context, taskID, staffID int64) (bool, error) {
	now := r.Now()
	result, err := r.DB().ExecContext(ctx, `
		UPDATE time_logs SET end_time = ?
		WHERE task_id = ? AND staff_id = ? AND end_time IS NULL
	`, now, taskID, staffID)
	if err != nil {
		return false, fmt.Errorf("closing time log: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	return rowsAffected > 0, nil
}

func (r *TimeLogRepository) openLog(ctx context.Context, taskID, staffID int64) (*models.TimeLog, error) {
	l := &models.TimeLog{}
	err := r.DB().QueryRowContext(ctx, `
		SELECT id, task_id, staff_id, start_time, end_time FROM time_logs
		WHERE task_id = ? AND staff_id = ? AND end_time IS NULL
	`, taskID, staffID).Scan(&l.ID, &l.TaskID, &l.StaffID, &l.StartTime, &l.EndTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying open time log: %w", err)
	}
	return l, nil
}

// ListByTask retrieves all time logs for a task, oldest first.
func (r *TimeLogRepository) ListByTask(ctx context.Context, taskID int64) ([]models.TimeLog, error) {
	rows, err := r.DB().QueryContext(ctx, `
		SELECT id, task_id, staff_id, start_time, end_time FROM time_logs
		WHERE task_id = ? ORDER BY start_time, id
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying time logs: %w", err)
	}
	defer rows.Close()

	var logs []models.TimeLog
	for rows.Next() {
		var l models.TimeLog
		if err := rows.Scan(&l.ID, &l.TaskID, &l.StaffID, &l.StartTime, &l.EndTime); err != nil {
			return nil, fmt.Errorf("scanning time log: %w", err)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
