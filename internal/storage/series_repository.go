package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// SeriesRepository provides data access for recurring task series.
type SeriesRepository struct {
	BaseRepository
}

// NewSeriesRepository creates a new series repository.
func NewSeriesRepository(db *DB) *SeriesRepository {
	return &SeriesRepository{BaseRepository: NewBaseRepository(db)}
}

const seriesColumns = `id, title, description, apartment_id, staff_id,
	planned_minutes, start_date, start_time, frequency, interval,
	byweekday, bymonthday, end_date, count, active, created_at, updated_at`

func scanSeries(row interface{ Scan(...any) error }) (*models.TaskSeries, error) {
	s := &models.TaskSeries{}
	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.ApartmentID, &s.StaffID,
		&s.PlannedMinutes, &s.StartDate, &s.StartTime, &s.Frequency, &s.Interval,
		&s.ByWeekday, &s.ByMonthday, &s.EndDate, &s.Count, &s.Active,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new series.
func (r *SeriesRepository) Create(ctx context.Context, s *models.TaskSeries) error {
	s.CreatedAt = r.Now()
	s.UpdatedAt = s.CreatedAt
	if s.Interval < 1 {
		s.Interval = 1
	}
	if s.Frequency == "" {
		s.Frequency = models.FrequencyOther
	}

	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO task_series (
			title, description, apartment_id, staff_id, planned_minutes,
			start_date, start_time, frequency, interval, byweekday, bymonthday,
			end_date, count, active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.Title, s.Description, s.ApartmentID, s.StaffID, s.PlannedMinutes,
		s.StartDate, s.StartTime, s.Frequency, s.Interval, s.ByWeekday, s.ByMonthday,
		s.EndDate, s.Count, s.Active, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting series: %w", err)
	}

	s.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading series id: %w", err)
	}
	return nil
}

// GetByID retrieves a series by its ID.
func (r *SeriesRepository) GetByID(ctx context.Context, id int64) (*models.TaskSeries, error) {
	s, err := scanSeries(r.DB().QueryRowContext(ctx,
		"SELECT "+seriesColumns+" FROM task_series WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	return s, nil
}

// List retrieves all series ordered by title.
func (r *SeriesRepository) List(ctx context.Context) ([]models.TaskSeries, error) {
	return r.list(ctx, "SELECT "+seriesColumns+" FROM task_series ORDER BY title")
}

// ListActive retrieves the series eligible for expansion.
func (r *SeriesRepository) ListActive(ctx context.Context) ([]models.TaskSeries, error) {
	return r.list(ctx, "SELECT "+seriesColumns+" FROM task_series WHERE active = 1 ORDER BY id")
}

func (r *SeriesRepository) list(ctx context.Context, query string) ([]models.TaskSeries, error) {
	rows, err := r.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var series []models.TaskSeries
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning series: %w", err)
		}
		series = append(series, *s)
	}
	return series, rows.Err()
}

// Update updates an existing series.
func (r *SeriesRepository) Update(ctx context.Context, s *models.TaskSeries) error {
	s.UpdatedAt = r.Now()
	if s.Interval < 1 {
		s.Interval = 1
	}

	result, err := r.DB().ExecContext(ctx, `
		UPDATE task_series SET
			title = ?, description = ?, apartment_id = ?, staff_id = ?,
			planned_minutes = ?, start_date = ?, start_time = ?, frequency = ?,
			interval = ?, byweekday = ?, bymonthday = ?, end_date = ?, count = ?,
			active = ?, updated_at = ?
		WHERE id = ?
	`,
		s.Title, s.Description, s.ApartmentID, s.StaffID,
		s.PlannedMinutes, s.StartDate, s.StartTime, s.Frequency,
		s.Interval, s.ByWeekday, s.ByMonthday, s.EndDate, s.Count,
		s.Active, s.UpdatedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating series: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("series not found: %d", s.ID)
	}
	return nil
}

// Delete removes a series by ID. Generated tasks keep their series_id and
// are removed separately when the caller requests a cascade.
func (r *SeriesRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM task_series WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting series: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("series not found: %d", id)
	}
	return nil
}
