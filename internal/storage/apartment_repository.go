package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// ApartmentRepository provides data access for rental units.
type ApartmentRepository struct {
	BaseRepository
}

// NewApartmentRepository creates a new apartment repository.
func NewApartmentRepository(db *DB) *ApartmentRepository {
	return &ApartmentRepository{BaseRepository: NewBaseRepository(db)}
}

// List retrieves all known apartments ordered by name.
func (r *ApartmentRepository) List(ctx context.Context) ([]models.Apartment, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT id, name, planned_minutes FROM apartments ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying apartments: %w", err)
	}
	defer rows.Close()

	var apartments []models.Apartment
	for rows.Next() {
		var a models.Apartment
		if err := rows.Scan(&a.ID, &a.Name, &a.PlannedMinutes); err != nil {
			return nil, fmt.Errorf("scanning apartment: %w", err)
		}
		apartments = append(apartments, a)
	}
	return apartments, rows.Err()
}

// GetByID retrieves an apartment by its PMS id.
func (r *ApartmentRepository) GetByID(ctx context.Context, id int64) (*models.Apartment, error) {
	a := &models.Apartment{}
	err := r.DB().QueryRowContext(ctx,
		"SELECT id, name, planned_minutes FROM apartments WHERE id = ?", id).Scan(
		&a.ID, &a.Name, &a.PlannedMinutes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying apartment: %w", err)
	}
	return a, nil
}

// SetPlannedMinutes records an operator override for the default cleaning
// duration. A nil value clears the override.
func (r *ApartmentRepository) SetPlannedMinutes(ctx context.Context, id int64, minutes *int) error {
	result, err := r.DB().ExecContext(ctx,
		"UPDATE apartments SET planned_minutes = ? WHERE id = ?", minutes, id)
	if err != nil {
		return fmt.Errorf("updating apartment: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("apartment not found: %d", id)
	}
	return nil
}

// PlannedMinutesFor returns the cleaning duration for an apartment,
// falling back to the given default when the apartment is unknown, has no
// override, or no apartment is set at all.
func (r *ApartmentRepository) PlannedMinutesFor(ctx context.Context, apartmentID *int64, def int) int {
	if apartmentID == nil {
		return def
	}
	var minutes *int
	err := r.DB().QueryRowContext(ctx,
		"SELECT planned_minutes FROM apartments WHERE id = ?", *apartmentID).Scan(&minutes)
	if err != nil || minutes == nil || *minutes <= 0 {
		return def
	}
	return *minutes
}
