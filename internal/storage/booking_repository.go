package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// BookingRepository provides data access for the cached PMS bookings.
// Writes happen inside the refresh pass (see the sync package); this
// repository serves reads for handlers and tests.
type BookingRepository struct {
	BaseRepository
}

// NewBookingRepository creates a new booking repository.
func NewBookingRepository(db *DB) *BookingRepository {
	return &BookingRepository{BaseRepository: NewBaseRepository(db)}
}

const bookingColumns = `id, apartment_id, apartment_name, arrival, departure,
	adults, children, guest_name, guest_comments`

// GetByID retrieves a cached booking by its external reservation id.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	b := &models.Booking{}
	err := r.DB().QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id).Scan(
		&b.ID, &b.ApartmentID, &b.ApartmentName, &b.Arrival, &b.Departure,
		&b.Adults, &b.Children, &b.GuestName, &b.GuestComments,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying booking: %w", err)
	}
	return b, nil
}

// List retrieves all cached bookings ordered by arrival.
func (r *BookingRepository) List(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings ORDER BY arrival, departure")
	if err != nil {
		return nil, fmt.Errorf("querying bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		var b models.Booking
		if err := rows.Scan(
			&b.ID, &b.ApartmentID, &b.ApartmentName, &b.Arrival, &b.Departure,
			&b.Adults, &b.Children, &b.GuestName, &b.GuestComments,
		); err != nil {
			return nil, fmt.Errorf("scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Count returns the number of cached bookings.
func (r *BookingRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting bookings: %w", err)
	}
	return n, nil
}
