package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/turnover-planner/backend/internal/storage/models"
)

// StaffRepository provides data access for cleaning staff.
type StaffRepository struct {
	BaseRepository
}

// NewStaffRepository creates a new staff repository.
func NewStaffRepository(db *DB) *StaffRepository {
	return &StaffRepository{BaseRepository: NewBaseRepository(db)}
}

const staffColumns = "id, name, email, phone, language, magic_token, active, created_at"

func scanStaff(row interface{ Scan(...any) error }) (*models.Staff, error) {
	s := &models.Staff{}
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Phone, &s.Language,
		&s.MagicToken, &s.Active, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new staff member, minting a fresh magic token.
func (r *StaffRepository) Create(ctx context.Context, s *models.Staff) error {
	s.MagicToken = NewToken()
	s.CreatedAt = r.Now()
	if s.Language == "" {
		s.Language = "de"
	}
	// New staff start active; deactivation goes through Update.
	s.Active = true

	result, err := r.DB().ExecContext(ctx, `
		INSERT INTO staff (name, email, phone, language, magic_token, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.Name, s.Email, s.Phone, s.Language, s.MagicToken, s.Active, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting staff: %w", err)
	}

	s.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading staff id: %w", err)
	}
	return nil
}

// GetByID retrieves a staff member by ID.
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	s, err := scanStaff(r.DB().QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying staff: %w", err)
	}
	return s, nil
}

// GetByToken retrieves an active staff member by magic token. Used by the
// cleaner self-service endpoints.
func (r *StaffRepository) GetByToken(ctx context.Context, token string) (*models.Staff, error) {
	s, err := scanStaff(r.DB().QueryRowContext(ctx,
		"SELECT "+staffColumns+" FROM staff WHERE magic_token = ? AND active = 1", token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying staff by token: %w", err)
	}
	return s, nil
}

// List retrieves all staff members ordered by name.
func (r *StaffRepository) List(ctx context.Context) ([]models.Staff, error) {
	rows, err := r.DB().QueryContext(ctx,
		"SELECT "+staffColumns+" FROM staff ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying staff: %w", err)
	}
	defer rows.Close()

	var staff []models.Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning staff: %w", err)
		}
		staff = append(staff, *s)
	}
	return staff, rows.Err()
}

// Update updates a staff member's editable fields. The magic token is
// never rewritten here; stale links stay valid for the member's lifetime.
func (r *StaffRepository) Update(ctx context.Context, s *models.Staff) error {
	result, err := r.DB().ExecContext(ctx, `
		UPDATE staff SET name = ?, email = ?, phone = ?, language = ?, active = ?
		WHERE id = ?
	`, s.Name, s.Email, s.Phone, s.Language, s.Active, s.ID)
	if err != nil {
		return fmt.Errorf("updating staff: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("staff not found: %d", s.ID)
	}
	return nil
}

// Delete removes a staff member. Their assigned tasks fall back to
// unassigned; their time logs are removed with them.
func (r *StaffRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.DB().ExecContext(ctx, "DELETE FROM staff WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting staff: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("staff not found: %d", id)
	}
	return nil
}
