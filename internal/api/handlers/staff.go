package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// StaffRequest creates or updates a staff member.
type StaffRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Language string `json:"language"`
	Active   *bool  `json:"active"`
}

// ListStaff returns all staff members, including their magic link
// tokens for the admin UI to hand out.
func ListStaff(repo *storage.StaffRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query staff")
			return
		}
		if list == nil {
			list = []models.Staff{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetStaff returns a single staff member.
func GetStaff(repo *storage.StaffRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid staff id")
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query staff")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Staff not found")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// CreateStaff adds a staff member and mints their magic link token.
func CreateStaff(repo *storage.StaffRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "name is required")
			return
		}

		// New staff always start active; PUT deactivates later.
		s := &models.Staff{
			Name:     strings.TrimSpace(req.Name),
			Email:    req.Email,
			Phone:    req.Phone,
			Language: req.Language,
		}
		if err := repo.Create(r.Context(), s); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create staff")
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

// UpdateStaff updates a staff member. The magic token is never rotated
// here so shared cleaner links keep working.
func UpdateStaff(repo *storage.StaffRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid staff id")
			return
		}

		var req StaffRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "name is required")
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query staff")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Staff not found")
			return
		}

		s.Name = strings.TrimSpace(req.Name)
		s.Email = req.Email
		s.Phone = req.Phone
		if req.Language != "" {
			s.Language = req.Language
		}
		if req.Active != nil {
			s.Active = *req.Active
		}

		if err := repo.Update(r.Context(), s); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update staff")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// DeleteStaff removes a staff member. Their assigned tasks fall back to
// unassigned; their time logs are removed with them.
func DeleteStaff(repo *storage.StaffRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid staff id")
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query staff")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Staff not found")
			return
		}

		if err := repo.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete staff")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
