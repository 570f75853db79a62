package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// ListApartments returns all known apartments. Apartments appear
// automatically when the booking feed first mentions them.
func ListApartments(repo *storage.ApartmentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query apartments")
			return
		}
		if list == nil {
			list = []models.Apartment{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetApartment returns a single apartment.
func GetApartment(repo *storage.ApartmentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid apartment id")
			return
		}

		a, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query apartment")
			return
		}
		if a == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Apartment not found")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// UpdateApartmentRequest sets the per-apartment cleaning time override.
// A null planned_minutes clears the override back to the global default.
type UpdateApartmentRequest struct {
	PlannedMinutes *int `json:"planned_minutes"`
}

// UpdateApartment sets the apartment's planned minutes override. Only
// newly created tasks pick it up.
func UpdateApartment(repo *storage.ApartmentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid apartment id")
			return
		}

		var req UpdateApartmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if req.PlannedMinutes != nil && *req.PlannedMinutes <= 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "planned_minutes must be positive")
			return
		}

		a, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query apartment")
			return
		}
		if a == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Apartment not found")
			return
		}

		if err := repo.SetPlannedMinutes(r.Context(), id, req.PlannedMinutes); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update apartment")
			return
		}

		a.PlannedMinutes = req.PlannedMinutes
		writeJSON(w, http.StatusOK, a)
	}
}
