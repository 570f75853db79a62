package handlers

import (
	"net/http"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/series"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
	"github.com/turnover-planner/backend/internal/sync"
)

// TriggerRefresh runs a booking refresh pass and reports the outcome
// inline, so the admin's "import now" button sees success or failure
// directly instead of waiting for the WebSocket event.
func TriggerRefresh(service *sync.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := service.Refresh(r.Context())
		if err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusBadGateway, middleware.ErrInternalError,
				"Booking refresh failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// TriggerExpansion runs a series expansion pass and reports how many
// tasks it created.
func TriggerExpansion(expander *series.Expander) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		created, err := expander.ExpandAll(r.Context())
		if err != nil {
			middleware.WriteErrorWithDetails(w, http.StatusInternalServerError, middleware.ErrInternalError,
				"Series expansion failed", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"tasks_created": created})
	}
}

// ListBookings returns the cached booking snapshot.
func ListBookings(repo *storage.BookingRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query bookings")
			return
		}
		if list == nil {
			list = []models.Booking{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
