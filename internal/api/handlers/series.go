package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/series"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// SeriesRequest creates or replaces a recurring task series.
type SeriesRequest struct {
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	ApartmentID    *int64  `json:"apartment_id"`
	StaffID        *int64  `json:"staff_id"`
	PlannedMinutes *int    `json:"planned_minutes"`
	StartDate      string  `json:"start_date"`
	StartTime      *string `json:"start_time"`
	Frequency      string  `json:"frequency"`
	Interval       int     `json:"interval"`
	ByWeekday      *string `json:"byweekday"`
	ByMonthday     *string `json:"bymonthday"`
	EndDate        *string `json:"end_date"`
	Count          *int    `json:"count"`
	Active         *bool   `json:"active"`
}

func (req *SeriesRequest) validate() string {
	if strings.TrimSpace(req.Title) == "" {
		return "title is required"
	}
	if !models.WellFormedDate(req.StartDate) || req.StartDate < models.MinSaneDate {
		return "start_date must be a valid YYYY-MM-DD date"
	}
	if req.EndDate != nil && !models.WellFormedDate(*req.EndDate) {
		return "end_date must be a valid YYYY-MM-DD date"
	}
	if req.Count != nil && *req.Count < 1 {
		return "count must be positive"
	}
	return ""
}

func (req *SeriesRequest) apply(s *models.TaskSeries) {
	s.Title = strings.TrimSpace(req.Title)
	s.Description = req.Description
	s.ApartmentID = req.ApartmentID
	s.StaffID = req.StaffID
	s.PlannedMinutes = req.PlannedMinutes
	s.StartDate = req.StartDate
	s.StartTime = req.StartTime
	s.Frequency = normalizeFrequency(req.Frequency)
	s.Interval = req.Interval
	if s.Interval < 1 {
		s.Interval = 1
	}
	s.ByWeekday = req.ByWeekday
	s.ByMonthday = req.ByMonthday
	s.EndDate = req.EndDate
	s.Count = req.Count
	s.Active = req.Active == nil || *req.Active
}

// normalizeFrequency folds unrecognized frequencies into the single-shot
// catch-all instead of rejecting them.
func normalizeFrequency(f string) string {
	switch strings.ToLower(strings.TrimSpace(f)) {
	case models.FrequencyWeekly:
		return models.FrequencyWeekly
	case models.FrequencyMonthly:
		return models.FrequencyMonthly
	case models.FrequencyYearly:
		return models.FrequencyYearly
	default:
		return models.FrequencyOther
	}
}

// ListSeries returns all recurring series.
func ListSeries(repo *storage.SeriesRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query series")
			return
		}
		if list == nil {
			list = []models.TaskSeries{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetSeries returns a single series.
func GetSeries(repo *storage.SeriesRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid series id")
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query series")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Series not found")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// CreateSeries adds a recurring series and immediately materializes its
// occurrences inside the horizon.
func CreateSeries(repo *storage.SeriesRepository, expander *series.Expander) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		s := &models.TaskSeries{}
		req.apply(s)

		if err := repo.Create(r.Context(), s); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create series")
			return
		}

		if _, err := expander.ExpandOne(r.Context(), s.ID); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Series created but expansion failed")
			return
		}
		writeJSON(w, http.StatusCreated, s)
	}
}

// UpdateSeries replaces a series definition. Already materialized tasks
// are left in place; only future expansion follows the new rules.
func UpdateSeries(repo *storage.SeriesRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid series id")
			return
		}

		var req SeriesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, msg)
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query series")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Series not found")
			return
		}

		req.apply(s)
		if err := repo.Update(r.Context(), s); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update series")
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}

// DeleteSeries removes a series. With ?cascade=future its generated
// tasks dated today or later are removed as well; past occurrences stay
// for the work history.
func DeleteSeries(repo *storage.SeriesRepository, tasks *storage.TaskRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid series id")
			return
		}

		s, err := repo.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query series")
			return
		}
		if s == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Series not found")
			return
		}

		if r.URL.Query().Get("cascade") == "future" {
			today := time.Now().UTC().Format(models.DateLayout)
			if _, err := tasks.DeleteFutureForSeries(r.Context(), id, today); err != nil {
				middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete series tasks")
				return
			}
		}

		if err := repo.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete series")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ExpandSeries materializes a single series on demand.
func ExpandSeries(expander *series.Expander) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid series id")
			return
		}

		created, err := expander.ExpandOne(r.Context(), id)
		if errors.Is(err, series.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Series not found")
			return
		}
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Expansion failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"tasks_created": created})
	}
}
