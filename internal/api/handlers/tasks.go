package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
	"github.com/turnover-planner/backend/internal/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

// ListTasks returns tasks filtered by the from, to, staff_id,
// apartment_id and status query parameters.
func ListTasks(tasks *storage.TaskRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := storage.TaskFilter{
			DateFrom: q.Get("from"),
			DateTo:   q.Get("to"),
			Status:   q.Get("status"),
		}
		filter.StaffID, _ = strconv.ParseInt(q.Get("staff_id"), 10, 64)
		filter.ApartmentID, _ = strconv.ParseInt(q.Get("apartment_id"), 10, 64)

		list, err := tasks.List(r.Context(), filter)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query tasks")
			return
		}
		if list == nil {
			list = []models.Task{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// GetTask returns a single task.
func GetTask(tasks *storage.TaskRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid task id")
			return
		}

		t, err := tasks.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// CreateTaskRequest creates a manual task. Booking and series links are
// owned by the background passes and cannot be set here.
type CreateTaskRequest struct {
	Date            string  `json:"date"`
	StartTime       *string `json:"start_time"`
	PlannedMinutes  int     `json:"planned_minutes"`
	Notes           *string `json:"notes"`
	Extras          *string `json:"extras"`
	ApartmentID     *int64  `json:"apartment_id"`
	AssignedStaffID *int64  `json:"assigned_staff_id"`
}

// CreateTask adds a manual task to the board.
func CreateTask(tasks *storage.TaskRepository, apartments *storage.ApartmentRepository, broadcaster *websocket.EventBroadcaster, defaultMinutes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}
		if !models.WellFormedDate(req.Date) || req.Date < models.MinSaneDate {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must be a valid YYYY-MM-DD date")
			return
		}

		minutes := req.PlannedMinutes
		if minutes <= 0 {
			minutes = apartments.PlannedMinutesFor(r.Context(), req.ApartmentID, defaultMinutes)
		}

		t := &models.Task{
			Date:            req.Date,
			StartTime:       req.StartTime,
			PlannedMinutes:  minutes,
			Notes:           req.Notes,
			Extras:          req.Extras,
			ApartmentID:     req.ApartmentID,
			AssignedStaffID: req.AssignedStaffID,
			Status:          models.TaskStatusOpen,
		}
		if req.AssignedStaffID != nil {
			status := models.AssignmentPending
			t.AssignmentStatus = &status
		}

		if err := tasks.Create(r.Context(), t); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to create task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "created", t.Date)
		}
		writeJSON(w, http.StatusCreated, t)
	}
}

// UpdateTaskRequest carries a partial update. Absent fields are left
// unchanged; assigned_staff_id 0 removes the assignment.
type UpdateTaskRequest struct {
	Date            *string `json:"date"`
	StartTime       *string `json:"start_time"`
	PlannedMinutes  *int    `json:"planned_minutes"`
	Notes           *string `json:"notes"`
	Extras          *string `json:"extras"`
	ApartmentID     *int64  `json:"apartment_id"`
	AssignedStaffID *int64  `json:"assigned_staff_id"`
	Status          *string `json:"status"`
	Locked          *bool   `json:"locked"`
}

var validStatuses = map[string]bool{
	models.TaskStatusOpen:    true,
	models.TaskStatusRunning: true,
	models.TaskStatusPaused:  true,
	models.TaskStatusDone:    true,
}

// UpdateTask patches the human-editable fields of a task. The
// reconciler-owned scheduling fields are not reachable from here, so an
// edit survives the next refresh pass.
func UpdateTask(tasks *storage.TaskRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid task id")
			return
		}

		var req UpdateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		t, err := tasks.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
			return
		}

		if req.Date != nil {
			if !models.WellFormedDate(*req.Date) || *req.Date < models.MinSaneDate {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "date must be a valid YYYY-MM-DD date")
				return
			}
			t.Date = *req.Date
		}
		if req.Status != nil {
			if !validStatuses[*req.Status] {
				middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Unknown task status")
				return
			}
			t.Status = *req.Status
		}
		if req.StartTime != nil {
			t.StartTime = req.StartTime
		}
		if req.PlannedMinutes != nil && *req.PlannedMinutes > 0 {
			t.PlannedMinutes = *req.PlannedMinutes
		}
		if req.Notes != nil {
			t.Notes = req.Notes
		}
		if req.Extras != nil {
			t.Extras = req.Extras
		}
		if req.ApartmentID != nil {
			t.ApartmentID = req.ApartmentID
		}
		if req.Locked != nil {
			t.Locked = *req.Locked
		}
		if req.AssignedStaffID != nil {
			if *req.AssignedStaffID == 0 {
				t.AssignedStaffID = nil
				t.AssignmentStatus = nil
			} else {
				t.AssignedStaffID = req.AssignedStaffID
				status := models.AssignmentPending
				t.AssignmentStatus = &status
			}
		}

		if err := tasks.Update(r.Context(), t); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "updated", t.Date)
		}
		writeJSON(w, http.StatusOK, t)
	}
}

// DeleteTask removes a task from the board.
func DeleteTask(tasks *storage.TaskRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid task id")
			return
		}

		t, err := tasks.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
			return
		}

		if err := tasks.Delete(r.Context(), id); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to delete task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(id, "deleted", t.Date)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListTaskTimeLogs returns the time log entries recorded on a task.
func ListTaskTimeLogs(tasks *storage.TaskRepository, timeLogs *storage.TimeLogRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r)
		if !ok {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid task id")
			return
		}

		t, err := tasks.GetByID(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
			return
		}
		if t == nil {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
			return
		}

		logs, err := timeLogs.ListByTask(r.Context(), id)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query time logs")
			return
		}
		if logs == nil {
			logs = []models.TimeLog{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}
