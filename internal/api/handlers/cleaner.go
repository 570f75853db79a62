package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
	"github.com/turnover-planner/backend/internal/websocket"
)

// The cleaner surface is authenticated by the magic token in the URL
// instead of a login. Tokens resolve only to active staff members.

func resolveCleaner(repo *storage.StaffRepository, w http.ResponseWriter, r *http.Request) *models.Staff {
	token := mux.Vars(r)["token"]
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Missing token")
		return nil
	}

	s, err := repo.GetByToken(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to resolve token")
		return nil
	}
	if s == nil {
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrUnauthorized, "Unknown or inactive token")
		return nil
	}
	return s
}

// cleanerTask loads the task behind {id} and verifies it is assigned to
// the cleaner.
func cleanerTask(tasks *storage.TaskRepository, staff *models.Staff, w http.ResponseWriter, r *http.Request) *models.Task {
	id, ok := pathID(r)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid task id")
		return nil
	}

	t, err := tasks.GetByID(r.Context(), id)
	if err != nil {
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query task")
		return nil
	}
	if t == nil || t.AssignedStaffID == nil || *t.AssignedStaffID != staff.ID {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Task not found")
		return nil
	}
	return t
}

// CleanerBoardResponse is what the cleaner frontend renders: who they
// are plus their upcoming tasks.
type CleanerBoardResponse struct {
	Staff struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Language string `json:"language"`
	} `json:"staff"`
	Tasks []models.Task `json:"tasks"`
}

// CleanerBoard returns the cleaner's upcoming tasks, today onward,
// excluding assignments they rejected.
func CleanerBoard(staffRepo *storage.StaffRepository, tasks *storage.TaskRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff := resolveCleaner(staffRepo, w, r)
		if staff == nil {
			return
		}

		today := time.Now().UTC().Format(models.DateLayout)
		list, err := tasks.ListAssignedTo(r.Context(), staff.ID, today)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to query tasks")
			return
		}
		if list == nil {
			list = []models.Task{}
		}

		var resp CleanerBoardResponse
		resp.Staff.ID = staff.ID
		resp.Staff.Name = staff.Name
		resp.Staff.Language = staff.Language
		resp.Tasks = list
		writeJSON(w, http.StatusOK, resp)
	}
}

// CleanerRespond records the cleaner's accept or reject answer to an
// assignment.
func CleanerRespond(staffRepo *storage.StaffRepository, tasks *storage.TaskRepository, broadcaster *websocket.EventBroadcaster, status string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff := resolveCleaner(staffRepo, w, r)
		if staff == nil {
			return
		}
		t := cleanerTask(tasks, staff, w, r)
		if t == nil {
			return
		}

		if err := tasks.SetAssignmentStatus(r.Context(), t.ID, staff.ID, status); err != nil {
			middleware.WriteError(w, http.StatusConflict, middleware.ErrConflict, "Failed to update assignment")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "assigned", t.Date)
		}
		writeJSON(w, http.StatusOK, map[string]string{"assignment_status": status})
	}
}

// CleanerStart opens a time log on the task and marks it running.
// Starting an already running task is a no-op on the log.
func CleanerStart(staffRepo *storage.StaffRepository, tasks *storage.TaskRepository, timeLogs *storage.TimeLogRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff := resolveCleaner(staffRepo, w, r)
		if staff == nil {
			return
		}
		t := cleanerTask(tasks, staff, w, r)
		if t == nil {
			return
		}

		entry, err := timeLogs.Start(r.Context(), t.ID, staff.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to start time log")
			return
		}
		if err := tasks.SetStatus(r.Context(), t.ID, models.TaskStatusRunning); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "status", t.Date)
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

// CleanerStop closes the open time log and pauses the task. Finishing a
// task goes through CleanerFinish instead.
func CleanerStop(staffRepo *storage.StaffRepository, tasks *storage.TaskRepository, timeLogs *storage.TimeLogRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff := resolveCleaner(staffRepo, w, r)
		if staff == nil {
			return
		}
		t := cleanerTask(tasks, staff, w, r)
		if t == nil {
			return
		}

		stopped, err := timeLogs.StopOpen(r.Context(), t.ID, staff.ID)
		if err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to stop time log")
			return
		}
		if err := tasks.SetStatus(r.Context(), t.ID, models.TaskStatusPaused); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "status", t.Date)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"stopped": stopped})
	}
}

// CleanerFinish closes any open time log and marks the task done.
func CleanerFinish(staffRepo *storage.StaffRepository, tasks *storage.TaskRepository, timeLogs *storage.TimeLogRepository, broadcaster *websocket.EventBroadcaster) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staff := resolveCleaner(staffRepo, w, r)
		if staff == nil {
			return
		}
		t := cleanerTask(tasks, staff, w, r)
		if t == nil {
			return
		}

		if _, err := timeLogs.StopOpen(r.Context(), t.ID, staff.ID); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to stop time log")
			return
		}
		if err := tasks.SetStatus(r.Context(), t.ID, models.TaskStatusDone); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update task")
			return
		}

		if broadcaster != nil {
			broadcaster.TaskChanged(t.ID, "status", t.Date)
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.TaskStatusDone})
	}
}
