// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/api/handlers"
	"github.com/turnover-planner/backend/internal/api/middleware"
	"github.com/turnover-planner/backend/internal/series"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/sync"
	"github.com/turnover-planner/backend/internal/websocket"
)

// Deps carries everything the routes need.
type Deps struct {
	DB          *storage.DB
	Hub         *websocket.Hub
	Broadcaster *websocket.EventBroadcaster
	Tasks       *storage.TaskRepository
	Series      *storage.SeriesRepository
	Apartments  *storage.ApartmentRepository
	Staff       *storage.StaffRepository
	Bookings    *storage.BookingRepository
	TimeLogs    *storage.TimeLogRepository
	Sync        *sync.Service
	Expander    *series.Expander
	Log         *zap.Logger

	// DefaultPlannedMinutes seeds manual tasks without an apartment
	// override.
	DefaultPlannedMinutes int

	// StaticDir holds the built frontend; empty disables static serving.
	StaticDir string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()

	r.Use(middleware.Logging(d.Log))
	r.Use(middleware.ErrorRecovery(d.Log))

	api := r.PathPrefix("/api").Subrouter()

	// Health and status
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub)).Methods("GET")

	// WebSocket
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub, d.Log)).Methods("GET")

	// Manual sync triggers and the cached booking snapshot
	api.HandleFunc("/sync/refresh", handlers.TriggerRefresh(d.Sync)).Methods("POST")
	api.HandleFunc("/sync/expand", handlers.TriggerExpansion(d.Expander)).Methods("POST")
	api.HandleFunc("/bookings", handlers.ListBookings(d.Bookings)).Methods("GET")

	// Tasks
	api.HandleFunc("/tasks", handlers.ListTasks(d.Tasks)).Methods("GET")
	api.HandleFunc("/tasks", handlers.CreateTask(d.Tasks, d.Apartments, d.Broadcaster, d.DefaultPlannedMinutes)).Methods("POST")
	api.HandleFunc("/tasks/{id}", handlers.GetTask(d.Tasks)).Methods("GET")
	api.HandleFunc("/tasks/{id}", handlers.UpdateTask(d.Tasks, d.Broadcaster)).Methods("PATCH")
	api.HandleFunc("/tasks/{id}", handlers.DeleteTask(d.Tasks, d.Broadcaster)).Methods("DELETE")
	api.HandleFunc("/tasks/{id}/timelogs", handlers.ListTaskTimeLogs(d.Tasks, d.TimeLogs)).Methods("GET")

	// Recurring series
	api.HandleFunc("/series", handlers.ListSeries(d.Series)).Methods("GET")
	api.HandleFunc("/series", handlers.CreateSeries(d.Series, d.Expander)).Methods("POST")
	api.HandleFunc("/series/{id}", handlers.GetSeries(d.Series)).Methods("GET")
	api.HandleFunc("/series/{id}", handlers.UpdateSeries(d.Series)).Methods("PUT")
	api.HandleFunc("/series/{id}", handlers.DeleteSeries(d.Series, d.Tasks)).Methods("DELETE")
	api.HandleFunc("/series/{id}/expand", handlers.ExpandSeries(d.Expander)).Methods("POST")

	// Apartments
	api.HandleFunc("/apartments", handlers.ListApartments(d.Apartments)).Methods("GET")
	api.HandleFunc("/apartments/{id}", handlers.GetApartment(d.Apartments)).Methods("GET")
	api.HandleFunc("/apartments/{id}", handlers.UpdateApartment(d.Apartments)).Methods("PUT")

	// Staff
	api.HandleFunc("/staff", handlers.ListStaff(d.Staff)).Methods("GET")
	api.HandleFunc("/staff", handlers.CreateStaff(d.Staff)).Methods("POST")
	api.HandleFunc("/staff/{id}", handlers.GetStaff(d.Staff)).Methods("GET")
	api.HandleFunc("/staff/{id}", handlers.UpdateStaff(d.Staff)).Methods("PUT")
	api.HandleFunc("/staff/{id}", handlers.DeleteStaff(d.Staff)).Methods("DELETE")

	// Cleaner surface, authenticated by the magic token in the URL
	cleaner := api.PathPrefix("/cleaner/{token}").Subrouter()
	cleaner.HandleFunc("/tasks", handlers.CleanerBoard(d.Staff, d.Tasks)).Methods("GET")
	cleaner.HandleFunc("/tasks/{id}/accept", handlers.CleanerRespond(d.Staff, d.Tasks, d.Broadcaster, "accepted")).Methods("POST")
	cleaner.HandleFunc("/tasks/{id}/reject", handlers.CleanerRespond(d.Staff, d.Tasks, d.Broadcaster, "rejected")).Methods("POST")
	cleaner.HandleFunc("/tasks/{id}/start", handlers.CleanerStart(d.Staff, d.Tasks, d.TimeLogs, d.Broadcaster)).Methods("POST")
	cleaner.HandleFunc("/tasks/{id}/stop", handlers.CleanerStop(d.Staff, d.Tasks, d.TimeLogs, d.Broadcaster)).Methods("POST")
	cleaner.HandleFunc("/tasks/{id}/done", handlers.CleanerFinish(d.Staff, d.Tasks, d.TimeLogs, d.Broadcaster)).Methods("POST")

	// Serve static frontend files
	if d.StaticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))
	}

	return r
}
