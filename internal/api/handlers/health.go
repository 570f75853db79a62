// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/websocket"
)

// HealthResponse is the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		if !dbConnected {
			status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse is the system status response.
type StatusResponse struct {
	Bookings         int `json:"bookings"`
	Apartments       int `json:"apartments"`
	OpenTasks        int `json:"open_tasks"`
	ActiveSeries     int `json:"active_series"`
	ActiveStaff      int `json:"active_staff"`
	ConnectedClients int `json:"connected_clients"`
}

// Status returns a handler with board-level counts for the admin UI.
func Status(db *storage.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var resp StatusResponse
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings").Scan(&resp.Bookings)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM apartments").Scan(&resp.Apartments)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks WHERE status = 'open'").Scan(&resp.OpenTasks)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM task_series WHERE active = 1").Scan(&resp.ActiveSeries)
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM staff WHERE active = 1").Scan(&resp.ActiveStaff)
		resp.ConnectedClients = hub.ClientCount()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
