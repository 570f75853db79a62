package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/series"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
	"github.com/turnover-planner/backend/internal/websocket"
)

type testEnv struct {
	server *httptest.Server
	staff  *storage.StaffRepository
	tasks  *storage.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := storage.NewDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, zap.NewNop()))

	log := zap.NewNop()
	hub := websocket.NewHub(log)
	go hub.Run()

	tasks := storage.NewTaskRepository(db)
	seriesRepo := storage.NewSeriesRepository(db)
	apartments := storage.NewApartmentRepository(db)
	staff := storage.NewStaffRepository(db)

	router := NewRouter(Deps{
		DB:          db,
		Hub:         hub,
		Broadcaster: websocket.NewEventBroadcaster(hub, log),
		Tasks:       tasks,
		Series:      seriesRepo,
		Apartments:  apartments,
		Staff:       staff,
		Bookings:    storage.NewBookingRepository(db),
		TimeLogs:    storage.NewTimeLogRepository(db),
		Expander: series.NewExpander(tasks, seriesRepo, apartments, nil, log,
			30, series.DefaultPlannedMinutes),
		Log:                   log,
		DefaultPlannedMinutes: 90,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, staff: staff, tasks: tasks}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestTaskLifecycleThroughCleanerFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staff := &models.Staff{Name: "Mira"}
	require.NoError(t, env.staff.Create(ctx, staff))

	// Planner creates and assigns a manual task.
	resp := env.do(t, "POST", "/api/tasks", map[string]any{
		"date":              "2030-06-01",
		"assigned_staff_id": staff.ID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	task := decode[models.Task](t, resp)
	require.Equal(t, 90, task.PlannedMinutes)
	require.Equal(t, models.AssignmentPending, *task.AssignmentStatus)

	resp = env.do(t, "PATCH", fmt.Sprintf("/api/tasks/%d", task.ID), map[string]any{
		"notes": "second floor first",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	task = decode[models.Task](t, resp)
	require.Equal(t, "second floor first", *task.Notes)

	// The cleaner sees it on their board and works it.
	base := "/api/cleaner/" + staff.MagicToken
	resp = env.do(t, "GET", base+"/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[map[string]json.RawMessage](t, resp)
	var boardTasks []models.Task
	require.NoError(t, json.Unmarshal(board["tasks"], &boardTasks))
	require.Len(t, boardTasks, 1)

	for _, step := range []string{"accept", "start", "done"} {
		resp = env.do(t, "POST", fmt.Sprintf("%s/tasks/%d/%s", base, task.ID, step), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}

	got, err := env.tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.TaskStatusDone, got.Status)
	require.Equal(t, models.AssignmentAccepted, *got.AssignmentStatus)

	resp = env.do(t, "GET", fmt.Sprintf("/api/tasks/%d/timelogs", task.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := decode[[]models.TimeLog](t, resp)
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].EndTime)
}

func TestCleanerUnknownTokenIsRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "GET", "/api/cleaner/no-such-token/tasks", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSeriesCreateExpandsAndCascadeDeletes(t *testing.T) {
	env := newTestEnv(t)

	start := time.Now().UTC().Format(models.DateLayout)
	resp := env.do(t, "POST", "/api/series", map[string]any{
		"title":      "Stairwell cleaning",
		"start_date": start,
		"frequency":  "weekly",
		"interval":   1,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.TaskSeries](t, resp)

	// Weekly occurrences inside the 30 day horizon, start day included.
	n, err := env.tasks.CountForSeries(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, 5, n)

	// A manual expansion pass right after is a no-op.
	resp = env.do(t, "POST", "/api/sync/expand", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Zero(t, decode[map[string]int](t, resp)["tasks_created"])

	resp = env.do(t, "DELETE", fmt.Sprintf("/api/series/%d?cascade=future", created.ID), nil)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	n, err = env.tasks.CountForSeries(context.Background(), created.ID)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestManualTaskRejectsBadDate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, "POST", "/api/tasks", map[string]any{"date": "06/01/2030"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
