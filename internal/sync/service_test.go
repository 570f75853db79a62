package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/pms"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

type stubFetcher struct {
	raws []pms.Raw
	err  error
}

func (f *stubFetcher) FetchReservations(ctx context.Context, from, to string) ([]pms.Raw, error) {
	return f.raws, f.err
}

func newTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.NewDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, zap.NewNop()))
	return db
}

func newTestService(t *testing.T, db *storage.DB, raws []pms.Raw) *Service {
	t.Helper()
	return NewService(db, &stubFetcher{raws: raws}, nil, zap.NewNop(), 60, 90)
}

func rawBooking(id int64, arrival, departure string) pms.Raw {
	return pms.Raw{
		"id":        float64(id),
		"arrival":   arrival,
		"departure": departure,
		"status":    "confirmed",
		"apartment": map[string]any{"id": float64(5), "name": "Loft 1"},
		"guest":     map[string]any{"fullName": "Test Guest"},
	}
}

func TestRefreshCreatesTasks(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, []pms.Raw{
		rawBooking(1, "2030-06-01", "2030-06-05"),
		rawBooking(2, "2030-06-05", "2030-06-09"),
	})

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.Fetched)
	require.Equal(t, 2, result.Accepted)
	require.Equal(t, 2, result.TasksCreated)
	require.Equal(t, 0, result.TasksDeleted)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(context.Background(), storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	first := list[0]
	require.Equal(t, "2030-06-05", first.Date)
	require.EqualValues(t, 1, *first.BookingID)
	require.True(t, first.AutoGenerated)
	require.Equal(t, models.TaskStatusOpen, first.Status)
	require.Equal(t, 90, first.PlannedMinutes)
	// Same-day turnover lookahead on the earlier task.
	require.NotNil(t, first.NextArrival)
	require.Equal(t, "2030-06-05", *first.NextArrival)

	require.Nil(t, list[1].NextArrival)
}

func TestRefreshIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, []pms.Raw{rawBooking(1, "2030-06-01", "2030-06-05")})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	// Pin the timestamp so a rewriting pass is detectable regardless of
	// how fast the two passes run.
	marker := "2001-01-01 00:00:00"
	_, err = db.ExecContext(context.Background(),
		"UPDATE tasks SET updated_at = ?", marker)
	require.NoError(t, err)

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.TasksCreated)
	require.Equal(t, 0, result.TasksUpdated)
	require.Equal(t, 0, result.TasksDeleted)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(context.Background(), storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	var updatedAt string
	require.NoError(t, db.QueryRowContext(context.Background(),
		"SELECT updated_at FROM tasks WHERE id = ?", list[0].ID).Scan(&updatedAt))
	require.Equal(t, marker, updatedAt)
}

func TestReconcileRegistersUnknownApartment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db, nil)

	// Direct reconciliation with an apartment the cache has never seen.
	booking := &models.Booking{
		ID: 1, ApartmentID: i64(7), ApartmentName: "Attic 3",
		Arrival: "2030-06-01", Departure: "2030-06-05",
	}
	result, err := svc.Reconcile(ctx, []*models.Booking{booking})
	require.NoError(t, err)
	require.Equal(t, 1, result.TasksCreated)

	apartments := storage.NewApartmentRepository(db)
	apt, err := apartments.GetByID(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, apt)
	require.Equal(t, "Attic 3", apt.Name)
}

func TestRefreshRemovesVanishedBookings(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, []pms.Raw{rawBooking(1, "2030-06-01", "2030-06-05")})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	// The reservation drops out of the feed without ever being rejected.
	svc = newTestService(t, db, nil)
	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.TasksDeleted)

	bookings := storage.NewBookingRepository(db)
	n, err := bookings.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestReconcilePreservesHumanEdits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db, nil)

	booking := &models.Booking{
		ID: 1, ApartmentID: i64(5), Arrival: "2030-06-01", Departure: "2030-06-05",
	}
	_, err := svc.Reconcile(ctx, []*models.Booking{booking})
	require.NoError(t, err)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	task := &list[0]

	notes := "bring spare keys"
	task.Notes = &notes
	task.PlannedMinutes = 120
	staffStatus := models.AssignmentPending
	task.AssignmentStatus = &staffStatus
	require.NoError(t, tasks.Update(ctx, task))

	// Departure moves: scheduling fields follow, human edits stay.
	booking.Departure = "2030-06-06"
	result, err := svc.Reconcile(ctx, []*models.Booking{booking})
	require.NoError(t, err)
	require.Equal(t, 1, result.TasksUpdated)
	require.Equal(t, 0, result.TasksCreated)

	got, err := tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, "2030-06-06", got.Date)
	require.Equal(t, "bring spare keys", *got.Notes)
	require.Equal(t, 120, got.PlannedMinutes)
	require.Equal(t, models.AssignmentPending, *got.AssignmentStatus)
}

func TestReconcileDeletesStaleTasksEvenLocked(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db, nil)

	booking := &models.Booking{ID: 1, ApartmentID: i64(5), Arrival: "2030-06-01", Departure: "2030-06-05"}
	_, err := svc.Reconcile(ctx, []*models.Booking{booking})
	require.NoError(t, err)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	list[0].Locked = true
	require.NoError(t, tasks.Update(ctx, &list[0]))

	result, err := svc.Reconcile(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, result.TasksDeleted)

	list, err = tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestReconcileHygieneRemovesMalformedDates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db, nil)

	tasks := storage.NewTaskRepository(db)
	require.NoError(t, tasks.Create(ctx, &models.Task{Date: "2005-01-01", PlannedMinutes: 60}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Date: "garbage-date", PlannedMinutes: 60}))
	require.NoError(t, tasks.Create(ctx, &models.Task{Date: "2030-06-01", PlannedMinutes: 60}))

	result, err := svc.Reconcile(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 2, result.HygieneRemoved)

	list, err := tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "2030-06-01", list[0].Date)
}

func TestRefreshPurgesRejectedBookings(t *testing.T) {
	db := newTestDB(t)
	svc := newTestService(t, db, []pms.Raw{rawBooking(1, "2030-06-01", "2030-06-05")})

	_, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	cancelled := rawBooking(1, "2030-06-01", "2030-06-05")
	cancelled["status"] = "cancelled"
	svc = newTestService(t, db, []pms.Raw{cancelled})

	result, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Rejected)
	require.Equal(t, 0, result.Accepted)

	bookings := storage.NewBookingRepository(db)
	n, err := bookings.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(context.Background(), storage.TaskFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestReconcileUsesApartmentOverride(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	svc := newTestService(t, db, nil)

	_, err := db.ExecContext(ctx,
		"INSERT INTO apartments (id, name, planned_minutes) VALUES (5, 'Loft 1', 45)")
	require.NoError(t, err)

	booking := &models.Booking{ID: 1, ApartmentID: i64(5), Arrival: "2030-06-01", Departure: "2030-06-05"}
	_, err = svc.Reconcile(ctx, []*models.Booking{booking})
	require.NoError(t, err)

	tasks := storage.NewTaskRepository(db)
	list, err := tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Equal(t, 45, list[0].PlannedMinutes)
}
