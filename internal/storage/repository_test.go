package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/storage/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, RunMigrations(db, zap.NewNop()))
	return db
}

func TestStaffTokenLookup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewStaffRepository(db)

	s := &models.Staff{Name: "Mira"}
	require.NoError(t, repo.Create(ctx, s))
	require.NotEmpty(t, s.MagicToken)
	require.Equal(t, "de", s.Language)

	got, err := repo.GetByToken(ctx, s.MagicToken)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, s.ID, got.ID)

	// Deactivated staff can no longer use their link.
	s.Active = false
	require.NoError(t, repo.Update(ctx, s))
	got, err = repo.GetByToken(ctx, s.MagicToken)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTimeLogStartIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	staffRepo := NewStaffRepository(db)
	staff := &models.Staff{Name: "Mira"}
	require.NoError(t, staffRepo.Create(ctx, staff))

	taskRepo := NewTaskRepository(db)
	task := &models.Task{Date: "2030-06-01", PlannedMinutes: 60}
	require.NoError(t, taskRepo.Create(ctx, task))

	logs := NewTimeLogRepository(db)
	first, err := logs.Start(ctx, task.ID, staff.ID)
	require.NoError(t, err)

	second, err := logs.Start(ctx, task.ID, staff.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	stopped, err := logs.StopOpen(ctx, task.ID, staff.ID)
	require.NoError(t, err)
	require.True(t, stopped)

	// Nothing open anymore.
	stopped, err = logs.StopOpen(ctx, task.ID, staff.ID)
	require.NoError(t, err)
	require.False(t, stopped)

	entries, err := logs.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].EndTime)
}

func TestSetAssignmentStatusGuardsAssignee(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	staffRepo := NewStaffRepository(db)
	assignee := &models.Staff{Name: "Mira"}
	other := &models.Staff{Name: "Jonas"}
	require.NoError(t, staffRepo.Create(ctx, assignee))
	require.NoError(t, staffRepo.Create(ctx, other))

	taskRepo := NewTaskRepository(db)
	status := models.AssignmentPending
	task := &models.Task{
		Date: "2030-06-01", PlannedMinutes: 60,
		AssignedStaffID: &assignee.ID, AssignmentStatus: &status,
	}
	require.NoError(t, taskRepo.Create(ctx, task))

	require.Error(t, taskRepo.SetAssignmentStatus(ctx, task.ID, other.ID, models.AssignmentAccepted))
	require.NoError(t, taskRepo.SetAssignmentStatus(ctx, task.ID, assignee.ID, models.AssignmentAccepted))

	got, err := taskRepo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.Equal(t, models.AssignmentAccepted, *got.AssignmentStatus)
}

func TestDeleteFutureForSeriesKeepsHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seriesRepo := NewSeriesRepository(db)
	s := &models.TaskSeries{
		Title: "Window cleaning", StartDate: "2030-01-01",
		Frequency: models.FrequencyWeekly, Interval: 1, Active: true,
	}
	require.NoError(t, seriesRepo.Create(ctx, s))

	taskRepo := NewTaskRepository(db)
	for _, date := range []string{"2030-01-01", "2030-01-08", "2030-01-15"} {
		require.NoError(t, taskRepo.Create(ctx, &models.Task{
			Date: date, PlannedMinutes: 60, SeriesID: &s.ID, IsRecurring: true,
		}))
	}

	n, err := taskRepo.DeleteFutureForSeries(ctx, s.ID, "2030-01-08")
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	remaining, err := taskRepo.List(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	require.Equal(t, "2030-01-01", remaining[0].Date)
}
