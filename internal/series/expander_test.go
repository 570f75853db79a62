package series

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

func strp(s string) *string { return &s }
func intp(n int) *int       { return &n }
func i64p(n int64) *int64   { return &n }

func weeklySeries() *models.TaskSeries {
	return &models.TaskSeries{
		Title:     "Stairwell cleaning",
		StartDate: "2024-01-01", // a Monday
		Frequency: models.FrequencyWeekly,
		Interval:  1,
		Active:    true,
	}
}

func TestWeeklyOccurrences(t *testing.T) {
	s := weeklySeries()

	dates := Occurrences(s, "2024-01-01", "2024-01-28", -1)
	require.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22"}, dates)
}

func TestWeeklyOccurrencesEveryOtherWeek(t *testing.T) {
	s := weeklySeries()
	s.Interval = 2

	dates := Occurrences(s, "2024-01-01", "2024-02-04", -1)
	require.Equal(t, []string{"2024-01-01", "2024-01-15", "2024-01-29"}, dates)
}

func TestWeeklyOccurrencesWeekdaySet(t *testing.T) {
	s := weeklySeries()
	s.ByWeekday = strp("mo,fr")

	dates := Occurrences(s, "2024-01-01", "2024-01-14", -1)
	require.Equal(t, []string{"2024-01-01", "2024-01-05", "2024-01-08", "2024-01-12"}, dates)
}

func TestWeeklyDefaultsToStartWeekday(t *testing.T) {
	s := weeklySeries()
	s.StartDate = "2024-01-03" // a Wednesday

	dates := Occurrences(s, "2024-01-03", "2024-01-17", -1)
	require.Equal(t, []string{"2024-01-03", "2024-01-10", "2024-01-17"}, dates)
}

func TestMonthlyClampsToMonthEnd(t *testing.T) {
	s := &models.TaskSeries{
		StartDate: "2024-01-31",
		Frequency: models.FrequencyMonthly,
		Interval:  1,
		Active:    true,
	}

	dates := Occurrences(s, "2024-01-01", "2024-04-30", -1)
	require.Equal(t, []string{"2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30"}, dates)
}

func TestMonthlyMonthdaySet(t *testing.T) {
	s := &models.TaskSeries{
		StartDate:  "2024-01-01",
		Frequency:  models.FrequencyMonthly,
		Interval:   1,
		ByMonthday: strp("1,15"),
		Active:     true,
	}

	dates := Occurrences(s, "2024-01-01", "2024-02-29", -1)
	require.Equal(t, []string{"2024-01-01", "2024-01-15", "2024-02-01", "2024-02-15"}, dates)
}

func TestMonthlyStepsFromStartWithoutDrift(t *testing.T) {
	// Every 2 months from Jan 31: March, not "Feb 29 plus 2 months".
	s := &models.TaskSeries{
		StartDate: "2024-01-31",
		Frequency: models.FrequencyMonthly,
		Interval:  2,
		Active:    true,
	}

	dates := Occurrences(s, "2024-01-01", "2024-05-31", -1)
	require.Equal(t, []string{"2024-01-31", "2024-03-31", "2024-05-31"}, dates)
}

func TestYearlyLeapDayClamps(t *testing.T) {
	s := &models.TaskSeries{
		StartDate: "2024-02-29",
		Frequency: models.FrequencyYearly,
		Interval:  1,
		Active:    true,
	}

	dates := Occurrences(s, "2024-01-01", "2026-12-31", -1)
	require.Equal(t, []string{"2024-02-29", "2025-02-28", "2026-02-28"}, dates)
}

func TestOtherFrequencyIsSingleShot(t *testing.T) {
	s := &models.TaskSeries{
		StartDate: "2024-03-15",
		Frequency: "fortnightly-ish",
		Active:    true,
	}

	require.Equal(t, []string{"2024-03-15"}, Occurrences(s, "2024-01-01", "2024-12-31", -1))
	require.Empty(t, Occurrences(s, "2024-03-16", "2024-12-31", -1))
}

func TestOccurrencesRespectsEndDateAndLimit(t *testing.T) {
	s := weeklySeries()
	s.EndDate = strp("2024-01-15")

	require.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15"},
		Occurrences(s, "2024-01-01", "2024-06-30", -1))
	require.Equal(t, []string{"2024-01-01", "2024-01-08"},
		Occurrences(s, "2024-01-01", "2024-06-30", 2))
}

func TestOccurrencesUnparseableStart(t *testing.T) {
	s := weeklySeries()
	s.StartDate = "not-a-date"
	require.Empty(t, Occurrences(s, "2024-01-01", "2024-12-31", -1))
}

// Expander tests against a real database.

type fixture struct {
	db       *storage.DB
	expander *Expander
	tasks    *storage.TaskRepository
	series   *storage.SeriesRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.NewDB(t.TempDir() + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.RunMigrations(db, zap.NewNop()))

	tasks := storage.NewTaskRepository(db)
	seriesRepo := storage.NewSeriesRepository(db)
	apartments := storage.NewApartmentRepository(db)
	return &fixture{
		db:       db,
		expander: NewExpander(tasks, seriesRepo, apartments, nil, zap.NewNop(), 30, DefaultPlannedMinutes),
		tasks:    tasks,
		series:   seriesRepo,
	}
}

func TestExpandSeriesCreatesTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := weeklySeries()
	s.PlannedMinutes = intp(30)
	require.NoError(t, f.series.Create(ctx, s))

	created, err := f.expander.ExpandSeries(ctx, s, "2024-01-28")
	require.NoError(t, err)
	require.Equal(t, 4, created)

	list, err := f.tasks.List(ctx, storage.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, list, 4)
	for _, task := range list {
		require.True(t, task.IsRecurring)
		require.False(t, task.AutoGenerated)
		require.Equal(t, 30, task.PlannedMinutes)
		require.EqualValues(t, s.ID, *task.SeriesID)
		require.Nil(t, task.AssignmentStatus)
	}
}

func TestExpandSeriesWatermarkAvoidsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := weeklySeries()
	require.NoError(t, f.series.Create(ctx, s))

	created, err := f.expander.ExpandSeries(ctx, s, "2024-01-15")
	require.NoError(t, err)
	require.Equal(t, 3, created)

	// Second pass with a wider horizon only adds the new occurrences.
	created, err = f.expander.ExpandSeries(ctx, s, "2024-01-29")
	require.NoError(t, err)
	require.Equal(t, 2, created)

	n, err := f.tasks.CountForSeries(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, 5, n)
}

func TestExpandSeriesCountCapSpansPasses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := weeklySeries()
	s.Count = intp(3)
	require.NoError(t, f.series.Create(ctx, s))

	created, err := f.expander.ExpandSeries(ctx, s, "2024-01-08")
	require.NoError(t, err)
	require.Equal(t, 2, created)

	// Only one slot left in the lifetime budget.
	created, err = f.expander.ExpandSeries(ctx, s, "2024-03-01")
	require.NoError(t, err)
	require.Equal(t, 1, created)

	created, err = f.expander.ExpandSeries(ctx, s, "2024-06-01")
	require.NoError(t, err)
	require.Zero(t, created)
}

func TestExpandSeriesAssignsStaffPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	staffRepo := storage.NewStaffRepository(f.db)
	staff := &models.Staff{Name: "Mira"}
	require.NoError(t, staffRepo.Create(ctx, staff))

	s := weeklySeries()
	s.StaffID = i64p(staff.ID)
	require.NoError(t, f.series.Create(ctx, s))

	created, err := f.expander.ExpandSeries(ctx, s, "2024-01-08")
	require.NoError(t, err)
	require.Equal(t, 2, created)

	list, err := f.tasks.List(ctx, storage.TaskFilter{StaffID: staff.ID})
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, task := range list {
		require.Equal(t, models.AssignmentPending, *task.AssignmentStatus)
		require.Equal(t, DefaultPlannedMinutes, task.PlannedMinutes)
	}
}

func TestExpandSeriesInactiveIsSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := weeklySeries()
	s.Active = false
	require.NoError(t, f.series.Create(ctx, s))

	created, err := f.expander.ExpandSeries(ctx, s, "2024-06-01")
	require.NoError(t, err)
	require.Zero(t, created)
}
