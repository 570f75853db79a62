// Package series expands recurring task templates into concrete tasks on
// the board. Expansion is incremental: each pass picks up after the
// latest task a series already has and materializes occurrences up to a
// rolling horizon.
package series

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// ErrNotFound is returned by ExpandOne for an unknown series id.
var ErrNotFound = errors.New("series not found")

// DefaultPlannedMinutes is the effort assumed for recurring chores when
// neither the series nor its apartment carries an override. Recurring
// work tends to be lighter than a full checkout cleaning.
const DefaultPlannedMinutes = 60

// Notifier is told about newly materialized tasks so connected clients
// can refresh. A nil Notifier is valid and drops everything.
type Notifier interface {
	SeriesExpanded(created, pendingAssignments int)
}

// Expander materializes occurrences of active series into tasks.
type Expander struct {
	tasks          *storage.TaskRepository
	series         *storage.SeriesRepository
	apartments     *storage.ApartmentRepository
	notifier       Notifier
	log            *zap.Logger
	horizonDays    int
	defaultMinutes int
}

// NewExpander creates an expander. notifier may be nil.
func NewExpander(tasks *storage.TaskRepository, series *storage.SeriesRepository, apartments *storage.ApartmentRepository, notifier Notifier, log *zap.Logger, horizonDays, defaultMinutes int) *Expander {
	return &Expander{
		tasks:          tasks,
		series:         series,
		apartments:     apartments,
		notifier:       notifier,
		log:            log,
		horizonDays:    horizonDays,
		defaultMinutes: defaultMinutes,
	}
}

// ExpandAll runs one expansion pass over every active series. A failing
// series is logged and skipped so one broken template cannot starve the
// rest.
func (e *Expander) ExpandAll(ctx context.Context) (int, error) {
	active, err := e.series.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active series: %w", err)
	}

	until := time.Now().UTC().AddDate(0, 0, e.horizonDays).Format(models.DateLayout)

	var created, pending int
	for i := range active {
		s := &active[i]
		n, err := e.ExpandSeries(ctx, s, until)
		if err != nil {
			e.log.Error("series expansion failed",
				zap.Int64("series_id", s.ID),
				zap.String("title", s.Title),
				zap.Error(err))
			continue
		}
		created += n
		if s.StaffID != nil {
			pending += n
		}
	}

	if created > 0 {
		e.log.Info("series expansion completed",
			zap.Int("series", len(active)),
			zap.Int("tasks_created", created))
		if e.notifier != nil {
			e.notifier.SeriesExpanded(created, pending)
		}
	}
	return created, nil
}

// ExpandOne runs an expansion pass for a single series up to the
// standard horizon. Used by the API to materialize a series on demand.
func (e *Expander) ExpandOne(ctx context.Context, seriesID int64) (int, error) {
	s, err := e.series.GetByID(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	if s == nil {
		return 0, ErrNotFound
	}

	until := time.Now().UTC().AddDate(0, 0, e.horizonDays).Format(models.DateLayout)
	created, err := e.ExpandSeries(ctx, s, until)
	if err != nil {
		return 0, err
	}
	if created > 0 && e.notifier != nil {
		pending := 0
		if s.StaffID != nil {
			pending = created
		}
		e.notifier.SeriesExpanded(created, pending)
	}
	return created, nil
}

// ExpandSeries materializes the series' missing occurrences up to the
// given date (inclusive). The count cap applies to tasks ever generated
// for the series, not per pass.
func (e *Expander) ExpandSeries(ctx context.Context, s *models.TaskSeries, until string) (int, error) {
	if !s.Active {
		return 0, nil
	}

	budget := -1
	if s.Count != nil {
		generated, err := e.tasks.CountForSeries(ctx, s.ID)
		if err != nil {
			return 0, fmt.Errorf("counting series tasks: %w", err)
		}
		budget = *s.Count - generated
		if budget <= 0 {
			return 0, nil
		}
	}

	// Watermark: resume the day after the latest task this series has.
	from := s.StartDate
	last, err := e.tasks.LastSeriesDate(ctx, s.ID)
	if err != nil {
		return 0, fmt.Errorf("reading series watermark: %w", err)
	}
	if last != "" {
		from = dayAfter(last)
	}

	dates := Occurrences(s, from, until, budget)
	if len(dates) == 0 {
		return 0, nil
	}

	minutes := e.defaultMinutes
	if s.PlannedMinutes != nil {
		minutes = *s.PlannedMinutes
	} else {
		minutes = e.apartments.PlannedMinutesFor(ctx, s.ApartmentID, e.defaultMinutes)
	}

	created := 0
	for _, date := range dates {
		exists, err := e.tasks.ExistsForSeriesDate(ctx, s.ID, date)
		if err != nil {
			return created, fmt.Errorf("checking occurrence %s: %w", date, err)
		}
		if exists {
			continue
		}

		t := &models.Task{
			Date:            date,
			StartTime:       s.StartTime,
			PlannedMinutes:  minutes,
			ApartmentID:     s.ApartmentID,
			SeriesID:        &s.ID,
			AssignedStaffID: s.StaffID,
			Status:          models.TaskStatusOpen,
			IsRecurring:     true,
		}
		if s.StaffID != nil {
			status := models.AssignmentPending
			t.AssignmentStatus = &status
		}
		if err := e.tasks.Create(ctx, t); err != nil {
			return created, fmt.Errorf("creating occurrence %s: %w", date, err)
		}
		created++
	}
	return created, nil
}

// Occurrences computes the series' occurrence dates within [startFrom,
// until], both inclusive, capped by the series end date. limit bounds how
// many dates are returned; negative means unbounded. An unparseable
// start date yields no occurrences.
func Occurrences(s *models.TaskSeries, startFrom, until string, limit int) []string {
	start, err := time.Parse(models.DateLayout, s.StartDate)
	if err != nil {
		return nil
	}

	lo := startFrom
	if s.StartDate > lo {
		lo = s.StartDate
	}
	hi := until
	if s.EndDate != nil && *s.EndDate < hi {
		hi = *s.EndDate
	}
	if hi < lo || limit == 0 {
		return nil
	}

	var dates []string
	switch s.Frequency {
	case models.FrequencyWeekly:
		dates = weeklyOccurrences(s, start, lo, hi)
	case models.FrequencyMonthly:
		dates = monthlyOccurrences(s, start, lo, hi)
	case models.FrequencyYearly:
		dates = yearlyOccurrences(s, start, lo, hi)
	default:
		// Single-shot: the start date itself, if it is in the window.
		if s.StartDate >= lo && s.StartDate <= hi {
			dates = []string{s.StartDate}
		}
	}

	if limit > 0 && len(dates) > limit {
		dates = dates[:limit]
	}
	return dates
}

// weeklyOccurrences walks the window day by day, emitting dates whose
// Monday-based week index relative to the start week is a multiple of
// the interval and whose weekday is in the configured set.
func weeklyOccurrences(s *models.TaskSeries, start time.Time, lo, hi string) []string {
	days := s.Weekdays()
	if len(days) == 0 {
		days = []int{mondayIndex(start.Weekday())}
	}
	wanted := make(map[int]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}

	interval := s.EffectiveInterval()
	weekStart := start.AddDate(0, 0, -mondayIndex(start.Weekday()))

	from, err := time.Parse(models.DateLayout, lo)
	if err != nil {
		return nil
	}

	var dates []string
	for d := from; ; d = d.AddDate(0, 0, 1) {
		ds := d.Format(models.DateLayout)
		if ds > hi {
			break
		}
		weeks := int(d.Sub(weekStart).Hours()) / 24 / 7
		if weeks%interval == 0 && wanted[mondayIndex(d.Weekday())] {
			dates = append(dates, ds)
		}
	}
	return dates
}

// monthlyOccurrences steps whole months from the start date, so a series
// anchored on the 31st stays anchored on the 31st and only clamps in
// shorter months instead of drifting.
func monthlyOccurrences(s *models.TaskSeries, start time.Time, lo, hi string) []string {
	days := s.Monthdays()
	if len(days) == 0 {
		days = []int{start.Day()}
	}
	wanted := make(map[int]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}

	interval := s.EffectiveInterval()

	var dates []string
	for n := 0; ; n++ {
		year, month := addMonths(start.Year(), start.Month(), n*interval)
		first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if first.Format(models.DateLayout) > hi {
			break
		}
		lastDay := daysInMonth(year, month)
		for day := 1; day <= lastDay; day++ {
			if !wanted[day] && !(day == lastDay && anyAbove(days, lastDay)) {
				continue
			}
			ds := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
			if ds >= lo && ds <= hi {
				dates = append(dates, ds)
			}
		}
	}
	return dates
}

func yearlyOccurrences(s *models.TaskSeries, start time.Time, lo, hi string) []string {
	interval := s.EffectiveInterval()

	var dates []string
	for n := 0; ; n++ {
		year := start.Year() + n*interval
		day := start.Day()
		if last := daysInMonth(year, start.Month()); day > last {
			day = last
		}
		ds := time.Date(year, start.Month(), day, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
		if ds > hi {
			break
		}
		if ds >= lo {
			dates = append(dates, ds)
		}
	}
	return dates
}

// mondayIndex converts Go's Sunday-based weekday to Monday=0.
func mondayIndex(w time.Weekday) int {
	return (int(w) + 6) % 7
}

func addMonths(year int, month time.Month, n int) (int, time.Month) {
	m := int(month) - 1 + n
	return year + m/12, time.Month(m%12 + 1)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// anyAbove reports whether the monthday set asks for a day past the end
// of this month, which clamps to the month's last day.
func anyAbove(days []int, lastDay int) bool {
	for _, d := range days {
		if d > lastDay {
			return true
		}
	}
	return false
}

func dayAfter(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(models.DateLayout)
}
