package models

import (
	"strconv"
	"strings"
	"time"
)

// TaskSeries is a template describing a recurring task: how often it is
// due, on which weekdays or month days, and until when.
type TaskSeries struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	Description    *string `json:"description,omitempty"`
	ApartmentID    *int64  `json:"apartment_id,omitempty"`
	StaffID        *int64  `json:"staff_id,omitempty"`
	PlannedMinutes *int    `json:"planned_minutes,omitempty"`
	StartDate      string  `json:"start_date"` // YYYY-MM-DD
	StartTime      *string `json:"start_time,omitempty"`
	Frequency      string  `json:"frequency"` // weekly, monthly, yearly; anything else means single-shot
	Interval       int     `json:"interval"`  // every N periods, minimum 1
	ByWeekday      *string `json:"byweekday,omitempty"`  // CSV of mo,tu,we,th,fr,sa,su
	ByMonthday     *string `json:"bymonthday,omitempty"` // CSV of 1..31
	EndDate        *string `json:"end_date,omitempty"`
	Count          *int    `json:"count,omitempty"` // cap on occurrences ever generated
	Active         bool    `json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Recurrence frequency constants. FrequencyOther is the catch-all for
// unrecognized values and expands to a single occurrence at the start date.
const (
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
	FrequencyYearly  = "yearly"
	FrequencyOther   = "other"
)

// weekdayIndex maps two-letter weekday prefixes to a Monday-based index.
var weekdayIndex = map[string]int{
	"mo": 0, "tu": 1, "we": 2, "th": 3, "fr": 4, "sa": 5, "su": 6,
}

// Weekdays parses the ByWeekday set into Monday-based indexes (0=Monday).
// Unknown entries are dropped; an empty or absent set returns nil.
func (s *TaskSeries) Weekdays() []int {
	if s.ByWeekday == nil {
		return nil
	}
	var out []int
	for _, p := range strings.Split(*s.ByWeekday, ",") {
		p = strings.ToLower(strings.TrimSpace(p))
		if len(p) >= 2 {
			if idx, ok := weekdayIndex[p[:2]]; ok {
				out = append(out, idx)
			}
		}
	}
	return out
}

// Monthdays parses the ByMonthday set into day-of-month numbers 1..31.
// Out-of-range and unparseable entries are dropped.
func (s *TaskSeries) Monthdays() []int {
	if s.ByMonthday == nil {
		return nil
	}
	var out []int
	for _, p := range strings.Split(*s.ByMonthday, ",") {
		md, err := strconv.Atoi(strings.TrimSpace(p))
		if err == nil && md >= 1 && md <= 31 {
			out = append(out, md)
		}
	}
	return out
}

// EffectiveInterval returns the repeat interval, treating zero or negative
// values as 1.
func (s *TaskSeries) EffectiveInterval() int {
	if s.Interval < 1 {
		return 1
	}
	return s.Interval
}
