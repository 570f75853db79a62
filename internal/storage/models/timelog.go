package models

import "time"

// TimeLog records one span of staff work against a task. EndTime is nil
// while the span is still running; a staff member has at most one open
// span per task.
type TimeLog struct {
	ID        int64      `json:"id"`
	TaskID    int64      `json:"task_id"`
	StaffID   int64      `json:"staff_id"`
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// Duration returns the logged span, or the span so far for an open log.
func (l *TimeLog) Duration(now time.Time) time.Duration {
	end := now
	if l.EndTime != nil {
		end = *l.EndTime
	}
	return end.Sub(l.StartTime)
}
