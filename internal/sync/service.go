// Package sync reconciles the PMS booking calendar with the local task
// board. Every accepted reservation owns exactly one auto-generated
// cleaning task on its departure date; the reconciler keeps the task's
// scheduling fields current and never touches what humans edited.
package sync

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/pms"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/storage/models"
)

// Fetcher pulls raw reservation records from the PMS.
type Fetcher interface {
	FetchReservations(ctx context.Context, from, to string) ([]pms.Raw, error)
}

// Broadcaster pushes sync outcomes to connected clients. A nil
// Broadcaster is valid and drops everything.
type Broadcaster interface {
	SyncCompleted(result *Result)
	SyncError(err error)
}

// Result summarizes a refresh pass.
type Result struct {
	Fetched        int       `json:"fetched"`
	Accepted       int       `json:"accepted"`
	Rejected       int       `json:"rejected"`
	TasksCreated   int       `json:"tasks_created"`
	TasksUpdated   int       `json:"tasks_updated"`
	TasksDeleted   int       `json:"tasks_deleted"`
	HygieneRemoved int       `json:"hygiene_removed"`
	SyncedAt       time.Time `json:"synced_at"`
}

// Service runs the booking refresh and task reconciliation passes.
type Service struct {
	db             *storage.DB
	fetcher        Fetcher
	broadcaster    Broadcaster
	log            *zap.Logger
	windowDays     int
	defaultMinutes int
}

// NewService creates a sync service. broadcaster may be nil.
func NewService(db *storage.DB, fetcher Fetcher, broadcaster Broadcaster, log *zap.Logger, windowDays, defaultMinutes int) *Service {
	return &Service{
		db:             db,
		fetcher:        fetcher,
		broadcaster:    broadcaster,
		log:            log,
		windowDays:     windowDays,
		defaultMinutes: defaultMinutes,
	}
}

// Refresh fetches the booking window from the PMS, updates the local
// booking cache and reconciles the task board. The booking cache and the
// task board are each written in a single transaction so a failed pass
// leaves both untouched.
func (s *Service) Refresh(ctx context.Context) (*Result, error) {
	now := time.Now().UTC()
	from := now.Format(models.DateLayout)
	to := now.AddDate(0, 0, s.windowDays).Format(models.DateLayout)

	raws, err := s.fetcher.FetchReservations(ctx, from, to)
	if err != nil {
		if s.broadcaster != nil {
			s.broadcaster.SyncError(err)
		}
		return nil, fmt.Errorf("fetching reservations: %w", err)
	}

	accepted := make([]*models.Booking, 0, len(raws))
	var rejectedIDs []int64
	for _, raw := range raws {
		b, reason := pms.Normalize(raw)
		if reason == "" {
			accepted = append(accepted, b)
			continue
		}
		if id, ok := pms.ReservationID(raw); ok {
			rejectedIDs = append(rejectedIDs, id)
			s.log.Debug("rejected reservation",
				zap.Int64("reservation_id", id),
				zap.String("reason", reason))
		}
	}

	cascadeDeleted := 0
	err = s.db.Transaction(func(tx *sql.Tx) error {
		for _, id := range rejectedIDs {
			taskGone, err := deleteBookingCascade(ctx, tx, id)
			if err != nil {
				return err
			}
			if taskGone {
				cascadeDeleted++
			}
		}
		seen := make(map[int64]bool, len(accepted))
		for _, b := range accepted {
			seen[b.ID] = true
			if b.ApartmentID != nil {
				if err := upsertApartment(ctx, tx, *b.ApartmentID, b.ApartmentName); err != nil {
					return err
				}
			}
			if err := upsertBooking(ctx, tx, b); err != nil {
				return err
			}
		}
		// A booking missing from the refreshed window is as gone as a
		// rejected one; only its past stays cached.
		n, err := deleteVanishedBookings(ctx, tx, seen, from)
		if err != nil {
			return err
		}
		cascadeDeleted += n
		return nil
	})
	if err != nil {
		if s.broadcaster != nil {
			s.broadcaster.SyncError(err)
		}
		return nil, fmt.Errorf("storing bookings: %w", err)
	}

	result, err := s.Reconcile(ctx, accepted)
	if err != nil {
		if s.broadcaster != nil {
			s.broadcaster.SyncError(err)
		}
		return nil, err
	}

	result.Fetched = len(raws)
	result.Accepted = len(accepted)
	result.Rejected = len(raws) - len(accepted)
	result.TasksDeleted += cascadeDeleted
	result.SyncedAt = now

	s.log.Info("booking refresh completed",
		zap.Int("fetched", result.Fetched),
		zap.Int("accepted", result.Accepted),
		zap.Int("tasks_created", result.TasksCreated),
		zap.Int("tasks_updated", result.TasksUpdated),
		zap.Int("tasks_deleted", result.TasksDeleted))

	if s.broadcaster != nil {
		s.broadcaster.SyncCompleted(result)
	}
	return result, nil
}

// Reconcile brings the task board in line with the given accepted
// bookings. All task writes happen in one transaction.
//
// Upserts rewrite only the scheduling fields (date, apartment,
// booking hash and the next-arrival cache). Stale auto-generated tasks
// whose booking disappeared are deleted even when locked or already
// started: a vanished booking means there is nothing left to clean for.
func (s *Service) Reconcile(ctx context.Context, bookings []*models.Booking) (*Result, error) {
	next := indexNextArrivals(bookings)
	today := time.Now().UTC().Format(models.DateLayout)
	result := &Result{SyncedAt: time.Now().UTC()}

	err := s.db.Transaction(func(tx *sql.Tx) error {
		existing, err := loadBookingTasks(ctx, tx)
		if err != nil {
			return err
		}

		seen := make(map[int64]bool, len(bookings))
		for _, b := range bookings {
			seen[b.ID] = true
			hash := bookingHash(b)

			// Direct callers may hand over bookings whose apartment the
			// cache has never seen; register it before the task rows
			// reference it.
			if b.ApartmentID != nil {
				if err := upsertApartment(ctx, tx, *b.ApartmentID, b.ApartmentName); err != nil {
					return err
				}
			}

			if row, ok := existing[b.ID]; ok {
				if row.unchanged(b, hash, next[b.ID]) {
					continue
				}
				if err := updateBookingTask(ctx, tx, row.taskID, b, hash, next[b.ID]); err != nil {
					return err
				}
				result.TasksUpdated++
				continue
			}

			minutes, err := plannedMinutesFor(ctx, tx, b.ApartmentID, s.defaultMinutes)
			if err != nil {
				return err
			}
			if err := insertBookingTask(ctx, tx, b, hash, next[b.ID], minutes); err != nil {
				return err
			}
			result.TasksCreated++
		}

		// Stale pass: future tasks for bookings no longer in the feed.
		for bookingID, row := range existing {
			if seen[bookingID] || row.date < today {
				continue
			}
			if err := deleteTask(ctx, tx, row.taskID); err != nil {
				return err
			}
			result.TasksDeleted++
		}

		removed, err := deleteMalformedTasks(ctx, tx)
		if err != nil {
			return err
		}
		result.HygieneRemoved = removed
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reconciling tasks: %w", err)
	}
	return result, nil
}
