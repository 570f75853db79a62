package sync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ExpandRunner runs one series expansion pass. Satisfied by
// series.Expander.
type ExpandRunner interface {
	ExpandAll(ctx context.Context) (int, error)
}

// Scheduler drives the periodic background passes: booking refresh every
// few minutes, series expansion once a day plus once at startup.
type Scheduler struct {
	cron        *cron.Cron
	service     *Service
	expander    ExpandRunner
	log         *zap.Logger
	refreshSpec string
}

// NewScheduler creates a scheduler for the given passes.
func NewScheduler(service *Service, expander ExpandRunner, log *zap.Logger, refreshIntervalMin int) *Scheduler {
	if refreshIntervalMin <= 0 {
		refreshIntervalMin = 15
	}
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		service:     service,
		expander:    expander,
		log:         log,
		refreshSpec: "@every " + (time.Duration(refreshIntervalMin) * time.Minute).String(),
	}
}

// Start registers the jobs, runs both passes once immediately in the
// background, and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.refreshSpec, s.runRefresh); err != nil {
		return err
	}
	// Expansion is cheap and idempotent; a nightly run keeps the horizon
	// rolling even when no one touches the series.
	if _, err := s.cron.AddFunc("0 15 3 * * *", s.runExpansion); err != nil {
		return err
	}

	go func() {
		s.runExpansion()
		s.runRefresh()
	}()

	s.cron.Start()
	s.log.Info("scheduler started", zap.String("refresh_interval", s.refreshSpec))
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runRefresh() {
	defer s.recoverPass("refresh")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.service.Refresh(ctx); err != nil {
		s.log.Error("booking refresh failed", zap.Error(err))
	}
}

func (s *Scheduler) runExpansion() {
	defer s.recoverPass("expansion")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := s.expander.ExpandAll(ctx); err != nil {
		s.log.Error("series expansion failed", zap.Error(err))
	}
}

// recoverPass keeps a panicking pass from taking down the process; the
// next scheduled run starts fresh.
func (s *Scheduler) recoverPass(name string) {
	if r := recover(); r != nil {
		s.log.Error("background pass panicked",
			zap.String("pass", name),
			zap.Any("panic", r))
	}
}
