// Package main is the entry point for the turnover planner server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/turnover-planner/backend/internal/api"
	"github.com/turnover-planner/backend/internal/config"
	"github.com/turnover-planner/backend/internal/logging"
	"github.com/turnover-planner/backend/internal/pms"
	"github.com/turnover-planner/backend/internal/series"
	"github.com/turnover-planner/backend/internal/storage"
	"github.com/turnover-planner/backend/internal/sync"
	"github.com/turnover-planner/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	staticDir := flag.String("static", "./static", "Directory for static frontend files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Addr); err != nil {
			fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	log, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting turnover planner", zap.String("version", version))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal("creating data directory", zap.String("dir", cfg.DataDir), zap.Error(err))
	}
	db, err := storage.NewDB(cfg.DataDir + "/turnover-planner.db")
	if err != nil {
		log.Fatal("opening database", zap.Error(err))
	}
	defer db.Close()

	if err := storage.RunMigrations(db, log); err != nil {
		log.Fatal("running migrations", zap.Error(err))
	}

	hub := websocket.NewHub(log)
	go hub.Run()
	broadcaster := websocket.NewEventBroadcaster(hub, log)

	tasks := storage.NewTaskRepository(db)
	seriesRepo := storage.NewSeriesRepository(db)
	apartments := storage.NewApartmentRepository(db)
	staff := storage.NewStaffRepository(db)
	bookings := storage.NewBookingRepository(db)
	timeLogs := storage.NewTimeLogRepository(db)

	client := pms.NewClient(cfg.PMS.BaseURL, cfg.PMS.APIKey, cfg.PMS.Timeout)
	syncService := sync.NewService(db, client, broadcaster, log,
		cfg.Sync.BookingWindowDays, cfg.Sync.DefaultPlannedMinutes)
	expander := series.NewExpander(tasks, seriesRepo, apartments, broadcaster, log,
		cfg.Sync.ExpandHorizonDays, series.DefaultPlannedMinutes)

	scheduler := sync.NewScheduler(syncService, expander, log, cfg.Sync.RefreshIntervalMin)
	if err := scheduler.Start(); err != nil {
		log.Fatal("starting scheduler", zap.Error(err))
	}

	router := api.NewRouter(api.Deps{
		DB:                    db,
		Hub:                   hub,
		Broadcaster:           broadcaster,
		Tasks:                 tasks,
		Series:                seriesRepo,
		Apartments:            apartments,
		Staff:                 staff,
		Bookings:              bookings,
		TimeLogs:              timeLogs,
		Sync:                  syncService,
		Expander:              expander,
		Log:                   log,
		DefaultPlannedMinutes: cfg.Sync.DefaultPlannedMinutes,
		StaticDir:             *staticDir,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// runHealthCheck probes the running server, for container healthchecks.
func runHealthCheck(addr string) error {
	resp, err := http.Get("http://localhost" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
