package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/traintab/internal/training/store"
)

// HousekeepingService periodically sweeps expired records: generated trainee
// accounts past their training window and admin invitations past their
// expiry. Sweeps are idempotent and failures are logged, never escalated.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. If interval is 0 or negative,
// defaults to 24 hours.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts down the worker, blocking until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run a sweep immediately on startup.
	s.sweep()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

// sweep deletes expired records. Each deletion is independent; one failure
// never stops the others.
func (s *HousekeepingService) sweep() {
	ctx := context.Background()
	now := time.Now()

	if n, err := s.Store.Users().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired trainee accounts", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired trainee accounts", "count", n)
	}

	if n, err := s.Store.AdminInvitations().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired admin invitations", "error", err)
	} else if n > 0 {
		s.Logger.Info("deleted expired admin invitations", "count", n)
	}
}
