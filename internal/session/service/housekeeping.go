package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/afyapapo/sessioncore/internal/session/store"
	"github.com/afyapapo/sessioncore/pkg/slogx"
)

// HousekeepingService periodically purges credential entries whose
// store-level expiry has passed, so abandoned sessions don't accumulate in
// durable stores.
type HousekeepingService struct {
	Sweeper  store.Sweeper
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a sweeper. If interval is 0 or negative,
// defaults to 1 hour.
func NewHousekeepingService(sw store.Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Sweeper:  sw,
		Logger:   slogx.OrDiscard(logger),
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until the worker has finished any in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep runs one purge and returns how many entries were removed.
func (s *HousekeepingService) Sweep(ctx context.Context) int64 {
	n, err := s.Sweeper.DeleteExpired(ctx)
	if err != nil {
		s.Logger.Error("failed to delete expired credentials", "error", err)
		return 0
	}
	s.Logger.Debug("housekeeping sweep completed", "deleted", n)
	return n
}
