package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/afyapapo/sessioncore/pkg/slogx"
)

// DefaultRefreshInterval is how often the scheduler checks token freshness.
const DefaultRefreshInterval = 60 * time.Second

// Ticker is invoked on every scheduler tick.
type Ticker interface {
	Tick(ctx context.Context)
}

// RefreshService periodically asks the session to refresh its tokens when
// they are close to expiry. It is the only source of unsolicited session
// transitions.
type RefreshService struct {
	Target   Ticker
	Logger   *slog.Logger
	Interval time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	doneCh   chan struct{}
}

// NewRefreshService creates a scheduler. A non-positive interval defaults
// to one minute.
func NewRefreshService(target Ticker, logger *slog.Logger, interval time.Duration) *RefreshService {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &RefreshService{
		Target:   target,
		Logger:   slogx.OrDiscard(logger),
		Interval: interval,
		ctx:      ctx,
		cancel:   cancel,
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background loop. It does not tick immediately.
func (s *RefreshService) Start() {
	go s.run()
	s.Logger.Debug("refresh scheduler started", "interval", s.Interval)
}

// Stop cancels any in-flight tick and waits for the loop to exit. Safe to
// call more than once.
func (s *RefreshService) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.doneCh
		s.Logger.Debug("refresh scheduler stopped")
	})
}

func (s *RefreshService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Target.Tick(s.ctx)
		case <-s.ctx.Done():
			return
		}
	}
}
