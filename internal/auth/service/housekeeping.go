package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/fastlink/internal/auth/store"
)

// HousekeepingService periodically reaps expired OTP records and signing
// keys past their verification window.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration
	Now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
func NewHousekeepingService(store store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HousekeepingService{
		Store:    store,
		Logger:   logger,
		Interval: interval,
		Now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress cleanup has finished.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one pass. Each deletion is independent; a failure in one
// does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	now := s.Now().UTC()

	otps, err := s.Store.OTPs().DeleteExpiredOTPs(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired otps", "error", err)
	}

	keys, err := s.Store.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	if err != nil {
		s.Logger.Error("failed to delete expired signing keys", "error", err)
	}

	s.Logger.Info("housekeeping cleanup completed", "otps_deleted", otps, "signing_keys_deleted", keys)
}
