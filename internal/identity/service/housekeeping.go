package service

import (
	"context"
	"log/slog"
	"time"
)

// HousekeepingService periodically removes expired OTP codes and blacklist
// entries so neither table grows without bound.
type HousekeepingService struct {
	OTPs      *OTPService
	Blacklist *BlacklistService
	Logger    *slog.Logger
	Interval  time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service with the given
// interval. A zero or negative interval defaults to 1 hour.
func NewHousekeepingService(otps *OTPService, blacklist *BlacklistService, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		OTPs:      otps,
		Blacklist: blacklist,
		Logger:    logger,
		Interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Non-blocking; call Stop to shut it
// down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep ends.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Sweep immediately on startup.
	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs the sweeps. Each sweep is independent; one failing does not
// stop the other.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()

	if removed, err := s.OTPs.CleanupExpired(ctx); err != nil {
		s.Logger.Error("failed to delete expired otps", "error", err)
	} else if removed > 0 {
		s.Logger.Info("deleted expired otps", "count", removed)
	}

	if removed, err := s.Blacklist.CleanupExpired(ctx); err != nil {
		s.Logger.Error("failed to delete expired blacklist entries", "error", err)
	} else if removed > 0 {
		s.Logger.Info("deleted expired blacklist entries", "count", removed)
	}
}
