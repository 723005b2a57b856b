package partstock

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const defaultSweepInterval = time.Minute

// Sweeper periodically releases reservations that outlived their deadline.
// Overlapping runs are safe: the expire path is a no-op for any reservation
// that already left the active state.
type Sweeper struct {
	service  Service
	interval time.Duration
	logger   *zap.Logger
}

func NewSweeper(service Service, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &Sweeper{
		service:  service,
		interval: interval,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("expiration sweeper started", zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	count, err := s.service.CleanupExpiredReservations(ctx)
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
		return
	}
	if count > 0 {
		s.logger.Info("expired reservations released", zap.Int("count", count))
	}
}
