package order

import (
	"context"
	"time"
)

// Sweeper periodically expires unpaid gateway orders left behind by
// abandoned checkouts.
type Sweeper struct {
	service  *Service
	ttl      time.Duration
	interval time.Duration
}

func NewSweeper(service *Service, ttl, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{service: service, ttl: ttl, interval: interval}
}

// Run blocks until ctx is done. A zero ttl disables sweeping.
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		logger.Info().Msg("pending order sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info().Dur("ttl", s.ttl).Dur("interval", s.interval).Msg("pending order sweeper started")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("pending order sweeper stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.service.ExpireStalePending(ctx, s.ttl)
	if err != nil {
		logger.Error().Err(err).Msg("failed to expire pending orders")
		return
	}
	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("expired pending orders")
	}
}
