// Package sweeper periodically clears expired verification codes and reset tokens
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Target is the operation the sweeper runs on schedule
type Target interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// Sweeper runs a Target on a cron schedule
type Sweeper struct {
	target   Target
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger
}

// New creates a sweeper. schedule uses the standard 5 field cron format.
func New(target Target, schedule string, logger zerolog.Logger) *Sweeper {
	// Create a new cron scheduler with seconds disabled
	c := cron.New(cron.WithParser(cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
	)))

	return &Sweeper{
		target:   target,
		schedule: schedule,
		cron:     c,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// RunOnce performs a single sweep
func (s *Sweeper) RunOnce(ctx context.Context) {
	start := time.Now()
	n, err := s.target.SweepExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep failed")
		return
	}
	s.logger.Info().
		Int64("cleared", n).
		Dur("duration", time.Since(start)).
		Msg("expired secrets swept")
}

// Start schedules the sweep and blocks until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweeper with %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.logger.Info().Str("schedule", s.schedule).Msg("sweeper started")

	<-ctx.Done()
	s.logger.Info().Msg("stopping sweeper")
	// Wait for a running sweep to finish
	<-s.cron.Stop().Done()

	return nil
}
