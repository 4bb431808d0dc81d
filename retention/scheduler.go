package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Scheduler runs SweepAll on the configured cron schedule
type Scheduler struct {
	sweeper *Sweeper
	cron    *cron.Cron
	mu      sync.Mutex
	logger  zerolog.Logger
	running bool
	done    chan struct{}
}

// NewScheduler creates a scheduler for the sweeper
func NewScheduler(sweeper *Sweeper) *Scheduler {
	return &Scheduler{
		sweeper: sweeper,
		cron:    cron.New(),
		logger:  sweeper.logger.With().Str("component", "retention.scheduler").Logger(),
	}
}

// Start schedules sweeps. An empty schedule leaves the scheduler idle.
// The scheduler stops on its own when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := s.sweeper.config.Schedule
	if schedule == "" {
		s.logger.Info().Msg("retention schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return nil
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}

	if _, err := s.cron.AddFunc(schedule, func() {
		s.runSweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule retention sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	done := make(chan struct{})
	s.done = done

	s.logger.Info().
		Str("schedule", schedule).
		Int("retention_days", s.sweeper.config.RetentionDays).
		Int("batch_size", s.sweeper.config.BatchSize).
		Msg("retention scheduler started")

	go func() {
		select {
		case <-ctx.Done():
			s.Stop()
		case <-done:
		}
	}()

	return nil
}

func (s *Scheduler) runSweep(ctx context.Context) {
	report, err := s.sweeper.SweepAll(ctx, false)
	if err != nil {
		s.logger.Error().Err(err).Msg("scheduled retention sweep finished with errors")
		return
	}
	s.logger.Debug().
		Str("run_id", report.RunID).
		Int64("total_deleted", report.Total()).
		Msg("scheduled retention sweep finished")
}

// Stop stops the scheduler and waits for a running sweep to complete
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		close(s.done)
		s.cron = cron.New()
		s.running = false
		s.logger.Info().Msg("retention scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled sweep time, or nil when idle
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if !s.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
