package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
)

// Releaser tears down video rooms that are no longer needed
type Releaser interface {
	ReleaseEndedRooms(ctx context.Context) (int, error)
}

type Scheduler struct {
	cron *gocron.Scheduler
}

// New creates a scheduler. A non-positive interval leaves the room reaper
// unscheduled.
func New(reaper Releaser, intervalMinutes int, timeout time.Duration) (*Scheduler, error) {
	s := &Scheduler{cron: gocron.NewScheduler(time.UTC)}
	s.cron.SingletonModeAll()

	if intervalMinutes <= 0 {
		log.Info().Msg("Room reaper disabled")
		return s, nil
	}

	_, err := s.cron.Every(intervalMinutes).Minutes().Do(func() {
		runReaper(reaper, timeout)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func runReaper(reaper Releaser, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if _, err := reaper.ReleaseEndedRooms(ctx); err != nil {
		log.Error().Err(err).Msg("Room reaper run failed")
	}
}

// Start runs the scheduler in a separate goroutine
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop gracefully shuts down the scheduler
func (s *Scheduler) Stop() {
	if s != nil && s.cron != nil {
		s.cron.Stop()
	}
}
