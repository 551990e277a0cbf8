// internal/store/sweeper.go
//
// Periodic removal of idle matches, scheduled with gocron.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Sweeper runs Store.Sweep on a fixed interval.
type Sweeper struct {
	sched gocron.Scheduler
	store Store
	clock clockwork.Clock
	ttl   time.Duration
}

// NewSweeper schedules a sweep every interval that drops matches idle for longer than ttl.
// The scheduler is not running until Start is called.
func NewSweeper(st Store, interval, ttl time.Duration, clock clockwork.Clock) (*Sweeper, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	sched, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	s := &Sweeper{sched: sched, store: st, clock: clock, ttl: ttl}
	if _, err := sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.RunOnce),
		gocron.WithName("sweep-idle-matches"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}
	return s, nil
}

// Start begins the schedule.
func (s *Sweeper) Start() { s.sched.Start() }

// Shutdown stops the schedule and waits for a running sweep.
func (s *Sweeper) Shutdown() error { return s.sched.Shutdown() }

// RunOnce sweeps immediately.
func (s *Sweeper) RunOnce() {
	cutoff := s.clock.Now().Add(-s.ttl)
	ids, err := s.store.Sweep(context.Background(), cutoff)
	if err != nil {
		log.Warn().Err(err).Msg("sweep idle matches")
		return
	}
	if len(ids) > 0 {
		log.Info().Int("removed", len(ids)).Int("live", s.store.Len()).Msg("swept idle matches")
	}
}
