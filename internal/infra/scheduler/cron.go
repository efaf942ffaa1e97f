// Package scheduler provides the cron loop and the cross-instance lock used
// by the periodic rescan sweep.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps robfig/cron with the start/stop lifecycle the service
// bootstrap expects. Jobs must tolerate concurrently deployed instances;
// mutual exclusion comes from the advisory lock, not from the cron loop.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// AddFunc registers cmd under a cron expression or a predefined schedule
// like "@every 1h".
func (s *Scheduler) AddFunc(spec string, cmd func()) error {
	if _, err := s.cron.AddFunc(spec, cmd); err != nil {
		return fmt.Errorf("register schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// StopWithTimeout stops scheduling new runs and waits up to timeout for
// in-flight jobs to finish.
func (s *Scheduler) StopWithTimeout(timeout time.Duration) error {
	stopCtx := s.cron.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-stopCtx.Done():
		return nil
	case <-timer.C:
		return fmt.Errorf("scheduler shutdown timeout after %v", timeout)
	}
}
