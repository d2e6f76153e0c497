package scheduler

import (
	"time"

	"github.com/pagewatch/pagewatch/internal/logger"
)

// heartbeatLoop periodically reports the soonest upcoming fire among the
// live recurring handles. It is purely observational and also keeps the
// daemon's event loop alive while idle.
func (s *Scheduler) heartbeatLoop() {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	if s.metrics != nil {
		s.metrics.Heartbeat(now)
	}

	handle, next, ok := s.soonestNextFire(now)
	if !ok {
		s.logger.Debug("heartbeat: no scheduled fires pending")
		return
	}

	s.logger.Debug("heartbeat",
		logger.Field{Key: "next_task", Value: handle.Task.Name},
		logger.Field{Key: "next_fire", Value: next.Format(time.RFC3339)},
		logger.Field{Key: "in", Value: next.Sub(now).Round(time.Second).String()})
}

// soonestNextFire re-evaluates every live handle's next fire time against
// now and returns the earliest one.
func (s *Scheduler) soonestNextFire(now time.Time) (*Handle, time.Time, bool) {
	var (
		best     *Handle
		bestTime time.Time
	)

	for _, h := range s.Handles() {
		next, ok := h.NextFire(now)
		if !ok {
			continue
		}
		if best == nil || next.Before(bestTime) {
			best = h
			bestTime = next
		}
	}

	if best == nil {
		return nil, time.Time{}, false
	}
	return best, bestTime, true
}
