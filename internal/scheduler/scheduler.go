// Package scheduler turns task schedules into live cron registrations and
// one-shot timers, and dispatches pipeline runs when they fire. It uses the
// robfig/cron/v3 library for recurring triggers.
//
// The scheduler exclusively owns its set of handles: they are created in
// Activate, cancelled in Deactivate, and never touched by running pipelines.
// Fires are dispatched fire-and-forget so a slow task cannot delay another
// task's trigger.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/result"
	"github.com/pagewatch/pagewatch/internal/schedule"
	"github.com/pagewatch/pagewatch/internal/task"
)

// Runner executes one task; satisfied by the execution pipeline.
type Runner interface {
	Run(ctx context.Context, def task.Definition) (result.Record, error)
}

// Handle binds one task to one live trigger: a registered cron entry or an
// armed one-shot timer. The cancel capability is opaque; cancelling is the
// scheduler's business only.
type Handle struct {
	Task     task.Definition
	Schedule schedule.Schedule

	cancel   func()
	nextFire func(now time.Time) (time.Time, bool)
}

// NextFire returns the handle's next fire time after now. ok is false for a
// one-time handle that has already fired or been cancelled.
func (h *Handle) NextFire(now time.Time) (t time.Time, ok bool) {
	return h.nextFire(now)
}

// Config controls the scheduler.
type Config struct {
	Location          *time.Location
	HeartbeatInterval time.Duration
}

// Scheduler owns the live scheduled-task handles.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	runner  Runner
	metrics *metrics.Metrics
	logger  *logger.Logger

	heartbeat time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool

	mu      sync.Mutex
	handles map[*Handle]struct{}
}

// specParser parses standard five-field expressions for next-fire
// computation.
var specParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// New creates a scheduler. metrics may be nil.
func New(cfg Config, runner Runner, m *metrics.Metrics, log *logger.Logger) *Scheduler {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	heartbeat := cfg.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = time.Minute
	}

	return &Scheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		loc:       loc,
		runner:    runner,
		metrics:   m,
		logger:    log,
		heartbeat: heartbeat,
		handles:   make(map[*Handle]struct{}),
	}
}

// Start begins trigger delivery and the heartbeat loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	s.cron.Start()
	go s.heartbeatLoop()

	s.logger.Info("scheduler started",
		logger.Field{Key: "timezone", Value: s.loc.String()})
	return nil
}

// Stop cancels every live handle and halts trigger delivery. In-flight
// pipeline runs are not interrupted; they complete on their own.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return fmt.Errorf("scheduler not started")
	}
	s.started = false
	s.mu.Unlock()

	s.Deactivate()
	s.cancel()
	s.cron.Stop()

	s.logger.Info("scheduler stopped")
	return nil
}

// Activate parses each task's schedule and arms the matching trigger. Tasks
// with an empty or rejected schedule, a past one-time instant, or a cron
// expression the registration refuses are skipped with a logged reason;
// one broken task never aborts activation of the rest. The created handles
// are returned and remain owned by the scheduler.
func (s *Scheduler) Activate(tasks []task.Definition) []*Handle {
	now := time.Now()
	var activated []*Handle

	for _, def := range tasks {
		handle, reason := s.activateOne(def, now)
		if handle == nil {
			s.logger.Info("task not scheduled",
				logger.Field{Key: "task", Value: def.Name},
				logger.Field{Key: "reason", Value: reason})
			continue
		}

		activated = append(activated, handle)
		s.logger.Info("task scheduled",
			logger.Field{Key: "task", Value: def.Name},
			logger.Field{Key: "kind", Value: string(handle.Schedule.Kind)},
			logger.Field{Key: "schedule", Value: def.Schedule})
	}

	s.mu.Lock()
	for _, h := range activated {
		s.handles[h] = struct{}{}
	}
	count := len(s.handles)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetActiveHandles(count)
	}
	return activated
}

// activateOne arms a single trigger. A nil handle with a reason means the
// task was skipped.
func (s *Scheduler) activateOne(def task.Definition, now time.Time) (*Handle, string) {
	sched, err := schedule.Parse(def.Schedule, s.loc)
	if err != nil {
		return nil, fmt.Sprintf("schedule rejected: %v", err)
	}

	switch sched.Kind {
	case schedule.KindNone:
		return nil, "no schedule, manual runs only"

	case schedule.KindRecurring:
		return s.armRecurring(def, sched)

	case schedule.KindOneTime:
		delay := sched.Delay(now)
		if delay <= 0 {
			return nil, fmt.Sprintf("one-time instant %s already passed", sched.At.Format(time.RFC3339))
		}
		return s.armOneTime(def, sched, delay), ""

	default:
		return nil, fmt.Sprintf("unknown schedule kind %q", sched.Kind)
	}
}

func (s *Scheduler) armRecurring(def task.Definition, sched schedule.Schedule) (*Handle, string) {
	spec, err := specParser.Parse(sched.Expr)
	if err != nil {
		return nil, fmt.Sprintf("invalid cron expression: %v", err)
	}

	entryID, err := s.cron.AddFunc(sched.Expr, func() {
		s.execute(def)
	})
	if err != nil {
		// The parser above accepted the expression, but registration remains
		// the authority.
		return nil, fmt.Sprintf("cron registration refused: %v", err)
	}

	loc := s.loc
	return &Handle{
		Task:     def,
		Schedule: sched,
		cancel: func() {
			s.cron.Remove(entryID)
		},
		nextFire: func(now time.Time) (time.Time, bool) {
			return spec.Next(now.In(loc)), true
		},
	}, ""
}

func (s *Scheduler) armOneTime(def task.Definition, sched schedule.Schedule, delay time.Duration) *Handle {
	var once sync.Once
	handle := &Handle{
		Task:     def,
		Schedule: sched,
	}

	timer := time.AfterFunc(delay, func() {
		once.Do(func() {
			s.retire(handle)
			s.execute(def)
		})
	})

	handle.cancel = func() {
		timer.Stop()
		once.Do(func() {}) // a cancelled handle never fires
	}
	handle.nextFire = func(now time.Time) (time.Time, bool) {
		s.mu.Lock()
		_, live := s.handles[handle]
		s.mu.Unlock()
		if !live || now.After(sched.At) {
			return time.Time{}, false
		}
		return sched.At, true
	}

	return handle
}

// Deactivate cancels every live trigger and empties the handle set.
func (s *Scheduler) Deactivate() {
	s.mu.Lock()
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[*Handle]struct{})
	s.mu.Unlock()

	for _, h := range handles {
		if h.cancel != nil {
			h.cancel()
		}
	}

	if s.metrics != nil {
		s.metrics.SetActiveHandles(0)
	}
	if len(handles) > 0 {
		s.logger.Info("deactivated scheduled tasks",
			logger.Field{Key: "count", Value: len(handles)})
	}
}

// Handles returns a snapshot of the live handles.
func (s *Scheduler) Handles() []*Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		out = append(out, h)
	}
	return out
}

// retire drops a one-time handle after its single fire.
func (s *Scheduler) retire(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	count := len(s.handles)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.SetActiveHandles(count)
	}
	s.logger.Debug("one-time handle retired",
		logger.Field{Key: "task", Value: h.Task.Name})
}

// execute dispatches one pipeline run. It never blocks the trigger that
// invoked it and never lets a panic escape into the cron machinery.
func (s *Scheduler) execute(def task.Definition) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("task run panic recovered", fmt.Errorf("panic: %v", r),
					logger.Field{Key: "task", Value: def.Name})
			}
		}()

		// The pipeline reports its own outcome; failures are contained here.
		_, _ = s.runner.Run(ctx, def)
	}()
}
