package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/result"
	"github.com/pagewatch/pagewatch/internal/schedule"
	"github.com/pagewatch/pagewatch/internal/task"
)

// fakeRunner records task names as runs arrive.
type fakeRunner struct {
	mu   sync.Mutex
	runs []string
	ch   chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{ch: make(chan string, 16)}
}

func (r *fakeRunner) Run(_ context.Context, def task.Definition) (result.Record, error) {
	r.mu.Lock()
	r.runs = append(r.runs, def.Name)
	r.mu.Unlock()
	r.ch <- def.Name
	return result.Record{Task: def.Name, Status: result.StatusSuccess}, nil
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

func testScheduler(t *testing.T, runner Runner) *Scheduler {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return New(Config{Location: time.UTC, HeartbeatInterval: time.Minute}, runner, nil, log)
}

func taskWithSchedule(name, sched string) task.Definition {
	return task.Definition{
		Name:     name,
		URL:      "https://example.com",
		Tags:     "body",
		Model:    "llama3",
		Prompt:   "p: " + task.ContentPlaceholder,
		APIURL:   "http://localhost:11434",
		Schedule: sched,
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := testScheduler(t, newFakeRunner())

	require.NoError(t, s.Start(context.Background()))
	assert.Error(t, s.Start(context.Background()))

	require.NoError(t, s.Stop())
	assert.Error(t, s.Stop())
}

func TestActivate_InvalidCronSkipped(t *testing.T) {
	// One valid and one four-field cron: exactly one live handle, the
	// broken task never aborts the batch.
	s := testScheduler(t, newFakeRunner())

	handles := s.Activate([]task.Definition{
		taskWithSchedule("broken", "* * * *"),
		taskWithSchedule("valid", "*/5 * * * *"),
	})

	require.Len(t, handles, 1)
	assert.Equal(t, "valid", handles[0].Task.Name)
	assert.Len(t, s.Handles(), 1)
}

func TestActivate_DailyTimeBecomesCron(t *testing.T) {
	s := testScheduler(t, newFakeRunner())

	handles := s.Activate([]task.Definition{taskWithSchedule("daily", "12.30")})
	require.Len(t, handles, 1)

	h := handles[0]
	assert.Equal(t, schedule.KindRecurring, h.Schedule.Kind)
	assert.Equal(t, "30 12 * * *", h.Schedule.Expr)

	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	next, ok := h.NextFire(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.June, 1, 12, 30, 0, 0, time.UTC), next)

	// Recomputed on demand: asking after the fire time rolls to the next day.
	next, ok = h.NextFire(next.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.June, 2, 12, 30, 0, 0, time.UTC), next)
}

func TestActivate_PastOneTimeSkipped(t *testing.T) {
	s := testScheduler(t, newFakeRunner())

	handles := s.Activate([]task.Definition{taskWithSchedule("past", "01.01.01 00.00")})
	assert.Empty(t, handles)
	assert.Empty(t, s.Handles())
}

func TestActivate_EmptyScheduleSkipped(t *testing.T) {
	s := testScheduler(t, newFakeRunner())

	handles := s.Activate([]task.Definition{taskWithSchedule("manual", "")})
	assert.Empty(t, handles)
}

func TestOneTime_FiresOnceAndRetires(t *testing.T) {
	runner := newFakeRunner()
	s := testScheduler(t, runner)
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	def := taskWithSchedule("once", "")
	sched := schedule.Schedule{Kind: schedule.KindOneTime, At: time.Now().Add(20 * time.Millisecond)}

	h := s.armOneTime(def, sched, 20*time.Millisecond)
	s.mu.Lock()
	s.handles[h] = struct{}{}
	s.mu.Unlock()

	select {
	case name := <-runner.ch:
		assert.Equal(t, "once", name)
	case <-time.After(2 * time.Second):
		t.Fatal("one-time trigger never fired")
	}

	// Retired after its single fire.
	assert.Eventually(t, func() bool { return len(s.Handles()) == 0 }, time.Second, 10*time.Millisecond)
	_, ok := h.NextFire(time.Now())
	assert.False(t, ok)
}

func TestDeactivate_PendingOneTimeNeverFires(t *testing.T) {
	runner := newFakeRunner()
	s := testScheduler(t, runner)

	def := taskWithSchedule("pending", "")
	sched := schedule.Schedule{Kind: schedule.KindOneTime, At: time.Now().Add(50 * time.Millisecond)}

	h := s.armOneTime(def, sched, 50*time.Millisecond)
	s.mu.Lock()
	s.handles[h] = struct{}{}
	s.mu.Unlock()

	s.Deactivate()
	assert.Empty(t, s.Handles())

	time.Sleep(150 * time.Millisecond)
	assert.Zero(t, runner.count())
}

func TestSoonestNextFire(t *testing.T) {
	s := testScheduler(t, newFakeRunner())

	s.Activate([]task.Definition{
		taskWithSchedule("noon", "0 12 * * *"),
		taskWithSchedule("morning", "0 9 * * *"),
	})

	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	h, next, ok := s.soonestNextFire(now)
	require.True(t, ok)
	assert.Equal(t, "morning", h.Task.Name)
	assert.Equal(t, 9, next.Hour())
}

func TestSoonestNextFire_NoHandles(t *testing.T) {
	s := testScheduler(t, newFakeRunner())
	_, _, ok := s.soonestNextFire(time.Now())
	assert.False(t, ok)
}

type panickingRunner struct{}

func (panickingRunner) Run(context.Context, task.Definition) (result.Record, error) {
	panic("boom")
}

func TestExecute_RecoversPanic(t *testing.T) {
	s := testScheduler(t, panickingRunner{})

	// Must not crash the test binary.
	s.execute(taskWithSchedule("explosive", ""))
	time.Sleep(50 * time.Millisecond)
}
