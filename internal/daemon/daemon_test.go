package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/logger"
)

func TestPidFile_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pagewatch.pid")

	require.NoError(t, WritePidFile(path))

	pid, err := ReadPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, RemovePidFile(path))
	_, err = ReadPidFile(path)
	assert.True(t, os.IsNotExist(err))

	// Removing twice is fine.
	assert.NoError(t, RemovePidFile(path))
}

func TestReadPidFile_Garbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagewatch.pid")

	require.NoError(t, os.WriteFile(path, []byte("not a pid"), 0o644))
	_, err := ReadPidFile(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("-7"), 0o644))
	_, err = ReadPidFile(path)
	assert.Error(t, err)
}

func TestStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagewatch.pid")

	running, _, err := Status(path)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, WritePidFile(path))
	running, pid, err := Status(path)
	require.NoError(t, err)
	assert.True(t, running)
	assert.Equal(t, os.Getpid(), pid)
}

func TestIsProcessRunning(t *testing.T) {
	assert.True(t, isProcessRunning(os.Getpid()))
	// Pids near the max are essentially never in use on a test machine.
	assert.False(t, isProcessRunning(1<<22-2))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	tasksDir := filepath.Join(base, "tasks")
	require.NoError(t, os.MkdirAll(tasksDir, 0o755))

	return &config.Config{
		Logging: config.LoggingConfig{Level: "error", Format: "text", Output: "stderr"},
		State:   config.StateConfig{Dir: filepath.Join(base, "state")},
		Tasks:   config.TasksConfig{Dir: tasksDir},
		Scheduler: config.SchedulerConfig{
			Timezone:                 "UTC",
			HeartbeatIntervalSeconds: 60,
		},
		Pipeline: config.PipelineConfig{
			MaxRetries:        1,
			RetryDelaySeconds: 1,
			FetchTimeoutSecs:  5,
			UserAgent:         "pagewatch-test",
			MaxResponseSize:   1 << 20,
		},
	}
}

func TestDaemon_StartupAndTeardown(t *testing.T) {
	cfg := testConfig(t)
	taskFile := filepath.Join(cfg.Tasks.Dir, "news.conf")
	require.NoError(t, os.WriteFile(taskFile, []byte(
		"url=https://example.com\ntags=article\nmodel=llama3\nprompt=summarize: {{content}}\napi_url=http://localhost:11434\nschedule=*/5 * * * *\n",
	), 0o644))

	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	d, err := New(cfg, log)
	require.NoError(t, err)
	assert.Equal(t, StateStopped, d.State())

	require.NoError(t, d.start(context.Background()))
	assert.Equal(t, StateRunning, d.State())

	pid, err := ReadPidFile(cfg.PidFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	d.teardown()
	assert.Equal(t, StateStopped, d.State())
	_, err = ReadPidFile(cfg.PidFilePath())
	assert.True(t, os.IsNotExist(err))
}

func TestDaemon_RefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	first, err := New(cfg, log)
	require.NoError(t, err)
	require.NoError(t, first.start(context.Background()))
	defer first.teardown()

	second, err := New(cfg, log)
	require.NoError(t, err)
	err = second.start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")

	// The loser's teardown must leave the winner's pid file alone.
	second.teardown()
	pid, err := ReadPidFile(cfg.PidFilePath())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestDaemon_ReloadSwapsTasks(t *testing.T) {
	cfg := testConfig(t)
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	d, err := New(cfg, log)
	require.NoError(t, err)
	require.NoError(t, d.start(context.Background()))
	defer d.teardown()

	assert.Empty(t, d.sched.Handles())

	taskFile := filepath.Join(cfg.Tasks.Dir, "added.conf")
	require.NoError(t, os.WriteFile(taskFile, []byte(
		"url=https://example.com\ntags=body\nmodel=llama3\nprompt={{content}}\napi_url=http://localhost:11434\nschedule=0 8 * * *\n",
	), 0o644))

	d.Reload()
	assert.Len(t, d.sched.Handles(), 1)

	require.NoError(t, os.Remove(taskFile))
	d.Reload()
	assert.Empty(t, d.sched.Handles())
}

func TestRelevantChange(t *testing.T) {
	assert.True(t, relevantChange(fsnotify.Event{Name: "/tasks/news.conf", Op: fsnotify.Write}))
	assert.True(t, relevantChange(fsnotify.Event{Name: "/tasks/batch.yaml", Op: fsnotify.Create}))
	assert.True(t, relevantChange(fsnotify.Event{Name: "/tasks/old.conf", Op: fsnotify.Remove}))

	assert.False(t, relevantChange(fsnotify.Event{Name: "/tasks/news.conf", Op: fsnotify.Chmod}))
	assert.False(t, relevantChange(fsnotify.Event{Name: "/tasks/.news.conf.swp", Op: fsnotify.Write}))
	assert.False(t, relevantChange(fsnotify.Event{Name: "/tasks/notes.txt", Op: fsnotify.Write}))
}
