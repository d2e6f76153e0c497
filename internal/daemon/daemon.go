// Package daemon ties the scheduler, the execution pipeline, and the task
// loader into a long-running process with a pid file, signal handling, and
// optional automatic reload when task definitions change on disk.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pagewatch/pagewatch/internal/config"
	"github.com/pagewatch/pagewatch/internal/extract"
	"github.com/pagewatch/pagewatch/internal/inference"
	"github.com/pagewatch/pagewatch/internal/logger"
	"github.com/pagewatch/pagewatch/internal/metrics"
	"github.com/pagewatch/pagewatch/internal/pipeline"
	"github.com/pagewatch/pagewatch/internal/result"
	"github.com/pagewatch/pagewatch/internal/scheduler"
	"github.com/pagewatch/pagewatch/internal/task"
)

// State is the daemon's lifecycle phase.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

const shutdownGrace = 5 * time.Second

// Daemon owns the process-level lifecycle. It is single-use: one Run per
// Daemon.
type Daemon struct {
	cfg    *config.Config
	log    *logger.Logger
	loader *task.Loader
	sched  *scheduler.Scheduler
	sink   *result.FileSink
	msrv   *metrics.Server

	reloadCh chan struct{}

	mu      sync.Mutex
	state   State
	ownsPid bool
}

// New assembles the daemon's components from the configuration. Any error
// here means the process cannot come up at all.
func New(cfg *config.Config, log *logger.Logger) (*Daemon, error) {
	sink, err := result.NewFileSink(cfg.ResultLogPath())
	if err != nil {
		return nil, fmt.Errorf("open result log: %w", err)
	}

	engine := extract.NewHTTPEngine(extract.Config{
		Timeout:         time.Duration(cfg.Pipeline.FetchTimeoutSecs) * time.Second,
		UserAgent:       cfg.Pipeline.UserAgent,
		MaxResponseSize: cfg.Pipeline.MaxResponseSize,
	}, log)

	client := inference.NewHTTPClient(inference.Config{
		TimeoutSeconds: cfg.Pipeline.FetchTimeoutSecs,
	}, log)

	var m *metrics.Metrics
	var msrv *metrics.Server
	if cfg.Metrics.Enabled {
		m = metrics.New("pagewatch")
		msrv = metrics.NewServer(cfg.Metrics.ListenAddr, m, log)
	}

	pipe := pipeline.New(pipeline.Config{
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetryDelay: time.Duration(cfg.Pipeline.RetryDelaySeconds) * time.Second,
	}, engine, client, sink, m, log)

	sched := scheduler.New(scheduler.Config{
		Location:          cfg.Location(),
		HeartbeatInterval: time.Duration(cfg.Scheduler.HeartbeatIntervalSeconds) * time.Second,
	}, pipe, m, log)

	return &Daemon{
		cfg:      cfg,
		log:      log,
		loader:   task.NewLoader(cfg.Tasks.Dir, log),
		sched:    sched,
		sink:     sink,
		msrv:     msrv,
		reloadCh: make(chan struct{}, 1),
		state:    StateStopped,
	}, nil
}

// State reports the current lifecycle phase.
func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *Daemon) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Run brings the daemon up and blocks until ctx is cancelled or a
// termination signal arrives. SIGHUP triggers a reload instead of an exit.
// A startup failure tears down whatever partially started and returns the
// error; the process should exit non-zero.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.start(ctx); err != nil {
		d.teardown()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	if d.cfg.Watch.Enabled {
		go d.watchTasks(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			d.teardown()
			return nil

		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				d.Reload()
				continue
			}
			d.log.Info("shutdown signal received",
				logger.Field{Key: "signal", Value: sig.String()})
			d.teardown()
			return nil

		case <-d.reloadCh:
			d.Reload()
		}
	}
}

func (d *Daemon) start(ctx context.Context) error {
	d.setState(StateStarting)

	pidPath := d.cfg.PidFilePath()
	if pid, err := ReadPidFile(pidPath); err == nil {
		if isProcessRunning(pid) {
			return fmt.Errorf("already running with pid %d", pid)
		}
		// Stale pid file from an unclean exit.
		d.log.Warn("removing stale pid file",
			logger.Field{Key: "pid", Value: pid})
		_ = RemovePidFile(pidPath)
	}
	if err := WritePidFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	d.ownsPid = true

	tasks, err := d.loader.Load()
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	if len(tasks) == 0 {
		d.log.Warn("no task definitions found",
			logger.Field{Key: "dir", Value: d.cfg.Tasks.Dir})
	}

	if err := d.sched.Start(ctx); err != nil {
		return err
	}
	d.sched.Activate(tasks)

	if d.msrv != nil {
		d.msrv.Start()
	}

	d.setState(StateRunning)
	notifyReady(d.log)
	d.log.Info("daemon running",
		logger.Field{Key: "pid", Value: os.Getpid()},
		logger.Field{Key: "tasks", Value: len(tasks)},
		logger.Field{Key: "scheduled", Value: len(d.sched.Handles())})
	return nil
}

// Reload re-reads the task directory and swaps the live trigger set.
// In-flight pipeline runs are unaffected. A reload that finds no loadable
// tasks still deactivates the old set; the directory is the single source
// of truth.
func (d *Daemon) Reload() {
	if d.State() != StateRunning {
		return
	}
	notifyReloading(d.log)
	d.log.Info("reloading task definitions")

	tasks, err := d.loader.Load()
	if err != nil {
		d.log.Error("reload aborted, task directory unreadable", err)
		notifyReady(d.log)
		return
	}

	d.sched.Deactivate()
	d.sched.Activate(tasks)

	notifyReady(d.log)
	d.log.Info("reload complete",
		logger.Field{Key: "tasks", Value: len(tasks)},
		logger.Field{Key: "scheduled", Value: len(d.sched.Handles())})
}

// teardown releases everything start acquired, in reverse order. It is safe
// to call after a partial start.
func (d *Daemon) teardown() {
	d.setState(StateStopping)
	notifyStopping(d.log)

	if err := d.sched.Stop(); err != nil {
		d.log.Debug("scheduler stop skipped",
			logger.Field{Key: "reason", Value: err.Error()})
	}

	if d.msrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		if err := d.msrv.Stop(ctx); err != nil {
			d.log.Error("metrics server shutdown failed", err)
		}
		cancel()
	}

	if err := d.sink.Close(); err != nil {
		d.log.Error("result log close failed", err)
	}

	// Only the instance that wrote the pid file may remove it; a failed
	// second instance must not unlink the live daemon's pid.
	if d.ownsPid {
		if err := RemovePidFile(d.cfg.PidFilePath()); err != nil {
			d.log.Error("pid file removal failed", err)
		}
		d.ownsPid = false
	}

	d.setState(StateStopped)
	d.log.Info("daemon stopped")
}
