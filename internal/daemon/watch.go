package daemon

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pagewatch/pagewatch/internal/logger"
)

// watchTasks watches the task directory and requests a reload after file
// changes settle. Editors produce bursts of write events, so changes are
// debounced before a single reload request is queued.
func (d *Daemon) watchTasks(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		d.log.Error("task directory watch unavailable", err)
		return
	}
	defer watcher.Close()

	if err := watcher.Add(d.cfg.Tasks.Dir); err != nil {
		d.log.Error("task directory watch unavailable", err,
			logger.Field{Key: "dir", Value: d.cfg.Tasks.Dir})
		return
	}

	debounce := time.Duration(d.cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(debounce, func() {
			select {
			case d.reloadCh <- struct{}{}:
			default: // a reload is already queued
			}
		})
	}

	d.log.Info("watching task directory",
		logger.Field{Key: "dir", Value: d.cfg.Tasks.Dir},
		logger.Field{Key: "debounce", Value: debounce.String()})

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !relevantChange(event) {
				continue
			}
			d.log.Debug("task file change detected",
				logger.Field{Key: "file", Value: filepath.Base(event.Name)},
				logger.Field{Key: "op", Value: event.Op.String()})
			schedule()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.log.Error("task directory watch error", err)
		}
	}
}

// relevantChange filters out events that cannot affect the loaded task set:
// chmods, and files the loader would never read.
func relevantChange(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".conf", ".yaml", ".yml":
		return true
	}
	return false
}
