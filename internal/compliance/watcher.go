package compliance

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchRules reloads the rules file into the auditor whenever it changes.
// The parent directory is watched so a file replaced by rename keeps being
// tracked. A file that fails to load or validate is logged and the previous
// rules stay in effect. Call the returned stop function to clean up.
func WatchRules(path string, auditor *Auditor, logger *zap.Logger) (stop func(), err error) {
	path = filepath.Clean(path)
	if _, err := LoadRules(path); err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("rules watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("rules watcher add %s: %w", dir, err)
	}

	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				rules, err := LoadRules(path)
				if err != nil {
					logger.Warn("compliance rules reload skipped", zap.String("path", path), zap.Error(err))
					continue
				}
				auditor.SetRules(rules)
				logger.Info("compliance rules reloaded", zap.String("path", path))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("compliance rules watcher error", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		<-exited
	}, nil
}
