package advisor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ProfileWatcher reloads a profile file into an Advisor whenever it changes.
// A file that fails to load is logged and the previous profile stays active.
type ProfileWatcher struct {
	path    string
	advisor *Advisor
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewProfileWatcher starts watching path. The parent directory is watched so
// that editors replacing the file by rename are picked up too.
func NewProfileWatcher(path string, a *Advisor, logger *zap.Logger) (*ProfileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving profile path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	return &ProfileWatcher{
		path:    abs,
		advisor: a,
		watcher: w,
		logger:  logger,
	}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (pw *ProfileWatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pw.reload()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Warn("profile watcher error", zap.Error(err))
		}
	}
}

// Close stops watching.
func (pw *ProfileWatcher) Close() error {
	return pw.watcher.Close()
}

func (pw *ProfileWatcher) reload() {
	p, err := LoadProfile(pw.path)
	if err != nil {
		pw.logger.Error("profile reload failed, keeping previous profile",
			zap.String("path", pw.path),
			zap.Error(err),
		)
		return
	}

	pw.advisor.SetProfile(p)
	pw.logger.Info("profile reloaded",
		zap.String("path", pw.path),
		zap.String("model", p.Model),
	)
}
