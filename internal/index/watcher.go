package index

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay lets a burst of events for one blob (create, write, chmod)
// collapse into a single callback.
const settleDelay = 200 * time.Millisecond

// ChangeCallback is called with the key of a blob that changed on disk.
type ChangeCallback func(key string)

// Watch starts an fsnotify watcher on the data directory and reports
// changed .json blobs until ctx is cancelled. Temporary files from atomic
// writes are ignored; the final rename arrives as a Create on the key.
func Watch(ctx context.Context, root string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func(key string) {
		pending[key] = struct{}{}
		if settleTimer == nil {
			settleTimer = time.NewTimer(settleDelay)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(settleDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-settleCh:
			settleTimer, settleCh = nil, nil
			for key := range pending {
				delete(pending, key)
				logger.Debug("watcher: changed", slog.String("key", key))
				if cb != nil {
					cb(key)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			key := filepath.Base(ev.Name)
			if strings.HasPrefix(key, ".") || !strings.HasSuffix(key, ".json") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				schedule(key)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
