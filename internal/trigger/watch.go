package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"tmdbtsv/internal/logging"
)

// DefaultDebounce is the quiet period after the last input change before a
// run starts.
const DefaultDebounce = 500 * time.Millisecond

// Watch fires r whenever one of paths is written or re-created. The parent
// directories are watched so that editors replacing a file by rename are
// seen. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, paths []string, debounce time.Duration, r *Runner) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	targets := make(map[string]struct{}, len(paths))
	watchedDirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %q: %w", p, err)
		}
		targets[abs] = struct{}{}
		dir := filepath.Dir(abs)
		if _, ok := watchedDirs[dir]; ok {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		watchedDirs[dir] = struct{}{}
	}
	r.logger.Info("watching inputs", logging.Int("files", len(targets)), logging.Duration("debounce", debounce))

	// Runs are started from this goroutine only, so inflight.Add always
	// happens before the deferred Wait.
	var inflight sync.WaitGroup
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer func() {
		timer.Stop()
		inflight.Wait()
		r.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			if ctx.Err() != nil {
				return nil
			}
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				r.Fire(ctx, "watch")
			}()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			if _, ok := targets[abs]; !ok {
				continue
			}
			r.logger.Debug("input changed", logging.String("path", abs), logging.String("op", event.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(r.logger, "file watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "an input change may be missed"),
			)
		}
	}
}
