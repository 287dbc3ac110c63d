package trigger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"tmdbtsv/internal/logging"
)

// RunFunc performs one full pipeline run.
type RunFunc func(ctx context.Context) error

// Runner executes a RunFunc at most once at a time.
type Runner struct {
	fn      RunFunc
	logger  *slog.Logger
	running atomic.Bool
	// mu orders wg.Add against Wait.
	mu      sync.Mutex
	wg      sync.WaitGroup
	runs    atomic.Int64
	skipped atomic.Int64
}

// NewRunner wraps fn. A nil logger discards output.
func NewRunner(fn RunFunc, logger *slog.Logger) *Runner {
	return &Runner{fn: fn, logger: logging.NewComponentLogger(logger, "trigger")}
}

// Fire runs fn in the calling goroutine and reports whether it ran. When a
// run is already in progress the call is skipped.
func (r *Runner) Fire(ctx context.Context, trigger string) bool {
	if !r.running.CompareAndSwap(false, true) {
		r.skipped.Add(1)
		r.logger.Info("run skipped; previous run still in progress", logging.String(logging.FieldTrigger, trigger))
		return false
	}
	r.mu.Lock()
	r.wg.Add(1)
	r.mu.Unlock()
	defer func() {
		r.running.Store(false)
		r.wg.Done()
	}()

	r.runs.Add(1)
	ctx = logging.WithTrigger(ctx, trigger)
	if err := r.fn(ctx); err != nil {
		logging.ErrorWithContext(r.logger, "triggered run failed", "run_failed",
			logging.String(logging.FieldTrigger, trigger),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix the input or configuration; the next trigger retries"),
		)
	}
	return true
}

// Wait blocks until an in-flight run finishes.
func (r *Runner) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wg.Wait()
}

// Runs returns how many runs were started.
func (r *Runner) Runs() int64 { return r.runs.Load() }

// Skipped returns how many fires were skipped because a run was in progress.
func (r *Runner) Skipped() int64 { return r.skipped.Load() }
