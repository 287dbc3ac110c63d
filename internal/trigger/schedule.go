package trigger

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"tmdbtsv/internal/logging"
)

// ValidateSchedule reports whether expr is a valid standard cron expression
// or descriptor such as "@hourly".
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Schedule fires r on the cron expression expr. It blocks until ctx is
// cancelled and then waits for an in-flight run.
func Schedule(ctx context.Context, expr string, r *Runner) error {
	c := cron.New()
	if _, err := c.AddFunc(expr, func() { r.Fire(ctx, "schedule") }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	c.Start()
	if entries := c.Entries(); len(entries) > 0 {
		r.logger.Info("schedule started", logging.String("schedule", expr), logging.Any("next_run", entries[0].Next))
	}

	<-ctx.Done()
	<-c.Stop().Done()
	r.Wait()
	return nil
}
