package preflight

import (
	"context"
	"errors"
	"fmt"

	"tmdbtsv/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Required runs the filesystem checks every run needs: the output directory,
// the state directory when history is enabled, and each source input file.
func Required(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir)}
	if cfg.History.Enabled {
		results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	}
	for _, src := range cfg.Sources {
		results = append(results, CheckInputFile(fmt.Sprintf("Source %s", src.Name), src.Path))
	}
	return results
}

// RunAll executes Required plus the sink connectivity check when a sink is
// configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	results := Required(cfg)
	if cfg != nil && cfg.Sink.Driver != "" {
		results = append(results, CheckSink(ctx, cfg.Sink))
	}
	return results
}

// Err joins the failed results into one error, or returns nil when every
// check passed.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("preflight: %w", errors.Join(errs...))
}
