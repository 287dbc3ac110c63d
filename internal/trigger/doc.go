// Package trigger re-runs the pipeline when its inputs change or on a cron
// schedule. A Runner serializes runs: a trigger that fires while a run is in
// progress is skipped, not queued.
package trigger
