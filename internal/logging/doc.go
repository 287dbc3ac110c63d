// Package logging assembles the structured slog loggers used by tmdbtsv.
//
// It owns the console and JSON handlers, level parsing, and output plumbing,
// and exposes context helpers so pipeline code can tag log lines with the
// run ID, source, and relation being processed. When a state directory is
// configured, every line is also appended as JSON to the run log file.
package logging
