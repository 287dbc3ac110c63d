// Package logs reads back the JSON log file written next to the run history.
//
// It parses each line into an Entry, filters by run and level, returns the
// last N matching entries with bounded memory, and follows the file for new
// entries while a watch or schedule process keeps running.
package logs
