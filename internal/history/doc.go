// Package history records pipeline runs in a SQLite database.
//
// Each run gets a UUID, start and finish times, a final status, and the list
// of relations it wrote with their row counts. The CLI "history" command
// reads the records back.
package history
