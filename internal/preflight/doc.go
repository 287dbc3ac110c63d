// Package preflight provides readiness checks for the filesystem paths and
// the optional database sink that a run depends on.
//
// These checks run in two contexts:
//   - The pipeline calls Required before loading any input, so a run that
//     cannot read its inputs or write its outputs fails before doing work.
//   - The CLI "config validate" command calls RunAll, which also pings the
//     configured sink, and prints every result.
package preflight
