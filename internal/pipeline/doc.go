// Package pipeline runs one full conversion: load every source file, flatten
// the records, merge and deduplicate the configured relations, write one
// delimited file per relation, and optionally load the relations into a
// database sink.
//
// All relations are computed in memory before the first file is written, so
// a parse or merge failure never leaves a partial output set. A lock file in
// the output directory keeps two processes from writing the same outputs.
package pipeline
