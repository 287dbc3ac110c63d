// Package table holds the flat relations produced by the flattener and the
// two relational operations applied to them: Deduplicate collapses identical
// rows and Merge concatenates the same relation coming from different record
// types.
//
// A Table is an ordered column list plus ordered rows. Rows are maps; a
// column absent from a row reads as a null Cell, so every row always has the
// table's full column set.
package table
