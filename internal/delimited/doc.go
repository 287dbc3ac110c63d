// Package delimited writes relations as delimiter-separated text files.
//
// Each file has one header line of column names followed by one line per
// row. Null cells are empty fields and fields that need it are quoted the
// way encoding/csv quotes them.
package delimited
