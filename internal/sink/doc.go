// Package sink loads finished relations into a tabular store.
//
// SQL stores (SQLite, PostgreSQL, MySQL) receive one table per relation with
// every column typed TEXT; MongoDB receives one collection per relation with
// one document per row. Each load replaces what a previous run left behind.
package sink
