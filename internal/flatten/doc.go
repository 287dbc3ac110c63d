// Package flatten turns nested JSON records into flat relations.
//
// For one record type it projects a parent table holding every attribute
// except the configured embedded lists, with nested objects expanded into
// "parent.child" columns, and one child table per embedded list holding the
// list elements of every record in record order. Child rows carry no key
// back to their parent record.
package flatten
