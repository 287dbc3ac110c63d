// Package jsondoc loads JSON documents holding an array of records.
//
// Records are decoded into ordered Objects so the first-seen key order of
// every object survives into the flattened column order. Numbers keep their
// literal JSON text; nothing is coerced. Any failure to read or shape the
// document is reported as a *ParseError.
package jsondoc
