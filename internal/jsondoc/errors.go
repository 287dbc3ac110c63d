package jsondoc

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON reports content that is not well-formed JSON.
	ErrInvalidJSON = errors.New("invalid json")
	// ErrNotArray reports a document whose top level is not an array.
	ErrNotArray = errors.New("top level is not an array")
	// ErrNotObject reports an array element that is not an object.
	ErrNotObject = errors.New("record is not an object")
)

// ParseError reports an input document that could not be loaded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("parse records: %v", e.Err)
	}
	return fmt.Sprintf("parse records %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
