package delimited

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"

	"tmdbtsv/internal/fileutil"
	"tmdbtsv/internal/table"
)

// Writer writes tables into Dir using Delimiter. A zero Delimiter means tab.
type Writer struct {
	Delimiter rune
	Dir       string
}

// Stats describes one written file.
type Stats struct {
	Relation string
	Path     string
	Rows     int
	Bytes    int64
}

// WriteError reports a failure to produce an output file.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Extension returns the file extension used for delim.
func Extension(delim rune) string {
	switch delim {
	case 0, '\t':
		return ".tsv"
	case ',':
		return ".csv"
	default:
		return ".txt"
	}
}

// Path returns the output path for relation.
func (w Writer) Path(relation string) string {
	return filepath.Join(w.Dir, relation+Extension(w.Delimiter))
}

// Write replaces the output file for t.
func (w Writer) Write(t *table.Table) (Stats, error) {
	path := w.Path(t.Name)
	n, err := fileutil.WriteAtomic(path, 0o644, func(dst io.Writer) error {
		return Encode(dst, t, w.Delimiter)
	})
	if err != nil {
		return Stats{}, &WriteError{Path: path, Err: err}
	}
	return Stats{Relation: t.Name, Path: path, Rows: t.Len(), Bytes: n}, nil
}

// Encode writes the header and rows of t to dst.
func Encode(dst io.Writer, t *table.Table, delim rune) error {
	if delim == 0 {
		delim = '\t'
	}
	cw := csv.NewWriter(dst)
	cw.Comma = delim

	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	fields := make([]string, len(t.Columns))
	for i := range t.Rows {
		for j, col := range t.Columns {
			fields[j] = t.Cell(i, col).String()
		}
		if err := cw.Write(fields); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
