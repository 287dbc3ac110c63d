package table

import (
	"fmt"
	"strings"
)

// SchemaMismatchError reports two tables configured as the same relation
// whose column sets cannot be reconciled.
type SchemaMismatchError struct {
	Relation     string
	Left         string
	Right        string
	LeftColumns  []string
	RightColumns []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("merge %s: %s columns [%s] share nothing with %s columns [%s]",
		e.Relation, e.Left, strings.Join(e.LeftColumns, ", "), e.Right, strings.Join(e.RightColumns, ", "))
}

// Merge concatenates the rows of a followed by the rows of b into a table
// named name. The columns are a's columns followed by b's columns not in a;
// cells missing from either side read as null. Two tables that both have
// columns but share none fail with *SchemaMismatchError.
func Merge(name string, a, b *Table) (*Table, error) {
	if len(a.Columns) > 0 && len(b.Columns) > 0 && !overlaps(a, b) {
		return nil, &SchemaMismatchError{
			Relation:     name,
			Left:         a.Name,
			Right:        b.Name,
			LeftColumns:  append([]string(nil), a.Columns...),
			RightColumns: append([]string(nil), b.Columns...),
		}
	}

	out := New(name, a.Columns...)
	for _, col := range b.Columns {
		out.AddColumn(col)
	}
	out.Rows = make([]Row, 0, len(a.Rows)+len(b.Rows))
	out.Rows = append(out.Rows, a.Rows...)
	out.Rows = append(out.Rows, b.Rows...)
	return out, nil
}

// MergeAll folds Merge over tables from left to right.
func MergeAll(name string, tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return New(name), nil
	}
	out := tables[0]
	for _, t := range tables[1:] {
		merged, err := Merge(name, out, t)
		if err != nil {
			return nil, err
		}
		out = merged
	}
	if out.Name != name {
		renamed := New(name, out.Columns...)
		renamed.Rows = out.Rows
		out = renamed
	}
	return out, nil
}

func overlaps(a, b *Table) bool {
	cols := make(map[string]struct{}, len(a.Columns))
	for _, c := range a.Columns {
		cols[c] = struct{}{}
	}
	for _, c := range b.Columns {
		if _, ok := cols[c]; ok {
			return true
		}
	}
	return false
}
