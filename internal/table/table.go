package table

import "sort"

// Row maps column names to cells.
type Row map[string]Cell

// Table is a named relation with an ordered column set.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row

	index map[string]struct{}
}

// New returns an empty table with the given columns.
func New(name string, columns ...string) *Table {
	t := &Table{Name: name}
	for _, col := range columns {
		t.AddColumn(col)
	}
	return t
}

// AddColumn appends col to the column set unless it is already present.
func (t *Table) AddColumn(col string) {
	if t.HasColumn(col) {
		return
	}
	t.index[col] = struct{}{}
	t.Columns = append(t.Columns, col)
}

// HasColumn reports whether col belongs to the column set.
func (t *Table) HasColumn(col string) bool {
	t.ensureIndex()
	_, ok := t.index[col]
	return ok
}

// ensureIndex (re)builds the column index for tables whose Columns were set
// directly rather than through AddColumn.
func (t *Table) ensureIndex() {
	if t.index != nil && len(t.index) == len(t.Columns) {
		return
	}
	t.index = make(map[string]struct{}, len(t.Columns)+1)
	for _, c := range t.Columns {
		t.index[c] = struct{}{}
	}
}

// Append adds row and extends the column set with keys, which list the
// row's columns in first-seen order. Row keys missing from keys are added
// after them in sorted order so the column set stays deterministic.
func (t *Table) Append(row Row, keys []string) {
	for _, k := range keys {
		t.AddColumn(k)
	}
	if len(keys) != len(row) {
		var rest []string
		for k := range row {
			if !t.HasColumn(k) {
				rest = append(rest, k)
			}
		}
		sort.Strings(rest)
		for _, k := range rest {
			t.AddColumn(k)
		}
	}
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Cell returns the value of col in row i, null when the row lacks it.
func (t *Table) Cell(i int, col string) Cell {
	if c, ok := t.Rows[i][col]; ok {
		return c
	}
	return NullCell()
}

// Record returns row i as cells in column order.
func (t *Table) Record(i int) []Cell {
	out := make([]Cell, len(t.Columns))
	for j, col := range t.Columns {
		out[j] = t.Cell(i, col)
	}
	return out
}

// Equal reports whether two tables have the same columns in the same order
// and the same rows in the same order.
func Equal(a, b *Table) bool {
	if len(a.Columns) != len(b.Columns) || len(a.Rows) != len(b.Rows) {
		return false
	}
	for i := range a.Columns {
		if a.Columns[i] != b.Columns[i] {
			return false
		}
	}
	for i := range a.Rows {
		for _, col := range a.Columns {
			if a.Cell(i, col) != b.Cell(i, col) {
				return false
			}
		}
	}
	return true
}
