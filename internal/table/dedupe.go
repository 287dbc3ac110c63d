package table

import (
	"strconv"
	"strings"
)

// Deduplicate returns a new table in which rows equal across every column
// are collapsed to their first occurrence. The column set and the order of
// surviving rows are preserved, so applying it twice changes nothing.
func Deduplicate(t *Table) *Table {
	out := New(t.Name, t.Columns...)
	out.Rows = make([]Row, 0, len(t.Rows))

	seen := make(map[string]struct{}, len(t.Rows))
	var key strings.Builder
	for i, row := range t.Rows {
		key.Reset()
		for _, col := range t.Columns {
			writeKey(&key, t.Cell(i, col))
		}
		k := key.String()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// writeKey appends a kind-tagged, length-prefixed encoding of c so that
// distinct cell sequences never produce the same key.
func writeKey(b *strings.Builder, c Cell) {
	b.WriteByte(byte('0' + c.Kind))
	b.WriteString(strconv.Itoa(len(c.Text)))
	b.WriteByte(':')
	b.WriteString(c.Text)
}
