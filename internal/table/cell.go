package table

// Kind identifies the scalar type of a Cell.
type Kind uint8

const (
	Null Kind = iota
	String
	Number
	Bool
	// JSON holds the compact JSON text of a nested list kept in a parent row.
	JSON
)

// Cell is one scalar value of a row.
type Cell struct {
	Kind Kind
	Text string
}

// NullCell returns the null cell.
func NullCell() Cell { return Cell{} }

// StringCell returns a string cell.
func StringCell(s string) Cell { return Cell{Kind: String, Text: s} }

// NumberCell returns a number cell holding the literal number text.
func NumberCell(literal string) Cell { return Cell{Kind: Number, Text: literal} }

// BoolCell returns a boolean cell.
func BoolCell(b bool) Cell {
	if b {
		return Cell{Kind: Bool, Text: "true"}
	}
	return Cell{Kind: Bool, Text: "false"}
}

// JSONCell returns a cell holding compact JSON text.
func JSONCell(raw string) Cell { return Cell{Kind: JSON, Text: raw} }

// IsNull reports whether the cell is null.
func (c Cell) IsNull() bool { return c.Kind == Null }

// String renders the cell as it appears in delimited output. Null renders
// as the empty string.
func (c Cell) String() string { return c.Text }
