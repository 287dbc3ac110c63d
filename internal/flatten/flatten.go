package flatten

import (
	"errors"
	"fmt"

	"golang.org/x/text/unicode/norm"

	"tmdbtsv/internal/jsondoc"
	"tmdbtsv/internal/table"
)

// Options configures a Flattener.
type Options struct {
	// Separator joins nested object keys into column names. Defaults to ".".
	Separator string
	// NormalizeUnicode rewrites string cells to Unicode NFC.
	NormalizeUnicode bool
}

// Flattener projects records into parent and child tables.
type Flattener struct {
	sep       string
	normalize bool
}

// Result holds the tables produced for one record type. Children follow the
// order of the requested lists.
type Result struct {
	Parent   *table.Table
	Children []*table.Table
}

// New returns a Flattener for opts.
func New(opts Options) *Flattener {
	sep := opts.Separator
	if sep == "" {
		sep = "."
	}
	return &Flattener{sep: sep, normalize: opts.NormalizeUnicode}
}

// ErrInvalidList reports an unusable embedded-list attribute name.
var ErrInvalidList = errors.New("invalid embedded list")

// Flatten produces the parent table named source and one child table per
// attribute in lists, named "<source>.<attribute>".
func (f *Flattener) Flatten(source string, records []jsondoc.Object, lists []string) (Result, error) {
	seen := make(map[string]struct{}, len(lists))
	for _, attr := range lists {
		if attr == "" {
			return Result{}, fmt.Errorf("%s: %w: empty attribute", source, ErrInvalidList)
		}
		if _, dup := seen[attr]; dup {
			return Result{}, fmt.Errorf("%s: %w: %q listed twice", source, ErrInvalidList, attr)
		}
		seen[attr] = struct{}{}
	}

	res := Result{
		Parent:   f.Parent(source, records, lists),
		Children: make([]*table.Table, 0, len(lists)),
	}
	for _, attr := range lists {
		res.Children = append(res.Children, f.Child(source, attr, records))
	}
	return res, nil
}

// Parent projects every record onto its attributes not named in lists. Each
// record yields exactly one row.
func (f *Flattener) Parent(source string, records []jsondoc.Object, lists []string) *table.Table {
	skip := make(map[string]struct{}, len(lists))
	for _, attr := range lists {
		skip[attr] = struct{}{}
	}

	t := table.New(source)
	for _, rec := range records {
		b := newRowBuilder()
		for _, field := range rec {
			if _, ok := skip[field.Key]; ok {
				continue
			}
			f.flattenValue(b, field.Key, field.Value)
		}
		t.Append(b.row, b.keys)
	}
	return t
}

// Child collects the elements of attr across records. A missing or null
// attribute contributes no rows, and so does a null element. Object elements
// are flattened like parent records, an empty object giving an all-null row;
// scalar elements become one-column rows whose column is attr.
func (f *Flattener) Child(source, attr string, records []jsondoc.Object) *table.Table {
	t := table.New(source + "." + attr)
	for _, rec := range records {
		v, ok := rec.Get(attr)
		if !ok {
			continue
		}
		for _, elem := range elements(v) {
			b := newRowBuilder()
			switch elem.Kind {
			case jsondoc.KindNull:
				continue
			case jsondoc.KindObject:
				for _, field := range elem.Object {
					f.flattenValue(b, field.Key, field.Value)
				}
			default:
				f.flattenValue(b, attr, elem)
			}
			t.Append(b.row, b.keys)
		}
	}
	return t
}

// elements returns the items an embedded-list attribute contributes. Null
// is an empty list and a non-list value is a list of one.
func elements(v jsondoc.Value) []jsondoc.Value {
	switch v.Kind {
	case jsondoc.KindNull:
		return nil
	case jsondoc.KindArray:
		return v.Array
	default:
		return []jsondoc.Value{v}
	}
}

func (f *Flattener) flattenValue(b *rowBuilder, column string, v jsondoc.Value) {
	switch v.Kind {
	case jsondoc.KindObject:
		for _, field := range v.Object {
			f.flattenValue(b, column+f.sep+field.Key, field.Value)
		}
	case jsondoc.KindArray:
		b.set(column, table.JSONCell(v.Raw))
	case jsondoc.KindString:
		s := v.Text
		if f.normalize {
			s = norm.NFC.String(s)
		}
		b.set(column, table.StringCell(s))
	case jsondoc.KindNumber:
		b.set(column, table.NumberCell(v.Text))
	case jsondoc.KindBool:
		b.set(column, table.BoolCell(v.Text == "true"))
	default:
		b.set(column, table.NullCell())
	}
}

type rowBuilder struct {
	row  table.Row
	keys []string
}

func newRowBuilder() *rowBuilder {
	return &rowBuilder{row: table.Row{}}
}

func (b *rowBuilder) set(column string, c table.Cell) {
	if _, ok := b.row[column]; !ok {
		b.keys = append(b.keys, column)
	}
	b.row[column] = c
}
