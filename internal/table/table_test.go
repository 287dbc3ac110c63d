package table

import (
	"errors"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"testing"
)

func genreRow(id, name string) Row {
	return Row{"id": NumberCell(id), "name": StringCell(name)}
}

func rowKey(t *Table, i int) string {
	var b strings.Builder
	for _, c := range t.Record(i) {
		writeKey(&b, c)
	}
	return b.String()
}

func randomTable(r *rand.Rand) *Table {
	cols := []string{"a", "b", "c"}
	t := New("random", cols...)
	n := r.Intn(40)
	for i := 0; i < n; i++ {
		row := Row{}
		for _, col := range cols {
			switch r.Intn(4) {
			case 0:
				// leave missing: reads as null
			case 1:
				row[col] = NumberCell(strconv.Itoa(r.Intn(3)))
			case 2:
				row[col] = StringCell(strconv.Itoa(r.Intn(3)))
			default:
				row[col] = BoolCell(r.Intn(2) == 0)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func TestDeduplicateIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 200; i++ {
		in := randomTable(r)
		once := Deduplicate(in)
		twice := Deduplicate(once)
		if !Equal(once, twice) {
			t.Fatalf("iteration %d: deduplicate is not idempotent", i)
		}
	}
}

func TestDeduplicateSubsetAndDistinct(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		in := randomTable(r)
		out := Deduplicate(in)

		inKeys := make(map[string]int)
		for j := range in.Rows {
			if _, ok := inKeys[rowKey(in, j)]; !ok {
				inKeys[rowKey(in, j)] = j
			}
		}
		seen := make(map[string]bool)
		lastPos := -1
		for j := range out.Rows {
			k := rowKey(out, j)
			pos, ok := inKeys[k]
			if !ok {
				t.Fatalf("iteration %d: output row %d not present in input", i, j)
			}
			if seen[k] {
				t.Fatalf("iteration %d: output row %d duplicated", i, j)
			}
			if pos <= lastPos {
				t.Fatalf("iteration %d: first-occurrence order not preserved", i)
			}
			seen[k] = true
			lastPos = pos
		}
		if len(out.Rows) != len(inKeys) {
			t.Fatalf("iteration %d: expected %d distinct rows, got %d", i, len(inKeys), len(out.Rows))
		}
	}
}

func TestDeduplicateDistinguishesKinds(t *testing.T) {
	in := New("t", "v")
	in.Rows = []Row{
		{"v": NumberCell("1")},
		{"v": StringCell("1")},
		{},
		{"v": StringCell("")},
		{"v": NullCell()},
	}
	out := Deduplicate(in)
	if out.Len() != 4 {
		t.Fatalf("expected number/string/null/empty-string rows to stay distinct, got %d rows", out.Len())
	}
}

func TestDeduplicateCollapsesIdenticalSubObjects(t *testing.T) {
	in := New("genres", "id", "name")
	in.Rows = []Row{genreRow("5", "Comedy"), genreRow("5", "Comedy")}
	out := Deduplicate(in)
	if out.Len() != 1 {
		t.Fatalf("expected one row, got %d", out.Len())
	}
	if in.Len() != 2 {
		t.Fatal("deduplicate must not modify its input")
	}
}

func TestMergeOrderAndUnion(t *testing.T) {
	a := New("series.genres", "id", "name")
	a.Rows = []Row{genreRow("10", "Drama")}
	b := New("movies.genres", "id", "name", "slug")
	b.Rows = []Row{{"id": NumberCell("28"), "name": StringCell("Action"), "slug": StringCell("action")}}

	ab, err := Merge("genres", a, b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if ab.Name != "genres" {
		t.Fatalf("unexpected name %q", ab.Name)
	}
	if got := strings.Join(ab.Columns, ","); got != "id,name,slug" {
		t.Fatalf("unexpected columns %q", got)
	}
	if ab.Cell(0, "name").Text != "Drama" || ab.Cell(1, "name").Text != "Action" {
		t.Fatalf("expected a's rows before b's rows")
	}
	if !ab.Cell(0, "slug").IsNull() {
		t.Fatalf("expected missing column to read as null")
	}

	ba, err := Merge("genres", b, a)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if ba.Cell(0, "name").Text != "Action" {
		t.Fatalf("expected b's rows first when b is the left input")
	}

	rowSet := func(tbl *Table) []string {
		cols := []string{"id", "name", "slug"}
		var keys []string
		for i := range tbl.Rows {
			var b strings.Builder
			for _, c := range cols {
				writeKey(&b, tbl.Cell(i, c))
			}
			keys = append(keys, b.String())
		}
		sort.Strings(keys)
		return keys
	}
	if strings.Join(rowSet(ab), "|") != strings.Join(rowSet(ba), "|") {
		t.Fatal("expected merge to be commutative in row content")
	}
}

func TestMergeSchemaMismatch(t *testing.T) {
	a := New("series.genres", "id", "name")
	b := New("movies.spoken_languages", "iso_639_1", "english_name")
	_, err := Merge("genres", a, b)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected SchemaMismatchError, got %v", err)
	}
	if mismatch.Relation != "genres" || mismatch.Left != "series.genres" || mismatch.Right != "movies.spoken_languages" {
		t.Fatalf("unexpected mismatch details: %+v", mismatch)
	}
}

func TestMergeWithEmptyTable(t *testing.T) {
	a := New("series.genres")
	b := New("movies.genres", "id", "name")
	b.Rows = []Row{genreRow("10", "Drama")}
	out, err := Merge("genres", a, b)
	if err != nil {
		t.Fatalf("expected empty table to merge, got %v", err)
	}
	if out.Len() != 1 || strings.Join(out.Columns, ",") != "id,name" {
		t.Fatalf("unexpected merge result: %+v", out)
	}
}

func TestMergeAll(t *testing.T) {
	a := New("a", "id")
	a.Rows = []Row{{"id": NumberCell("1")}}
	b := New("b", "id")
	b.Rows = []Row{{"id": NumberCell("2")}}
	c := New("c", "id")
	c.Rows = []Row{{"id": NumberCell("3")}}

	out, err := MergeAll("ids", a, b, c)
	if err != nil {
		t.Fatalf("MergeAll: %v", err)
	}
	if out.Name != "ids" || out.Len() != 3 || out.Cell(2, "id").Text != "3" {
		t.Fatalf("unexpected MergeAll result: %+v", out)
	}

	single, err := MergeAll("only", a)
	if err != nil || single.Name != "only" || single.Len() != 1 {
		t.Fatalf("unexpected single MergeAll result: %+v, %v", single, err)
	}
}

func TestGenresScenario(t *testing.T) {
	series := New("series.genres", "id", "name")
	series.Rows = []Row{genreRow("10", "Drama")}
	movies := New("movies.genres", "id", "name")
	movies.Rows = []Row{genreRow("10", "Drama")}

	merged, err := Merge("genres", series, movies)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	out := Deduplicate(merged)
	if out.Len() != 1 {
		t.Fatalf("expected exactly one genre row, got %d", out.Len())
	}
	if out.Cell(0, "id").Text != "10" || out.Cell(0, "name").Text != "Drama" {
		t.Fatalf("unexpected row %+v", out.Rows[0])
	}
}

func TestAppendOrdersColumns(t *testing.T) {
	tbl := New("t")
	tbl.Append(Row{"b": NumberCell("1"), "a": NumberCell("2")}, []string{"b", "a"})
	tbl.Append(Row{"a": NumberCell("3"), "z": NullCell(), "c": NullCell()}, []string{"a"})
	if got := strings.Join(tbl.Columns, ","); got != "b,a,c,z" {
		t.Fatalf("unexpected columns %q", got)
	}
}

func TestHasColumnUsesIndex(t *testing.T) {
	tbl := New("t", "id", "name")
	if !tbl.HasColumn("name") || tbl.HasColumn("missing") {
		t.Fatalf("unexpected membership for %v", tbl.Columns)
	}

	literal := &Table{Name: "lit", Columns: []string{"x"}}
	if !literal.HasColumn("x") {
		t.Fatal("expected column set directly on the struct to be found")
	}
	literal.Columns = append(literal.Columns, "y")
	if !literal.HasColumn("y") {
		t.Fatal("expected index to follow a directly extended column set")
	}
	literal.AddColumn("x")
	literal.AddColumn("z")
	if got := strings.Join(literal.Columns, ","); got != "x,y,z" {
		t.Fatalf("unexpected columns %q", got)
	}
}
