package analysis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func mustTable(t *testing.T, header []string, records ...[]string) *Table {
	t.Helper()
	tbl, err := NewTable("test.csv", header, records, DefaultOptions())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func parseCSV(t *testing.T, data []byte) *Table {
	t.Helper()
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	recs, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(recs) == 0 {
		t.Fatalf("no records in %q", data)
	}
	return mustTable(t, recs[0], recs[1:]...)
}

func TestNewTableClassifiesColumns(t *testing.T) {
	tbl := mustTable(t, []string{"Price", "Name", "Empty", "Mixed"},
		[]string{"10", "apple", "", "1"},
		[]string{"NA", "pear", "null", "x"},
		[]string{"30.5", "", "", "2"},
	)
	if tbl.Rows() != 3 {
		t.Fatalf("rows = %d, want 3", tbl.Rows())
	}
	numeric, text := ClassifyColumns(tbl)
	if !reflect.DeepEqual(numeric, []string{"Price"}) {
		t.Fatalf("numeric = %v", numeric)
	}
	if !reflect.DeepEqual(text, []string{"Name", "Empty", "Mixed"}) {
		t.Fatalf("text = %v", text)
	}
	if len(numeric)+len(text) != len(tbl.Columns) {
		t.Fatalf("partition does not cover all columns")
	}
	price, _ := tbl.Column("Price")
	if !math.IsNaN(price.Values[1]) || price.Values[2] != 30.5 {
		t.Fatalf("price values = %v", price.Values)
	}
}

func TestNormalizeHeader(t *testing.T) {
	got := normalizeHeader([]string{"\ufeffa", "", "a", " a ", "b"})
	want := []string{"a", "Unnamed: 1", "a.1", "a.2", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("header = %v, want %v", got, want)
	}
}

func TestNewTableShapeErrors(t *testing.T) {
	_, err := NewTable("x.csv", []string{"a", "b"}, [][]string{{"1", "2", "3"}}, DefaultOptions())
	if !errors.Is(err, ErrUnreadableFile) {
		t.Fatalf("long row err = %v, want ErrUnreadableFile", err)
	}
	tbl, err := NewTable("x.csv", []string{"a", "b"}, [][]string{{"1"}}, DefaultOptions())
	if err != nil {
		t.Fatalf("short row: %v", err)
	}
	if got := ReportNulls(tbl)["b"]; got != 1 {
		t.Fatalf("padded nulls = %d, want 1", got)
	}
	opt := DefaultOptions()
	opt.MaxRows = 1
	_, err = NewTable("x.csv", []string{"a"}, [][]string{{"1"}, {"2"}}, opt)
	if !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("max rows err = %v", err)
	}
	if _, err := NewTable("x.csv", nil, nil, DefaultOptions()); !errors.Is(err, ErrUnreadableFile) {
		t.Fatalf("empty header err = %v", err)
	}
}

func TestReportNullsAndFillMedian(t *testing.T) {
	tbl := mustTable(t, []string{"Price", "Name"},
		[]string{"10", "a"},
		[]string{"", ""},
		[]string{"30", "c"},
	)
	nulls := ReportNulls(tbl)
	if nulls["Price"] != 1 || nulls["Name"] != 1 || len(nulls) != 2 {
		t.Fatalf("nulls = %v", nulls)
	}
	filled := FillNulls(tbl)
	if filled.Rows() != tbl.Rows() || len(filled.Columns) != len(tbl.Columns) {
		t.Fatalf("fill changed shape")
	}
	for name, n := range ReportNulls(filled) {
		if n != 0 {
			t.Fatalf("column %s still has %d nulls", name, n)
		}
	}
	price, _ := filled.Column("Price")
	if !reflect.DeepEqual(price.Values, []float64{10, 20, 30}) {
		t.Fatalf("filled price = %v", price.Values)
	}
	if price.Cells[1] != "20" {
		t.Fatalf("filled cell = %q", price.Cells[1])
	}
	name, _ := filled.Column("Name")
	if name.Cells[1] != DefaultFillText {
		t.Fatalf("filled name = %q", name.Cells[1])
	}
	// original untouched
	if ReportNulls(tbl)["Price"] != 1 {
		t.Fatalf("FillNulls mutated its input")
	}
	if got := MissingColumns(tbl); len(got) != 2 || got[0].Column != "Price" {
		t.Fatalf("missing columns = %v", got)
	}
}

func TestFillNullsWithCustomText(t *testing.T) {
	tbl := mustTable(t, []string{"Empty"}, []string{""}, []string{"NA"})
	filled := FillNullsWith(tbl, "n/a-filled")
	c, _ := filled.Column("Empty")
	if c.Kind != KindText || c.Cells[0] != "n/a-filled" || c.Cells[1] != "n/a-filled" {
		t.Fatalf("filled = %+v", c)
	}
}

func TestDetectAndSelectPriceColumn(t *testing.T) {
	tbl := mustTable(t, []string{"Unit_Price", "Pricing_Notes", "qty", "PRICE_text"},
		[]string{"1.5", "cheap", "3", "x"},
		[]string{"2.5", "dear", "4", "y"},
	)
	got := DetectPriceColumns(tbl)
	want := []string{"Unit_Price", "Pricing_Notes", "PRICE_text"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("candidates = %v, want %v", got, want)
	}
	if sel, err := SelectPriceColumn(tbl, ""); err != nil || sel != "Unit_Price" {
		t.Fatalf("default selection = %q, %v", sel, err)
	}
	if _, err := SelectPriceColumn(tbl, "qty"); !errors.Is(err, ErrNotPriceColumn) {
		t.Fatalf("qty err = %v", err)
	}
	if _, err := SelectPriceColumn(tbl, "Pricing_Notes"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("text err = %v", err)
	}
	none := mustTable(t, []string{"a"}, []string{"1"})
	if _, err := SelectPriceColumn(none, ""); !errors.Is(err, ErrNoPriceColumn) {
		t.Fatalf("none err = %v", err)
	}
	empty := mustTable(t, []string{"price"}, []string{""})
	if _, err := SelectPriceColumn(empty, ""); !errors.Is(err, ErrEmptyColumn) {
		t.Fatalf("empty err = %v", err)
	}
}

func TestFilterInclusive(t *testing.T) {
	tbl := mustTable(t, []string{"price", "name"},
		[]string{"5", "a"},
		[]string{"10", "b"},
		[]string{"", "c"},
		[]string{"10", "d"},
		[]string{"15", "e"},
	)
	out, err := Filter(tbl, "price", 10, 10)
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	if out.Rows() != 2 {
		t.Fatalf("rows = %d, want 2", out.Rows())
	}
	name, _ := out.Column("name")
	if !reflect.DeepEqual(name.Cells, []string{"b", "d"}) {
		t.Fatalf("names = %v", name.Cells)
	}
	all, _ := Filter(tbl, "price", 5, 15)
	if all.Rows() != 4 {
		t.Fatalf("full range rows = %d, want 4 (null excluded)", all.Rows())
	}
}

func TestFilterErrors(t *testing.T) {
	tbl := mustTable(t, []string{"price", "name"}, []string{"1", "a"})
	cases := []struct {
		col    string
		lo, hi float64
		want   error
	}{
		{"price", 2, 1, ErrInvalidRange},
		{"nope", 0, 1, ErrUnknownColumn},
		{"name", 0, 1, ErrNotNumeric},
	}
	for _, tc := range cases {
		if _, err := Filter(tbl, tc.col, tc.lo, tc.hi); !errors.Is(err, tc.want) {
			t.Errorf("Filter(%s, %v, %v) err = %v, want %v", tc.col, tc.lo, tc.hi, err, tc.want)
		}
	}
}

func TestRange(t *testing.T) {
	tbl := mustTable(t, []string{"price"}, []string{"3"}, []string{""}, []string{"-1.5"}, []string{"7"})
	lo, hi, err := Range(tbl, "price")
	if err != nil || lo != -1.5 || hi != 7 {
		t.Fatalf("range = %v..%v, %v", lo, hi, err)
	}
}

func TestExportRoundTrip(t *testing.T) {
	tbl := mustTable(t, []string{"price", "note", "", "price"},
		[]string{"10", "has, comma", "x", "1"},
		[]string{"", "", "", "2"},
		[]string{"30", "quote \"q\"", "z", ""},
	)
	filled := FillNulls(tbl)
	data, err := Export(filled)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(string(data), "price,note,Unnamed: 2,price.1\n") {
		t.Fatalf("header line = %q", strings.SplitN(string(data), "\n", 2)[0])
	}
	back := parseCSV(t, data)
	if !reflect.DeepEqual(back.Names(), filled.Names()) {
		t.Fatalf("names = %v, want %v", back.Names(), filled.Names())
	}
	for j, c := range filled.Columns {
		bc := back.Columns[j]
		if bc.Kind != c.Kind {
			t.Fatalf("column %s kind %s != %s", c.Name, bc.Kind, c.Kind)
		}
		if !reflect.DeepEqual(bc.Cells, c.Cells) || !reflect.DeepEqual(bc.Nulls, c.Nulls) {
			t.Fatalf("column %s cells %v != %v", c.Name, bc.Cells, c.Cells)
		}
	}
}

func TestExportWritesNullsEmpty(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"}, []string{"NA", "x"})
	data, err := Export(tbl)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if string(data) != "a,b\n,x\n" {
		t.Fatalf("export = %q", data)
	}
}

func TestMedian(t *testing.T) {
	if got := Median([]float64{10, math.NaN(), 30}); got != 20 {
		t.Fatalf("median = %v", got)
	}
	if got := Median([]float64{4, 1, 3, 2}); got != 2.5 {
		t.Fatalf("even median = %v", got)
	}
	if got := Median(nil); !math.IsNaN(got) {
		t.Fatalf("empty median = %v", got)
	}
}

func TestBinsAutoRule(t *testing.T) {
	h := Bins([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0)
	if len(h.Counts) != 5 || len(h.Edges) != 6 {
		t.Fatalf("bins = %d, edges = %d", len(h.Counts), len(h.Edges))
	}
	for i, c := range h.Counts {
		if c != 2 {
			t.Fatalf("count[%d] = %d, want 2", i, c)
		}
	}
	if h.Edges[0] != 1 || h.Edges[5] != 10 {
		t.Fatalf("edges = %v", h.Edges)
	}
	single := Bins([]float64{5, 5, math.NaN()}, 0)
	if !reflect.DeepEqual(single.Edges, []float64{4.5, 5.5}) || !reflect.DeepEqual(single.Counts, []int{2}) {
		t.Fatalf("single = %+v", single)
	}
	capped := Bins([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 3)
	if len(capped.Counts) != 3 {
		t.Fatalf("capped bins = %d", len(capped.Counts))
	}
}

func TestBoxStats(t *testing.T) {
	b, ok := Box([]float64{1, 2, 3, 4, 100})
	if !ok {
		t.Fatalf("Box returned !ok")
	}
	if b.Q1 != 2 || b.Median != 3 || b.Q3 != 4 {
		t.Fatalf("quartiles = %+v", b)
	}
	if b.LowWhisker != 1 || b.HighWhisker != 4 {
		t.Fatalf("whiskers = %v..%v", b.LowWhisker, b.HighWhisker)
	}
	if !reflect.DeepEqual(b.Outliers, []float64{100}) {
		t.Fatalf("outliers = %v", b.Outliers)
	}
	if _, ok := Box([]float64{math.NaN()}); ok {
		t.Fatalf("Box of no values should be !ok")
	}
}

func TestKDESymmetricAndDegenerate(t *testing.T) {
	d := KDE([]float64{-1, 1}, []float64{-0.5, 0.5, 0})
	if len(d) != 3 {
		t.Fatalf("len = %d", len(d))
	}
	if math.Abs(d[0]-d[1]) > 1e-12 || d[2] <= 0 {
		t.Fatalf("density = %v", d)
	}
	if KDE([]float64{2, 2, 2}, []float64{2}) != nil {
		t.Fatalf("constant sample should have no KDE")
	}
	if KDE([]float64{2}, []float64{2}) != nil {
		t.Fatalf("single value should have no KDE")
	}
}

func TestCorrelations(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b", "label", "c", "d"},
		[]string{"1", "2", "x", "3", "5"},
		[]string{"2", "4", "y", "2", "5"},
		[]string{"3", "6", "z", "1", "5"},
	)
	m, err := Correlations(tbl)
	if err != nil {
		t.Fatalf("Correlations: %v", err)
	}
	if !reflect.DeepEqual(m.Columns, []string{"a", "b", "c", "d"}) {
		t.Fatalf("columns = %v", m.Columns)
	}
	if m.Values[0][1] != 1 || m.Values[1][0] != 1 {
		t.Fatalf("r(a,b) = %v", m.Values[0][1])
	}
	if m.Values[0][2] != -1 {
		t.Fatalf("r(a,c) = %v", m.Values[0][2])
	}
	if m.Values[0][0] != 1 {
		t.Fatalf("diagonal = %v", m.Values[0][0])
	}
	if !math.IsNaN(m.Values[0][3]) || !math.IsNaN(m.Values[3][3]) {
		t.Fatalf("constant column should be NaN: %v", m.Values[3])
	}
	text := mustTable(t, []string{"label"}, []string{"x"})
	if _, err := Correlations(text); !errors.Is(err, ErrNoNumericColumns) {
		t.Fatalf("err = %v", err)
	}
}

func TestGroupMeans(t *testing.T) {
	tbl := mustTable(t, []string{"product", "price"},
		[]string{"A", "10"},
		[]string{"B", "50"},
		[]string{"A", "30"},
		[]string{"", "40"},
		[]string{"B", ""},
		[]string{"C", ""},
	)
	got, err := GroupMeans(tbl, "product", "price", 0)
	if err != nil {
		t.Fatalf("GroupMeans: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("groups = %+v", got)
	}
	if got[0].Key != "B" || got[0].Mean != 50 || got[1].Key != "A" || got[1].Mean != 20 {
		t.Fatalf("order = %+v", got)
	}
	if got[2].Key != "C" || !math.IsNaN(got[2].Mean) {
		t.Fatalf("empty group = %+v", got[2])
	}
	top, _ := GroupMeans(tbl, "product", "price", 1)
	if len(top) != 1 || top[0].Key != "B" {
		t.Fatalf("top = %+v", top)
	}
}

func TestSummarizeMarkdown(t *testing.T) {
	tbl := mustTable(t, []string{"product", "Price", "qty"},
		[]string{"A", "10", "1"},
		[]string{"B", "", "2"},
		[]string{"A", "30", "3"},
	)
	rep := Summarize(tbl, DefaultOptions())
	md := rep.Markdown()
	for _, want := range []string{
		"[DATASET SUMMARY]",
		"File: test.csv",
		"Rows: 3",
		"[SCHEMA]",
		"- Price: numeric (non-null 2, missing 1",
		"- product: text",
		"[PRICE COLUMNS]",
		"[AVERAGE PRICE BY PRODUCT]",
		"[CORRELATIONS]",
		"[HEAD]",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestHead(t *testing.T) {
	tbl := mustTable(t, []string{"a", "b"},
		[]string{"1", "x"},
		[]string{"NA", "y"},
		[]string{"3", "z"},
	)
	got := tbl.Head(2)
	want := [][]string{{"1", "x"}, {"", "y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Head(2) = %v, want %v", got, want)
	}
	if n := len(tbl.Head(10)); n != 3 {
		t.Fatalf("Head(10) returned %d rows", n)
	}
	if n := len(tbl.Head(-1)); n != 3 {
		t.Fatalf("Head(-1) returned %d rows", n)
	}
	if n := len(tbl.Head(0)); n != 0 {
		t.Fatalf("Head(0) returned %d rows", n)
	}
}

func TestInfiniteSpellingsAreText(t *testing.T) {
	tbl := mustTable(t, []string{"Price", "qty"},
		[]string{"1", "1"},
		[]string{"2", "Nan"},
		[]string{"inf", "3"},
		[]string{"-Infinity", "4"},
	)
	numeric, text := ClassifyColumns(tbl)
	if len(numeric) != 0 || !reflect.DeepEqual(text, []string{"Price", "qty"}) {
		t.Fatalf("numeric = %v, text = %v", numeric, text)
	}
	if _, err := SelectPriceColumn(tbl, ""); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("select err = %v", err)
	}
	if _, _, err := Range(tbl, "Price"); !errors.Is(err, ErrNotNumeric) {
		t.Fatalf("range err = %v", err)
	}
	for _, s := range []string{"inf", "+Inf", "-inf", "Infinity", "NAN"} {
		if _, ok := parseNumeric(s, DefaultOptions()); ok {
			t.Fatalf("parseNumeric(%q) accepted a non-finite value", s)
		}
	}
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 100)
	tbl := mustTable(t, []string{"note"}, []string{long})
	md := Summarize(tbl, DefaultOptions()).Markdown()
	want := strings.Repeat("é", 77) + "..."
	if !strings.Contains(md, want) {
		t.Fatalf("truncated sample missing:\n%s", md)
	}
	if !utf8.ValidString(md) {
		t.Fatalf("markdown is not valid UTF-8")
	}
	if got := truncate("short", 80); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
}
