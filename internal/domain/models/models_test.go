package models

import (
	"math"
	"testing"
	"time"
)

func TestCellFromValue(t *testing.T) {
	tests := []struct {
		in   interface{}
		kind CellKind
		text string
	}{
		{nil, CellEmpty, ""},
		{"", CellEmpty, ""},
		{math.NaN(), CellEmpty, ""},
		{2002.0, CellNumber, "2002"},
		{12.5, CellNumber, "12.5"},
		{7, CellNumber, "7"},
		{true, CellText, "True"},
		{"Віджет", CellText, "Віджет"},
	}

	for _, tt := range tests {
		c := CellFromValue(tt.in)
		if c.Kind != tt.kind || c.String() != tt.text {
			t.Errorf("CellFromValue(%v) = %+v (%q), want kind %d text %q", tt.in, c, c.String(), tt.kind, tt.text)
		}
	}
}

func TestCellFloat(t *testing.T) {
	if v, ok := TextCell(" 40.5 ").Float(); !ok || v != 40.5 {
		t.Errorf("text float = %v, %v", v, ok)
	}
	if _, ok := TextCell("abc").Float(); ok {
		t.Error("non-numeric text must not be numeric")
	}
	if _, ok := EmptyCell().Float(); ok {
		t.Error("empty cell must not be numeric")
	}
}

func TestRawGridPadding(t *testing.T) {
	g := NewRawGrid([][]Cell{
		{TextCell("a")},
		{EmptyCell(), EmptyCell(), NumberCell(3)},
	})

	if g.Height() != 2 || g.Width() != 3 {
		t.Fatalf("size = %dx%d", g.Height(), g.Width())
	}
	if !g.At(0, 2).IsEmpty() {
		t.Error("short row should be padded with empty cells")
	}
	if !g.At(5, 0).IsEmpty() || !g.At(0, -1).IsEmpty() {
		t.Error("out of range cells should be empty")
	}
	if col, ok := g.FirstNonEmptyColumn(1); !ok || col != 2 {
		t.Errorf("FirstNonEmptyColumn = %d, %v", col, ok)
	}
	if g.NonEmptyCount(1) != 1 {
		t.Errorf("NonEmptyCount = %d", g.NonEmptyCount(1))
	}
	if g.Row(9) != nil {
		t.Error("Row out of range should be nil")
	}

	var nilGrid *RawGrid
	if nilGrid.Height() != 0 || !nilGrid.At(0, 0).IsEmpty() {
		t.Error("nil grid should behave as empty")
	}
}

func TestColumnMappingMissing(t *testing.T) {
	m := ColumnMapping{FieldName: 1, FieldPrice: 6}
	missing := m.Missing()
	if len(missing) != 4 || missing[0] != FieldPurchase {
		t.Errorf("Missing = %v", missing)
	}

	cp := m.Clone()
	cp[FieldName] = 9
	if m[FieldName] != 1 {
		t.Error("Clone must not share storage")
	}
}

func TestParseHistoryEntry(t *testing.T) {
	e, err := ParseHistoryEntry("2024-03-10 09:30 - віджет - синій", time.UTC)
	if err != nil {
		t.Fatalf("ParseHistoryEntry: %v", err)
	}
	if e.Message != "віджет - синій" || e.Timestamp.Hour() != 9 {
		t.Errorf("entry = %+v", e)
	}
	if e.String() != "2024-03-10 09:30 - віджет - синій" {
		t.Errorf("String = %q", e.String())
	}

	for _, bad := range []string{"no separator", "10/03/2024 - x"} {
		if _, err := ParseHistoryEntry(bad, time.UTC); err == nil {
			t.Errorf("ParseHistoryEntry(%q) should fail", bad)
		}
	}
}

func TestHistoryLine(t *testing.T) {
	ts := time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
	msg := SearchMessage("2002", &ResolvedItem{Profit: "10", Price: "50", Label: "Gadget"})
	if msg != "2002 ➔ 10 ➔ 50 ➔ Gadget" {
		t.Fatalf("SearchMessage = %q", msg)
	}

	line := HistoryEntry{Timestamp: ts, Message: msg}.Line()
	if !line.Resolved || line.Query != "2002" || line.Profit != "10" || line.Price != "50" {
		t.Errorf("line = %+v", line)
	}
	if len(line.Extra) != 1 || line.Extra[0] != "Gadget" || line.Time != "09:30" {
		t.Errorf("line = %+v", line)
	}

	plain := HistoryEntry{Timestamp: ts, Message: "History cleared"}.Line()
	if plain.Resolved || plain.Query != "History cleared" {
		t.Errorf("plain = %+v", plain)
	}
}
