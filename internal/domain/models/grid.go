package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CellKind enumerates the value shapes a spreadsheet cell can hold.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellNumber
	CellText
)

// Cell is a single raw spreadsheet value. Parsers switch on Kind explicitly
// instead of relying on implicit coercion.
type Cell struct {
	Kind   CellKind
	Number float64
	Text   string
}

// EmptyCell returns a blank cell.
func EmptyCell() Cell { return Cell{Kind: CellEmpty} }

// NumberCell wraps a numeric value. NaN is stored as empty.
func NumberCell(v float64) Cell {
	if math.IsNaN(v) {
		return EmptyCell()
	}
	return Cell{Kind: CellNumber, Number: v}
}

// TextCell wraps a string value. The empty string is stored as empty.
func TextCell(s string) Cell {
	if s == "" {
		return EmptyCell()
	}
	return Cell{Kind: CellText, Text: s}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool { return c.Kind == CellEmpty }

// String renders the cell as display text. Empty cells render as "".
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Float coerces the cell to a number. Text is accepted when it parses as a
// float after trimming; empty cells are never numeric.
func (c Cell) Float() (float64, bool) {
	switch c.Kind {
	case CellNumber:
		return c.Number, true
	case CellText:
		v, err := strconv.ParseFloat(strings.TrimSpace(c.Text), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}

// RawGrid is a rectangular, header-less, 0-indexed cell matrix as read from a
// spreadsheet. It is never mutated after construction.
type RawGrid struct {
	rows  [][]Cell
	width int
}

// NewRawGrid builds a rectangular grid, padding short rows with empty cells.
func NewRawGrid(rows [][]Cell) *RawGrid {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	out := make([][]Cell, len(rows))
	for i, row := range rows {
		padded := make([]Cell, width)
		copy(padded, row)
		out[i] = padded
	}

	return &RawGrid{rows: out, width: width}
}

// GridFromValues converts loosely-typed values (as returned by decoders and
// the Sheets API) into a RawGrid.
func GridFromValues(values [][]interface{}) *RawGrid {
	rows := make([][]Cell, len(values))
	for i, row := range values {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = CellFromValue(v)
		}
		rows[i] = cells
	}
	return NewRawGrid(rows)
}

// CellFromValue classifies a single loosely-typed value.
func CellFromValue(v interface{}) Cell {
	switch val := v.(type) {
	case nil:
		return EmptyCell()
	case Cell:
		return val
	case float64:
		return NumberCell(val)
	case float32:
		return NumberCell(float64(val))
	case int:
		return NumberCell(float64(val))
	case int64:
		return NumberCell(float64(val))
	case bool:
		if val {
			return TextCell("True")
		}
		return TextCell("False")
	case string:
		return TextCell(val)
	default:
		return TextCell(fmt.Sprint(val))
	}
}

// Height returns the number of rows.
func (g *RawGrid) Height() int {
	if g == nil {
		return 0
	}
	return len(g.rows)
}

// Width returns the number of columns.
func (g *RawGrid) Width() int {
	if g == nil {
		return 0
	}
	return g.width
}

// At returns the cell at (row, col); out-of-range positions are empty.
func (g *RawGrid) At(row, col int) Cell {
	if g == nil || row < 0 || col < 0 || row >= len(g.rows) || col >= g.width {
		return EmptyCell()
	}
	return g.rows[row][col]
}

// Row returns a copy of the given row, or nil when out of range.
func (g *RawGrid) Row(row int) []Cell {
	if g == nil || row < 0 || row >= len(g.rows) {
		return nil
	}
	out := make([]Cell, g.width)
	copy(out, g.rows[row])
	return out
}

// NonEmptyCount counts the non-empty cells of a row.
func (g *RawGrid) NonEmptyCount(row int) int {
	count := 0
	for _, c := range g.Row(row) {
		if !c.IsEmpty() {
			count++
		}
	}
	return count
}

// FirstNonEmptyColumn returns the column of the first non-empty cell in a row.
func (g *RawGrid) FirstNonEmptyColumn(row int) (int, bool) {
	for col, c := range g.Row(row) {
		if !c.IsEmpty() {
			return col, true
		}
	}
	return 0, false
}
