package accounting

import (
	"errors"
	"testing"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

func gridWith(height, width int, cells map[[2]int]models.Cell) *models.RawGrid {
	rows := make([][]models.Cell, height)
	for r := range rows {
		rows[r] = make([]models.Cell, width)
	}
	for pos, c := range cells {
		rows[pos[0]][pos[1]] = c
	}
	return models.NewRawGrid(rows)
}

func TestDetectStartColumn(t *testing.T) {
	tests := []struct {
		name string
		grid *models.RawGrid
		want int
	}{
		{
			name: "first column with data",
			grid: gridWith(12, 6, map[[2]int]models.Cell{
				{3, 2}: models.TextCell("Widget"),
				{7, 4}: models.NumberCell(1),
			}),
			want: 2,
		},
		{
			name: "data below scan window is ignored",
			grid: gridWith(12, 6, map[[2]int]models.Cell{
				{11, 1}: models.TextCell("late"),
				{9, 3}:  models.NumberCell(5),
			}),
			want: 3,
		},
		{
			name: "all empty defaults to zero",
			grid: gridWith(10, 5, nil),
			want: 0,
		},
		{
			name: "fewer rows than the window",
			grid: gridWith(2, 3, map[[2]int]models.Cell{{1, 1}: models.TextCell("x")}),
			want: 1,
		},
		{
			name: "empty grid",
			grid: models.NewRawGrid(nil),
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectStartColumn(tt.grid, 10); got != tt.want {
				t.Errorf("DetectStartColumn = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildMapping(t *testing.T) {
	m := BuildMapping(2)
	want := map[models.Field]int{
		models.FieldName:     2,
		models.FieldPurchase: 3,
		models.FieldProfit:   6,
		models.FieldPrice:    7,
		models.FieldArticle:  8,
		models.FieldCode:     9,
	}
	if len(m) != len(want) {
		t.Fatalf("mapping has %d fields, want %d", len(m), len(want))
	}
	for f, idx := range want {
		if m[f] != idx {
			t.Errorf("%s = %d, want %d", f, m[f], idx)
		}
	}
}

func TestValidateMapping(t *testing.T) {
	if err := ValidateMapping(BuildMapping(0)); err != nil {
		t.Fatalf("default mapping rejected: %v", err)
	}

	outOfRange := BuildMapping(0)
	outOfRange[models.FieldCode] = 31

	negative := BuildMapping(0)
	negative[models.FieldName] = -1

	missing := BuildMapping(0)
	delete(missing, models.FieldArticle)

	for name, m := range map[string]models.ColumnMapping{
		"out of range": outOfRange,
		"negative":     negative,
		"missing":      missing,
	} {
		t.Run(name, func(t *testing.T) {
			if err := ValidateMapping(m); !errors.Is(err, ErrInvalidMapping) {
				t.Fatalf("ValidateMapping error = %v, want ErrInvalidMapping", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	grid := gridWith(3, 10, map[[2]int]models.Cell{
		{0, 1}: models.TextCell("Widget"),
	})

	table, err := NewParser(10, nil).Parse(grid, "Облік 01.03.24.xlsx")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if table.LoadID == "" {
		t.Error("LoadID should be stamped")
	}
	if table.Mapping[models.FieldName] != 1 || table.Mapping[models.FieldCode] != 8 {
		t.Errorf("mapping = %v", table.Mapping)
	}
	if table.Rows() != 3 {
		t.Errorf("Rows = %d, want 3", table.Rows())
	}
}
