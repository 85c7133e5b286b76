package accounting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// ErrInvalidMapping is returned for a column mapping that cannot be applied.
var ErrInvalidMapping = errors.New("invalid column mapping")

// MaxColumnIndex is the largest column index a manual mapping may use.
const MaxColumnIndex = 30

// Offsets from the start column, fixed by the export format.
var offsets = map[models.Field]int{
	models.FieldName:     0,
	models.FieldPurchase: 1,
	models.FieldProfit:   4,
	models.FieldPrice:    5,
	models.FieldArticle:  6,
	models.FieldCode:     7,
}

// Parser turns a raw accounting grid into an AccountingTable.
type Parser struct {
	scanRows int
	logger   *zap.Logger
	now      func() time.Time
}

// NewParser builds a Parser inspecting scanRows rows when looking for the
// start column.
func NewParser(scanRows int, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scanRows <= 0 {
		scanRows = 10
	}
	return &Parser{scanRows: scanRows, logger: logger, now: time.Now}
}

// DetectStartColumn returns the first column, left to right, that has a
// value in its first scanRows rows. A grid without any such column starts
// at 0.
func DetectStartColumn(grid *models.RawGrid, scanRows int) int {
	rows := min(scanRows, grid.Height())
	for col := 0; col < grid.Width(); col++ {
		for row := 0; row < rows; row++ {
			if !grid.At(row, col).IsEmpty() {
				return col
			}
		}
	}
	return 0
}

// BuildMapping derives the column mapping for a given start column.
func BuildMapping(start int) models.ColumnMapping {
	m := make(models.ColumnMapping, len(offsets))
	for field, off := range offsets {
		m[field] = start + off
	}
	return m
}

// ValidateMapping checks a user-edited mapping: every field present and every
// index within 0..MaxColumnIndex.
func ValidateMapping(m models.ColumnMapping) error {
	if missing := m.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing fields %v", ErrInvalidMapping, missing)
	}
	for _, f := range models.Fields {
		if idx := m[f]; idx < 0 || idx > MaxColumnIndex {
			return fmt.Errorf("%w: %s column %d outside 0..%d", ErrInvalidMapping, f, idx, MaxColumnIndex)
		}
	}
	return nil
}

// Parse detects the layout of grid and returns the installed table.
func (p *Parser) Parse(grid *models.RawGrid, source string) (*models.AccountingTable, error) {
	if grid == nil {
		return nil, fmt.Errorf("%w: no grid", ErrInvalidMapping)
	}

	start := DetectStartColumn(grid, p.scanRows)
	mapping := BuildMapping(start)

	p.logger.Info("accounting layout detected",
		zap.String("source", source),
		zap.Int("start_column", start),
		zap.Int("rows", grid.Height()),
		zap.Int("cols", grid.Width()))

	return &models.AccountingTable{
		LoadID:   uuid.NewString(),
		Source:   source,
		LoadedAt: p.now(),
		Grid:     grid,
		Mapping:  mapping,
	}, nil
}
