package stock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// ErrLayoutNotFound is returned when the store header row cannot be located.
var ErrLayoutNotFound = errors.New("stock layout not found")

// minHeaderCells is the number of non-empty cells a header row must exceed.
const minHeaderCells = 3

// Options configures header detection.
type Options struct {
	// Markers are lower-case substrings identifying a store name.
	Markers        []string
	DefaultStore   string
	TotalMarker    string
	HeaderScanRows int
}

// Parser normalizes a stock-levels grid.
type Parser struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

// NewParser builds a Parser.
func NewParser(opts Options, logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.HeaderScanRows <= 0 {
		opts.HeaderScanRows = 15
	}
	markers := make([]string, 0, len(opts.Markers))
	for _, m := range opts.Markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			markers = append(markers, m)
		}
	}
	opts.Markers = markers
	opts.TotalMarker = strings.ToLower(opts.TotalMarker)

	return &Parser{opts: opts, logger: logger, now: time.Now}
}

// FindHeaderRow returns the first row within the scan window that has more
// than three values and a text cell containing a store marker.
func (p *Parser) FindHeaderRow(grid *models.RawGrid) (int, bool) {
	rows := min(p.opts.HeaderScanRows, grid.Height())
	for row := 0; row < rows; row++ {
		if grid.NonEmptyCount(row) <= minHeaderCells {
			continue
		}
		for _, c := range grid.Row(row) {
			if c.Kind == models.CellText && p.hasMarker(c.Text) {
				return row, true
			}
		}
	}
	return 0, false
}

func (p *Parser) hasMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range p.opts.Markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Parse builds the normalized stock table from grid.
func (p *Parser) Parse(grid *models.RawGrid, source string) (*models.StockTable, error) {
	header, ok := p.FindHeaderRow(grid)
	if !ok {
		return nil, fmt.Errorf("%w: no store header row in first %d rows", ErrLayoutNotFound, p.opts.HeaderScanRows)
	}

	dataStart := header + 2
	if dataStart >= grid.Height() {
		return nil, fmt.Errorf("%w: header at row %d leaves no data rows", ErrLayoutNotFound, header)
	}

	articleCol, _ := grid.FirstNonEmptyColumn(dataStart)
	nameCol := articleCol + 1
	storeStart := nameCol + 1

	var (
		stores  []string
		columns []int
	)
	for col := storeStart; col < grid.Width(); col++ {
		name := strings.TrimSpace(grid.At(header, col).String())
		switch {
		case name == "" && col == storeStart:
			name = p.opts.DefaultStore
		case name == "":
			continue
		}
		if strings.ToLower(name) == p.opts.TotalMarker {
			continue
		}
		stores = append(stores, name)
		columns = append(columns, col)
	}

	var records []models.StockRecord
	for row := dataStart; row < grid.Height(); row++ {
		article := grid.At(row, articleCol)
		name := grid.At(row, nameCol)
		if article.IsEmpty() && name.IsEmpty() {
			continue
		}

		qty := make([]int, len(columns))
		for i, col := range columns {
			qty[i] = quantity(grid.At(row, col))
		}
		records = append(records, models.StockRecord{
			Article:    article.String(),
			Name:       name.String(),
			Quantities: qty,
		})
	}

	p.logger.Info("stock layout detected",
		zap.String("source", source),
		zap.Int("header_row", header),
		zap.Int("data_start_row", dataStart),
		zap.Int("article_column", articleCol),
		zap.Int("stores", len(stores)),
		zap.Int("records", len(records)))

	return &models.StockTable{
		LoadID:   uuid.NewString(),
		Source:   source,
		LoadedAt: p.now(),
		Stores:   stores,
		Records:  records,
	}, nil
}

// quantity truncates a numeric cell to an integer; anything else is 0.
func quantity(c models.Cell) int {
	v, ok := c.Float()
	if !ok {
		return 0
	}
	return int(v)
}
