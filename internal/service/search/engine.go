package search

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// ErrMappingRange is returned when a mapped column lies outside the grid.
var ErrMappingRange = errors.New("column mapping out of range")

// matchFields are the columns a query is matched against.
var matchFields = []models.Field{models.FieldName, models.FieldCode, models.FieldArticle}

// readFields are the columns read from the grid. Purchase is always derived.
var readFields = []models.Field{models.FieldName, models.FieldProfit, models.FieldPrice, models.FieldCode, models.FieldArticle}

// Outcome is the result of one search.
type Outcome struct {
	Result models.SearchResult
	// Matches holds the grid rows of Result.Rows, in order.
	Matches []int
	// Resolved is set when a non-empty query narrowed the table to one row.
	Resolved *models.ResolvedItem
}

// Engine filters an accounting table and formats the matched rows.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Search filters every row of table by query. On ErrMappingRange the
// outcome still carries the unfiltered table together with a warning.
func (e *Engine) Search(table *models.AccountingTable, query string) (Outcome, error) {
	query = strings.TrimSpace(query)

	all := allRows(table)
	matches, err := Filter(table, all, query)
	if err != nil {
		e.logger.Warn("search fell back to the unfiltered table", zap.String("query", query), zap.Error(err))
		return Outcome{
			Result: models.SearchResult{
				Query:   query,
				Rows:    Rows(table, all),
				Total:   len(all),
				Warning: err.Error(),
			},
			Matches: all,
		}, err
	}

	out := Outcome{
		Result: models.SearchResult{
			Query: query,
			Rows:  Rows(table, matches),
			Total: len(matches),
		},
		Matches: matches,
	}
	if query != "" && len(matches) == 1 {
		out.Resolved = resolve(table, matches[0], query)
	}

	e.logger.Debug("search completed", zap.String("query", query), zap.Int("matches", len(matches)))
	return out, nil
}

// Filter returns the rows of subset whose Name, Code or Article contains
// query, case-insensitively, preserving order. An empty query keeps every
// row of subset.
func Filter(table *models.AccountingTable, subset []int, query string) ([]int, error) {
	if err := CheckMapping(table); err != nil {
		return nil, err
	}
	if query == "" {
		return append([]int(nil), subset...), nil
	}

	needle := strings.ToLower(query)
	var out []int
	for _, row := range subset {
		for _, f := range matchFields {
			if strings.Contains(strings.ToLower(text(table, row, f)), needle) {
				out = append(out, row)
				break
			}
		}
	}
	return out, nil
}

// CheckMapping verifies that every read column exists in the grid.
func CheckMapping(table *models.AccountingTable) error {
	if table == nil {
		return nil
	}
	width := table.Grid.Width()
	for _, f := range readFields {
		idx, ok := table.Mapping[f]
		if !ok {
			return fmt.Errorf("%w: %s not mapped", ErrMappingRange, f)
		}
		if idx < 0 || idx >= width {
			return fmt.Errorf("%w: %s column %d, grid has %d columns", ErrMappingRange, f, idx, width)
		}
	}
	return nil
}

// Rows formats the given grid rows for display.
func Rows(table *models.AccountingTable, rows []int) []models.AccountingRow {
	out := make([]models.AccountingRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.AccountingRow{
			Index:    row,
			Name:     text(table, row, models.FieldName),
			Purchase: Purchase(cell(table, row, models.FieldPrice), cell(table, row, models.FieldProfit)),
			Profit:   FormatNumber(cell(table, row, models.FieldProfit)),
			Price:    FormatNumber(cell(table, row, models.FieldPrice)),
			Code:     code(table, row),
			Article:  text(table, row, models.FieldArticle),
		})
	}
	return out
}

// FormatNumber rounds a numeric cell half-to-even and renders it without a
// decimal point. Anything that is not a number renders as "".
func FormatNumber(c models.Cell) string {
	v, ok := c.Float()
	if !ok {
		return ""
	}
	return decimal.NewFromFloat(v).RoundBank(0).String()
}

// Purchase computes Price - Profit, or "" when either is not numeric.
func Purchase(price, profit models.Cell) string {
	p, ok := price.Float()
	if !ok {
		return ""
	}
	pr, ok := profit.Float()
	if !ok {
		return ""
	}
	return decimal.NewFromFloat(p).Sub(decimal.NewFromFloat(pr)).RoundBank(0).String()
}

// StripCode drops the ".0" artifacts left by numeric coercion of codes. Only
// codes ending in ".0" are touched, and then every ".0" goes.
func StripCode(s string) string {
	if !strings.HasSuffix(s, ".0") {
		return s
	}
	return strings.ReplaceAll(s, ".0", "")
}

func resolve(table *models.AccountingTable, row int, query string) *models.ResolvedItem {
	item := &models.ResolvedItem{
		Profit: FormatNumber(cell(table, row, models.FieldProfit)),
		Price:  FormatNumber(cell(table, row, models.FieldPrice)),
		Label:  code(table, row),
	}
	// The label test ignores every ".0" in the code, not only a trailing one.
	bare := strings.ReplaceAll(text(table, row, models.FieldCode), ".0", "")
	if strings.Contains(strings.ToLower(bare), strings.ToLower(query)) {
		item.Label = text(table, row, models.FieldName)
	}
	return item
}

func allRows(table *models.AccountingTable) []int {
	rows := make([]int, table.Rows())
	for i := range rows {
		rows[i] = i
	}
	return rows
}

func cell(table *models.AccountingTable, row int, f models.Field) models.Cell {
	idx, ok := table.Mapping[f]
	if !ok {
		return models.EmptyCell()
	}
	return table.Grid.At(row, idx)
}

func text(table *models.AccountingTable, row int, f models.Field) string {
	return cell(table, row, f).String()
}

func code(table *models.AccountingTable, row int) string {
	return StripCode(text(table, row, models.FieldCode))
}
