package spreadsheet

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/extrame/xls"
	"github.com/thedatashed/xlsxreader"
	"github.com/xuri/excelize/v2"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// excelizeDecoder reads zipped OOXML workbooks (.xlsx/.xlsm).
type excelizeDecoder struct{}

func (excelizeDecoder) Name() string { return "excelize" }

func (excelizeDecoder) Decode(path string) (*models.RawGrid, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	out := make([][]models.Cell, len(rows))
	for r, row := range rows {
		cells := make([]models.Cell, len(row))
		for c, value := range row {
			if value == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(sheet, axis)
			if err != nil {
				typ = excelize.CellTypeUnset
			}
			cells[c] = classifyExcelize(value, typ)
		}
		out[r] = cells
	}

	return models.NewRawGrid(out), nil
}

func classifyExcelize(value string, typ excelize.CellType) models.Cell {
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString:
		return models.TextCell(value)
	case excelize.CellTypeBool:
		return models.CellFromValue(value == "1" || strings.EqualFold(value, "true"))
	default:
		return parseLoose(value)
	}
}

// xlsxreaderDecoder streams OOXML workbooks; it tolerates some files that
// excelize rejects.
type xlsxreaderDecoder struct{}

func (xlsxreaderDecoder) Name() string { return "xlsxreader" }

func (xlsxreaderDecoder) Decode(path string) (*models.RawGrid, error) {
	xl, err := xlsxreader.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = xl.Close() }()

	if len(xl.Sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}

	var rows [][]models.Cell
	for row := range xl.ReadRows(xl.Sheets[0]) {
		if row.Error != nil {
			return nil, fmt.Errorf("read row: %w", row.Error)
		}

		// Rows are sparse; Index is 1-based.
		idx := row.Index - 1
		if idx < 0 {
			continue
		}
		for len(rows) <= idx {
			rows = append(rows, nil)
		}

		cells := rows[idx]
		for _, cell := range row.Cells {
			col := cell.ColumnIndex()
			for len(cells) <= col {
				cells = append(cells, models.EmptyCell())
			}
			if cell.Type == xlsxreader.TypeNumerical {
				cells[col] = parseLoose(cell.Value)
			} else {
				cells[col] = models.TextCell(cell.Value)
			}
		}
		rows[idx] = cells
	}

	return models.NewRawGrid(rows), nil
}

// xlsDecoder reads legacy BIFF workbooks (.xls).
type xlsDecoder struct{}

func (xlsDecoder) Name() string { return "xls" }

func (xlsDecoder) Decode(path string) (*models.RawGrid, error) {
	// xls.Open never closes its file; the sheet is read lazily, so f stays
	// open until the rows are copied out.
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	wb, err := xls.OpenReader(f, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("workbook has no sheets")
	}

	rows := make([][]models.Cell, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			continue
		}
		last := row.LastCol()
		cells := make([]models.Cell, last)
		for c := row.FirstCol(); c < last; c++ {
			cells[c] = parseLoose(row.Col(c))
		}
		rows[r] = cells
	}

	return models.NewRawGrid(rows), nil
}

// parseLoose turns decoder text into a number when it parses as one.
func parseLoose(value string) models.Cell {
	if value == "" {
		return models.EmptyCell()
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return models.NumberCell(f)
	}
	return models.TextCell(value)
}
