package models

import "time"

// Field names one of the logical accounting columns.
type Field string

const (
	FieldName     Field = "Name"
	FieldPurchase Field = "Purchase"
	FieldProfit   Field = "Profit"
	FieldPrice    Field = "Price"
	FieldCode     Field = "Code"
	FieldArticle  Field = "Article"
)

// Fields lists the logical fields in display order.
var Fields = []Field{FieldName, FieldPurchase, FieldProfit, FieldPrice, FieldCode, FieldArticle}

// ColumnMapping maps each logical field to a zero-based raw column index.
// Purchase is kept for the mapping editor but never read from the grid.
type ColumnMapping map[Field]int

// Clone returns an independent copy of the mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	out := make(ColumnMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Missing returns the fields absent from the mapping.
func (m ColumnMapping) Missing() []Field {
	var missing []Field
	for _, f := range Fields {
		if _, ok := m[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// AccountingTable is a loaded accounting grid interpreted through a mapping.
type AccountingTable struct {
	LoadID   string
	Source   string
	LoadedAt time.Time
	Grid     *RawGrid
	Mapping  ColumnMapping
}

// Rows returns the number of data rows.
func (t *AccountingTable) Rows() int {
	if t == nil {
		return 0
	}
	return t.Grid.Height()
}

// WithMapping returns a copy of the table using a different mapping. The grid
// itself is shared since it is immutable.
func (t *AccountingTable) WithMapping(m ColumnMapping) *AccountingTable {
	cp := *t
	cp.Mapping = m.Clone()
	return &cp
}

// AccountingRow is the formatted display view of one accounting record.
type AccountingRow struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Purchase string `json:"purchase"`
	Profit   string `json:"profit"`
	Price    string `json:"price"`
	Code     string `json:"code"`
	Article  string `json:"article"`
}
