package models

import (
	"strings"
	"time"
)

// StockRecord captures per-store quantities of one item. Quantities is
// aligned with the owning table's Stores slice.
type StockRecord struct {
	Article    string
	Name       string
	Quantities []int
}

// StockTable is the normalized stock-levels sheet.
type StockTable struct {
	LoadID   string
	Source   string
	LoadedAt time.Time
	Stores   []string
	Records  []StockRecord
}

// Quantity returns the quantity of the record at the given store position.
func (r StockRecord) Quantity(store int) int {
	if store < 0 || store >= len(r.Quantities) {
		return 0
	}
	return r.Quantities[store]
}

// TrimmedName returns the name with surrounding whitespace removed.
func (r StockRecord) TrimmedName() string { return strings.TrimSpace(r.Name) }

// TrimmedArticle returns the article with surrounding whitespace removed.
func (r StockRecord) TrimmedArticle() string { return strings.TrimSpace(r.Article) }

// StoreQuantity is one store with a positive quantity.
type StoreQuantity struct {
	Store    string `json:"store"`
	Quantity int    `json:"quantity"`
}

// Availability groups in-stock stores into display columns.
type Availability struct {
	Name    string            `json:"name"`
	Article string            `json:"article"`
	Columns [][]StoreQuantity `json:"columns"`
}

// Empty reports whether no store holds the item.
func (a Availability) Empty() bool {
	for _, col := range a.Columns {
		if len(col) > 0 {
			return false
		}
	}
	return true
}
