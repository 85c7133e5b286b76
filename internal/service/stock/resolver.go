package stock

import (
	"strings"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

// DisplayColumns is the number of columns availability is grouped into.
const DisplayColumns = 3

// Resolve finds the stock record of a selected accounting row. An exact
// trimmed name match wins; otherwise a non-empty article is used, but only
// when exactly one record carries it.
func Resolve(table *models.StockTable, name, article string) (*models.StockRecord, bool) {
	if table == nil {
		return nil, false
	}

	if name = strings.TrimSpace(name); name != "" {
		for i := range table.Records {
			if table.Records[i].TrimmedName() == name {
				return &table.Records[i], true
			}
		}
	}

	article = strings.TrimSpace(article)
	if article == "" {
		return nil, false
	}

	var match *models.StockRecord
	for i := range table.Records {
		if table.Records[i].TrimmedArticle() != article {
			continue
		}
		if match != nil {
			return nil, false
		}
		match = &table.Records[i]
	}
	return match, match != nil
}

// Available lists the stores holding the record, in store order, chunked
// into DisplayColumns columns of ceil(n/DisplayColumns) entries.
func Available(table *models.StockTable, rec models.StockRecord) models.Availability {
	out := models.Availability{Name: rec.Name, Article: rec.Article}

	var in []models.StoreQuantity
	for i, store := range table.Stores {
		if q := rec.Quantity(i); q > 0 {
			in = append(in, models.StoreQuantity{Store: store, Quantity: q})
		}
	}
	if len(in) == 0 {
		return out
	}

	perCol := (len(in) + DisplayColumns - 1) / DisplayColumns
	out.Columns = make([][]models.StoreQuantity, DisplayColumns)
	for c := 0; c < DisplayColumns; c++ {
		lo := min(c*perCol, len(in))
		hi := min(lo+perCol, len(in))
		out.Columns[c] = in[lo:hi]
	}
	return out
}

// Lookup resolves a row and reports its availability status.
func Lookup(table *models.StockTable, name, article string) models.StockLookup {
	if table == nil {
		return models.StockLookup{Status: models.StockNotLoaded}
	}

	rec, ok := Resolve(table, name, article)
	if !ok {
		return models.StockLookup{Status: models.StockNotFound}
	}

	avail := Available(table, *rec)
	if avail.Empty() {
		return models.StockLookup{Status: models.StockOutOfStock, Availability: &avail}
	}
	return models.StockLookup{Status: models.StockAvailable, Availability: &avail}
}
