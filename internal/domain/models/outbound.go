package models

// LoadRequest asks the bridge to load a spreadsheet from an explicit path.
type LoadRequest struct {
	Path string `json:"path" binding:"required"`
}

// QueryRequest carries the current text of the search box.
type QueryRequest struct {
	Text string `json:"text"`
}

// SearchResult is the outcome of one search over the accounting table.
type SearchResult struct {
	Query string          `json:"query"`
	Rows  []AccountingRow `json:"rows"`
	Total int             `json:"total"`
	// Warning carries a recovered failure (e.g. a mapping out of range) that
	// made the search fall back to the unfiltered table.
	Warning string `json:"warning,omitempty"`
}

// StockStatus describes the outcome of a stock lookup.
type StockStatus string

const (
	StockNotLoaded  StockStatus = "not_loaded"
	StockNotFound   StockStatus = "not_found"
	StockOutOfStock StockStatus = "out_of_stock"
	StockAvailable  StockStatus = "available"
)

// StockLookup is the response to a stock lookup for a selected row.
type StockLookup struct {
	Status       StockStatus   `json:"status"`
	Availability *Availability `json:"availability,omitempty"`
}

// FileStatus summarizes one installed table.
type FileStatus struct {
	Loaded   bool   `json:"loaded"`
	File     string `json:"file,omitempty"`
	LoadID   string `json:"load_id,omitempty"`
	Rows     int    `json:"rows"`
	Stores   int    `json:"stores,omitempty"`
	LoadedAt string `json:"loaded_at,omitempty"`
}

// SessionStatus summarizes the session for the UI.
type SessionStatus struct {
	Accounting FileStatus `json:"accounting"`
	Stock      FileStatus `json:"stock"`
	History    int        `json:"history"`
}

// HistoryView is the history as exposed to the UI.
type HistoryView struct {
	Entries []string      `json:"entries"`
	Lines   []HistoryLine `json:"lines"`
}
