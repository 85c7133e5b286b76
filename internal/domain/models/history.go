package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	// HistoryTimeLayout is the timestamp prefix of a persisted history line.
	HistoryTimeLayout = "2006-01-02 15:04"
	historySeparator  = " - "
	// ResolvedSeparator joins the segments of a resolved search message.
	ResolvedSeparator = " ➔ "
)

// ResolvedItem is the single accounting row a search narrowed down to.
type ResolvedItem struct {
	Profit string
	Price  string
	// Label is the item name when the query matched inside the code cell,
	// otherwise the code.
	Label string
}

// HistoryEntry is one timestamped line of the search/action history.
type HistoryEntry struct {
	Timestamp time.Time
	Message   string
}

// String renders the entry in its persisted form.
func (e HistoryEntry) String() string {
	return e.Timestamp.Format(HistoryTimeLayout) + historySeparator + e.Message
}

// ParseHistoryEntry parses a persisted "YYYY-MM-DD HH:MM - message" line in
// the given location.
func ParseHistoryEntry(line string, loc *time.Location) (HistoryEntry, error) {
	ts, msg, ok := strings.Cut(line, historySeparator)
	if !ok {
		return HistoryEntry{}, fmt.Errorf("history entry %q has no timestamp separator", line)
	}
	t, err := time.ParseInLocation(HistoryTimeLayout, ts, loc)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("history entry timestamp %q: %w", ts, err)
	}
	return HistoryEntry{Timestamp: t, Message: msg}, nil
}

// SearchMessage builds the message logged for a search.
func SearchMessage(query string, resolved *ResolvedItem) string {
	if resolved == nil {
		return query
	}
	return strings.Join([]string{query, resolved.Profit, resolved.Price, resolved.Label}, ResolvedSeparator)
}

// HistoryLine is the display split of an entry.
type HistoryLine struct {
	Time     string   `json:"time"`
	Query    string   `json:"query"`
	Profit   string   `json:"profit,omitempty"`
	Price    string   `json:"price,omitempty"`
	Extra    []string `json:"extra,omitempty"`
	Resolved bool     `json:"resolved"`
}

// Line splits the entry message into display segments.
func (e HistoryEntry) Line() HistoryLine {
	line := HistoryLine{Time: e.Timestamp.Format("15:04")}
	if !strings.Contains(e.Message, "➔") {
		line.Query = e.Message
		return line
	}

	segs := strings.Split(e.Message, "➔")
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}

	line.Resolved = true
	line.Query = segs[0]
	if len(segs) > 1 {
		line.Profit = segs[1]
	}
	if len(segs) > 2 {
		line.Price = segs[2]
	}
	if len(segs) > 3 {
		line.Extra = segs[3:]
	}
	return line
}
