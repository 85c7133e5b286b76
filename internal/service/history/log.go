package history

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
)

const (
	// DefaultRetention is how long an entry survives.
	DefaultRetention = 48 * time.Hour
	// DefaultLimit caps the number of kept entries.
	DefaultLimit = 100
)

// Store persists serialized history lines.
type Store interface {
	Load() ([]string, error)
	Save(lines []string) error
}

// Log is the newest-first record of searches and actions.
type Log struct {
	mu        sync.Mutex
	entries   []models.HistoryEntry
	lastQuery *string

	retention time.Duration
	limit     int
	loc       *time.Location
	now       func() time.Time
	logger    *zap.Logger
}

// Option customizes a Log.
type Option func(*Log)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithLocation sets the zone persisted timestamps are read in.
func WithLocation(loc *time.Location) Option {
	return func(l *Log) { l.loc = loc }
}

// NewLog builds an empty Log.
func NewLog(logger *zap.Logger, opts ...Option) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Log{
		retention: DefaultRetention,
		limit:     DefaultLimit,
		loc:       time.Local,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RecordSearch logs a search unless query repeats the previous search.
// It reports whether an entry was added.
func (l *Log) RecordSearch(query string, resolved *models.ResolvedItem) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.lastQuery != nil && *l.lastQuery == query {
		return false
	}
	q := query
	l.lastQuery = &q
	l.push(models.SearchMessage(query, resolved))
	return true
}

// Note logs an action message. Actions never affect search de-duplication.
func (l *Log) Note(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.push(message)
}

func (l *Log) push(message string) {
	entry := models.HistoryEntry{Timestamp: l.now(), Message: message}
	l.entries = append([]models.HistoryEntry{entry}, l.entries...)
	if len(l.entries) > l.limit {
		l.entries = l.entries[:l.limit]
	}
}

// PurgeExpired drops entries older than the retention window and returns
// how many were removed.
func (l *Log) PurgeExpired() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.entries)
	l.entries = l.fresh(l.entries)
	return before - len(l.entries)
}

// fresh keeps the entries strictly newer than now minus the retention.
func (l *Log) fresh(entries []models.HistoryEntry) []models.HistoryEntry {
	cutoff := l.now().Add(-l.retention)
	out := make([]models.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.After(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Entries returns a copy of the entries, newest first.
func (l *Log) Entries() []models.HistoryEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.HistoryEntry(nil), l.entries...)
}

// Len returns the number of entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Serialize renders the unexpired entries in persisted form.
func (l *Log) Serialize() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	fresh := l.fresh(l.entries)
	out := make([]string, len(fresh))
	for i, e := range fresh {
		out[i] = e.String()
	}
	return out
}

// Deserialize replaces the entries with the unexpired persisted lines.
// Malformed lines are skipped.
func (l *Log) Deserialize(lines []string) {
	entries := make([]models.HistoryEntry, 0, len(lines))
	for _, line := range lines {
		e, err := models.ParseHistoryEntry(line, l.loc)
		if err != nil {
			l.logger.Warn("skip malformed history line", zap.String("line", line), zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entries = l.fresh(entries)
	if len(entries) > l.limit {
		entries = entries[:l.limit]
	}
	l.entries = entries
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// View returns the entries in persisted and display form.
func (l *Log) View() models.HistoryView {
	entries := l.Entries()
	view := models.HistoryView{
		Entries: make([]string, len(entries)),
		Lines:   make([]models.HistoryLine, len(entries)),
	}
	for i, e := range entries {
		view.Entries[i] = e.String()
		view.Lines[i] = e.Line()
	}
	return view
}

// LoadFrom replaces the entries with those persisted in store.
func (l *Log) LoadFrom(store Store) error {
	lines, err := store.Load()
	if err != nil {
		return err
	}
	l.Deserialize(lines)
	return nil
}

// SaveTo persists the unexpired entries into store.
func (l *Log) SaveTo(store Store) error {
	return store.Save(l.Serialize())
}
