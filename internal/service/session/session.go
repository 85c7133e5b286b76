package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/domain/models"
	"github.com/mamadbah2/oblik/internal/locator"
	"github.com/mamadbah2/oblik/internal/service/accounting"
	"github.com/mamadbah2/oblik/internal/service/history"
	"github.com/mamadbah2/oblik/internal/service/search"
	"github.com/mamadbah2/oblik/internal/service/stock"
)

// ErrNotLoaded is returned when an operation needs a table that has not been
// loaded yet.
var ErrNotLoaded = errors.New("table not loaded")

// GridLoader reads a spreadsheet into a raw grid.
type GridLoader interface {
	Load(ctx context.Context, path string) (*models.RawGrid, error)
}

// Config drives discovery and the interactive search.
type Config struct {
	SearchDirs         []string
	AccountingPatterns []string
	AccountingDate     *regexp.Regexp
	StockPatterns      []string
	Debounce           time.Duration
}

// Dependencies groups the collaborators of a Session.
type Dependencies struct {
	Loader     GridLoader
	Locator    *locator.Locator
	Accounting *accounting.Parser
	Stock      *stock.Parser
	Engine     *search.Engine
	History    *history.Log
	Store      history.Store
}

// Session holds the process-wide state: the active tables, the mapping, the
// latest result and the history. Tables are replaced wholesale, never
// mutated, so readers always see a complete table.
type Session struct {
	mu         sync.RWMutex
	accounting *models.AccountingTable
	stock      *models.StockTable
	latest     *models.SearchResult

	// Paths most recently picked by discovery, loaded or not.
	accountingAttempt string
	stockAttempt      string

	cfg       Config
	deps      Dependencies
	debouncer *Debouncer
	logger    *zap.Logger
}

// New wires a Session.
func New(cfg Config, deps Dependencies, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = time.Second
	}
	if deps.Engine == nil {
		deps.Engine = search.NewEngine(logger)
	}
	if deps.History == nil {
		deps.History = history.NewLog(logger)
	}

	return &Session{
		cfg:       cfg,
		deps:      deps,
		debouncer: NewDebouncer(cfg.Debounce),
		logger:    logger,
	}
}

// Start restores the history and auto-loads the newest source files.
func (s *Session) Start(ctx context.Context) {
	s.LoadHistory()
	s.AutoLoad(ctx)
}

// Close cancels any pending search and persists the history.
func (s *Session) Close() error {
	s.debouncer.Cancel()
	return s.SaveHistory()
}

// LoadAccounting installs the accounting file at path.
func (s *Session) LoadAccounting(ctx context.Context, path string) (models.FileStatus, error) {
	table, err := s.loadAccounting(ctx, path)
	if err != nil {
		return models.FileStatus{}, err
	}
	s.deps.History.Note(fmt.Sprintf("Imported %d items", table.Rows()))
	return accountingStatus(table), nil
}

func (s *Session) loadAccounting(ctx context.Context, path string) (*models.AccountingTable, error) {
	grid, err := s.deps.Loader.Load(ctx, path)
	if err != nil {
		s.logger.Error("failed to load accounting file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	table, err := s.deps.Accounting.Parse(grid, path)
	if err != nil {
		s.logger.Error("failed to parse accounting file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.accounting = table
	s.latest = s.showAllLocked()
	s.mu.Unlock()

	s.logger.Info("accounting table installed",
		zap.String("path", path),
		zap.String("load_id", table.LoadID),
		zap.Int("rows", table.Rows()))
	return table, nil
}

// LoadStock installs the stock file at path.
func (s *Session) LoadStock(ctx context.Context, path string) (models.FileStatus, error) {
	table, err := s.loadStock(ctx, path)
	if err != nil {
		return models.FileStatus{}, err
	}
	s.deps.History.Note(fmt.Sprintf("Imported stock for %d stores", len(table.Stores)))
	return stockStatus(table), nil
}

func (s *Session) loadStock(ctx context.Context, path string) (*models.StockTable, error) {
	grid, err := s.deps.Loader.Load(ctx, path)
	if err != nil {
		s.logger.Error("failed to load stock file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	table, err := s.deps.Stock.Parse(grid, path)
	if err != nil {
		s.logger.Error("failed to parse stock file", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.stock = table
	s.mu.Unlock()

	s.logger.Info("stock table installed",
		zap.String("path", path),
		zap.String("load_id", table.LoadID),
		zap.Int("stores", len(table.Stores)),
		zap.Int("records", len(table.Records)))
	return table, nil
}

// AutoLoad discovers and loads the newest accounting and stock files.
func (s *Session) AutoLoad(ctx context.Context) models.SessionStatus {
	s.autoLoadAccounting(ctx, false)
	s.autoLoadStock(ctx, false)
	return s.Status()
}

// Reload repeats discovery and reloads a file only when a different one
// has become the newest.
func (s *Session) Reload(ctx context.Context) {
	s.autoLoadAccounting(ctx, true)
	s.autoLoadStock(ctx, true)
}

func (s *Session) autoLoadAccounting(ctx context.Context, onlyIfChanged bool) {
	candidates := s.deps.Locator.FindDated(s.cfg.SearchDirs, s.cfg.AccountingPatterns, s.cfg.AccountingDate)
	latest, ok := s.deps.Locator.PickLatest(candidates)
	if !ok {
		if !onlyIfChanged {
			s.deps.History.Note("Accounting files not found")
		}
		return
	}

	if onlyIfChanged && s.seenAccounting(latest) {
		return
	}
	s.mu.Lock()
	s.accountingAttempt = latest
	s.mu.Unlock()

	if _, err := s.loadAccounting(ctx, latest); err != nil {
		s.deps.History.Note("Failed to load file: " + filepath.Base(latest))
		return
	}
	s.deps.History.Note("Auto-loaded: " + filepath.Base(latest))
}

func (s *Session) autoLoadStock(ctx context.Context, onlyIfChanged bool) {
	candidates := s.deps.Locator.FindCandidates(s.cfg.SearchDirs, s.cfg.StockPatterns)
	latest, ok := s.deps.Locator.PickLatest(candidates)
	if !ok {
		return
	}

	if onlyIfChanged && s.seenStock(latest) {
		return
	}
	s.mu.Lock()
	s.stockAttempt = latest
	s.mu.Unlock()

	if _, err := s.loadStock(ctx, latest); err != nil {
		s.deps.History.Note("Failed to load stock file: " + filepath.Base(latest))
		return
	}
	s.deps.History.Note("Auto-loaded stock: " + filepath.Base(latest))
}

// seenAccounting reports whether path is the active accounting file or the
// last one discovery tried.
func (s *Session) seenAccounting(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accounting != nil && s.accounting.Source == path {
		return true
	}
	return s.accountingAttempt == path
}

func (s *Session) seenStock(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stock != nil && s.stock.Source == path {
		return true
	}
	return s.stockAttempt == path
}

// Search filters the accounting table without recording history or
// replacing the latest result.
func (s *Session) Search(query string) (models.SearchResult, error) {
	s.mu.RLock()
	table := s.accounting
	s.mu.RUnlock()

	if table == nil {
		return models.SearchResult{}, ErrNotLoaded
	}
	out, _ := s.deps.Engine.Search(table, query)
	return out.Result, nil
}

// QueryInput schedules a recorded search of text after the quiet period,
// replacing any search still pending.
func (s *Session) QueryInput(text string) error {
	if !s.accountingLoaded() {
		return ErrNotLoaded
	}
	s.debouncer.Schedule(func() {
		if _, err := s.runSearch(text); err != nil {
			s.logger.Warn("debounced search failed", zap.Error(err))
		}
	})
	return nil
}

// Confirm cancels any pending search and runs text immediately.
func (s *Session) Confirm(text string) (models.SearchResult, error) {
	s.debouncer.Cancel()
	return s.runSearch(text)
}

func (s *Session) runSearch(text string) (models.SearchResult, error) {
	s.mu.RLock()
	table := s.accounting
	s.mu.RUnlock()

	if table == nil {
		return models.SearchResult{}, ErrNotLoaded
	}

	out, err := s.deps.Engine.Search(table, text)
	if err == nil && out.Result.Query != "" {
		s.deps.History.RecordSearch(out.Result.Query, out.Resolved)
	}

	result := out.Result
	s.mu.Lock()
	// Skip a result computed against a table that has since been replaced.
	if s.accounting == table {
		s.latest = &result
	}
	s.mu.Unlock()

	return result, nil
}

// Results returns the latest completed search.
func (s *Session) Results() (models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return models.SearchResult{}, ErrNotLoaded
	}
	return *s.latest, nil
}

// Stock looks up the availability of a selected row.
func (s *Session) Stock(name, article string) models.StockLookup {
	s.mu.RLock()
	table := s.stock
	s.mu.RUnlock()
	return stock.Lookup(table, name, article)
}

// Mapping returns the active column mapping.
func (s *Session) Mapping() (models.ColumnMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.accounting == nil {
		return nil, ErrNotLoaded
	}
	return s.accounting.Mapping.Clone(), nil
}

// SetMapping installs a user-edited column mapping.
func (s *Session) SetMapping(m models.ColumnMapping) (models.SearchResult, error) {
	if err := accounting.ValidateMapping(m); err != nil {
		return models.SearchResult{}, err
	}

	s.mu.Lock()
	if s.accounting == nil {
		s.mu.Unlock()
		return models.SearchResult{}, ErrNotLoaded
	}
	s.accounting = s.accounting.WithMapping(m)
	s.latest = s.showAllLocked()
	result := *s.latest
	s.mu.Unlock()

	s.deps.History.Note("Column mapping updated")
	return result, nil
}

// showAllLocked computes the unfiltered view of the active table.
func (s *Session) showAllLocked() *models.SearchResult {
	out, _ := s.deps.Engine.Search(s.accounting, "")
	return &out.Result
}

func (s *Session) accountingLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounting != nil
}

// History returns the history for display.
func (s *Session) History() models.HistoryView {
	return s.deps.History.View()
}

// ClearHistory empties the history and persists the empty list.
func (s *Session) ClearHistory() error {
	s.deps.History.Clear()
	err := s.SaveHistory()
	s.deps.History.Note("History cleared")
	return err
}

// LoadHistory restores the persisted history. Failures leave it empty.
func (s *Session) LoadHistory() {
	if s.deps.Store != nil {
		if err := s.deps.History.LoadFrom(s.deps.Store); err != nil {
			s.logger.Warn("failed to load history", zap.Error(err))
			s.deps.History.Clear()
		}
	}
	s.deps.History.Note("History loaded")
}

// SaveHistory persists the unexpired history.
func (s *Session) SaveHistory() error {
	if s.deps.Store == nil {
		return nil
	}
	if err := s.deps.History.SaveTo(s.deps.Store); err != nil {
		s.logger.Error("failed to save history", zap.Error(err))
		return err
	}
	return nil
}

// FlushHistory purges expired entries and persists the rest.
func (s *Session) FlushHistory() error {
	if n := s.deps.History.PurgeExpired(); n > 0 {
		s.logger.Debug("history entries expired", zap.Int("count", n))
	}
	return s.SaveHistory()
}

// Status summarizes the installed tables.
func (s *Session) Status() models.SessionStatus {
	s.mu.RLock()
	acc, st := s.accounting, s.stock
	s.mu.RUnlock()

	return models.SessionStatus{
		Accounting: accountingStatus(acc),
		Stock:      stockStatus(st),
		History:    s.deps.History.Len(),
	}
}

func accountingStatus(t *models.AccountingTable) models.FileStatus {
	if t == nil {
		return models.FileStatus{}
	}
	return models.FileStatus{
		Loaded:   true,
		File:     filepath.Base(t.Source),
		LoadID:   t.LoadID,
		Rows:     t.Rows(),
		LoadedAt: t.LoadedAt.Format(time.RFC3339),
	}
}

func stockStatus(t *models.StockTable) models.FileStatus {
	if t == nil {
		return models.FileStatus{}
	}
	return models.FileStatus{
		Loaded:   true,
		File:     filepath.Base(t.Source),
		LoadID:   t.LoadID,
		Rows:     len(t.Records),
		Stores:   len(t.Stores),
		LoadedAt: t.LoadedAt.Format(time.RFC3339),
	}
}

// Service describes the operations the HTTP layer can perform.
type Service interface {
	LoadAccounting(ctx context.Context, path string) (models.FileStatus, error)
	LoadStock(ctx context.Context, path string) (models.FileStatus, error)
	AutoLoad(ctx context.Context) models.SessionStatus
	Search(query string) (models.SearchResult, error)
	QueryInput(text string) error
	Confirm(text string) (models.SearchResult, error)
	Results() (models.SearchResult, error)
	Stock(name, article string) models.StockLookup
	Mapping() (models.ColumnMapping, error)
	SetMapping(m models.ColumnMapping) (models.SearchResult, error)
	History() models.HistoryView
	ClearHistory() error
	Status() models.SessionStatus
}

var _ Service = (*Session)(nil)
