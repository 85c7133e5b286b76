package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mamadbah2/oblik/internal/domain/models"
	"github.com/mamadbah2/oblik/internal/locator"
	"github.com/mamadbah2/oblik/internal/repository/spreadsheet"
	"github.com/mamadbah2/oblik/internal/service/accounting"
	"github.com/mamadbah2/oblik/internal/service/history"
	"github.com/mamadbah2/oblik/internal/service/stock"
)

type fakeLoader struct {
	grids map[string]*models.RawGrid
	calls atomic.Int32
}

func (f *fakeLoader) Load(_ context.Context, path string) (*models.RawGrid, error) {
	f.calls.Add(1)
	g, ok := f.grids[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", spreadsheet.ErrUnreadableFile, path)
	}
	return g, nil
}

func accountingGrid() *models.RawGrid {
	// Data starts in column 1.
	return models.GridFromValues([][]interface{}{
		{nil, "Widget A", nil, nil, nil, 20, 120, "ART-1", 1001.0},
		{nil, "Gadget", nil, nil, nil, 10, 50, "ART-2", 2002.0},
		{nil, "Widget B", nil, nil, nil, 5, 15, "ART-3", 3003.0},
	})
}

func stockGrid() *models.RawGrid {
	return models.GridFromValues([][]interface{}{
		{"Арт", "Назва", "ААА", "Арсен", "Итог"},
		{},
		{"ART-1", "Widget A", 2, 0, 2},
		{"ART-2", "Gadget", 0, 0, 0},
	})
}

type harness struct {
	session *Session
	loader  *fakeLoader
	store   *history.FileStore
	dir     string
}

func newHarness(t *testing.T, debounce time.Duration) *harness {
	t.Helper()

	dir := t.TempDir()
	loader := &fakeLoader{grids: map[string]*models.RawGrid{
		"Облік 01.03.24.xlsx":   accountingGrid(),
		"Залишки 01.03.24.xlsx": stockGrid(),
	}}
	store := history.NewFileStore(filepath.Join(dir, ".oblpy_history"))

	cfg := Config{
		SearchDirs:         []string{dir},
		AccountingPatterns: []string{"Облік *.xlsx", "Облік*.*"},
		AccountingDate:     regexp.MustCompile(`(?i)Облік[\s_]*(\d{1,2}[.,]\d{1,2}(?:[.,]\d{2,4})?)`),
		StockPatterns:      []string{"*Залишки*.xlsx"},
		Debounce:           debounce,
	}
	deps := Dependencies{
		Loader:     loader,
		Locator:    locator.New(nil),
		Accounting: accounting.NewParser(10, nil),
		Stock: stock.NewParser(stock.Options{
			Markers:      []string{"арсен", "ааа"},
			DefaultStore: "ААА",
			TotalMarker:  "итог",
		}, nil),
		History: history.NewLog(nil),
		Store:   store,
	}

	s := New(cfg, deps, nil)
	t.Cleanup(func() { _ = s.Close() })
	return &harness{session: s, loader: loader, store: store, dir: dir}
}

func (h *harness) touch(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(h.dir, name)
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func historyContains(s *Session, message string) bool {
	for _, e := range s.History().Entries {
		if strings.HasSuffix(e, " - "+message) {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestNotLoaded(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session

	if _, err := s.Search("x"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Search error = %v", err)
	}
	if _, err := s.Confirm("x"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Confirm error = %v", err)
	}
	if err := s.QueryInput("x"); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("QueryInput error = %v", err)
	}
	if _, err := s.Results(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Results error = %v", err)
	}
	if _, err := s.Mapping(); !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Mapping error = %v", err)
	}
	if got := s.Stock("Widget A", ""); got.Status != models.StockNotLoaded {
		t.Errorf("Stock status = %s", got.Status)
	}
}

func TestLoadAndSearch(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session
	ctx := context.Background()

	status, err := s.LoadAccounting(ctx, filepath.Join(h.dir, "Облік 01.03.24.xlsx"))
	if err != nil {
		t.Fatalf("LoadAccounting: %v", err)
	}
	if status.Rows != 3 || status.LoadID == "" {
		t.Errorf("status = %+v", status)
	}
	if !historyContains(s, "Imported 3 items") {
		t.Error("import not logged")
	}

	all, err := s.Results()
	if err != nil || all.Total != 3 {
		t.Fatalf("Results after load = %+v, %v", all, err)
	}

	res, err := s.Confirm("2002")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if res.Total != 1 || res.Rows[0].Purchase != "40" || res.Rows[0].Code != "2002" {
		t.Errorf("Confirm result = %+v", res)
	}
	if !historyContains(s, "2002 ➔ 10 ➔ 50 ➔ Gadget") {
		t.Errorf("resolved search not logged: %v", s.History().Entries)
	}

	// Repeating the query is not logged twice.
	before := len(s.History().Entries)
	if _, err := s.Confirm("2002"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if after := len(s.History().Entries); after != before {
		t.Errorf("history grew from %d to %d on repeat", before, after)
	}

	// A preview search leaves history and results alone.
	if _, err := s.Search("widget"); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if latest, _ := s.Results(); latest.Query != "2002" {
		t.Errorf("latest query = %q, want 2002", latest.Query)
	}
}

func TestFailedLoadKeepsPreviousTable(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session
	ctx := context.Background()

	if _, err := s.LoadAccounting(ctx, filepath.Join(h.dir, "Облік 01.03.24.xlsx")); err != nil {
		t.Fatalf("LoadAccounting: %v", err)
	}
	first := s.Status().Accounting.LoadID

	_, err := s.LoadAccounting(ctx, filepath.Join(h.dir, "broken.xls"))
	if !errors.Is(err, spreadsheet.ErrUnreadableFile) {
		t.Fatalf("LoadAccounting error = %v", err)
	}
	if got := s.Status().Accounting.LoadID; got != first {
		t.Errorf("LoadID changed to %q after a failed load", got)
	}

	h.loader.grids["flat.xlsx"] = models.GridFromValues([][]interface{}{{"a", "b"}})
	if _, err := s.LoadStock(ctx, filepath.Join(h.dir, "flat.xlsx")); !errors.Is(err, stock.ErrLayoutNotFound) {
		t.Fatalf("LoadStock error = %v", err)
	}
	if s.Status().Stock.Loaded {
		t.Error("stock should stay unloaded")
	}
}

func TestDebouncedInput(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	s := h.session

	if _, err := s.LoadAccounting(context.Background(), filepath.Join(h.dir, "Облік 01.03.24.xlsx")); err != nil {
		t.Fatalf("LoadAccounting: %v", err)
	}

	for _, text := range []string{"w", "wi", "widget"} {
		if err := s.QueryInput(text); err != nil {
			t.Fatalf("QueryInput: %v", err)
		}
	}

	waitFor(t, func() bool {
		r, _ := s.Results()
		return r.Query == "widget"
	})

	if historyContains(s, "w") || historyContains(s, "wi") {
		t.Error("superseded inputs must not run")
	}
	if !historyContains(s, "widget") {
		t.Error("debounced search should be recorded")
	}
}

func TestConfirmCancelsPendingInput(t *testing.T) {
	h := newHarness(t, 30*time.Millisecond)
	s := h.session

	if _, err := s.LoadAccounting(context.Background(), filepath.Join(h.dir, "Облік 01.03.24.xlsx")); err != nil {
		t.Fatalf("LoadAccounting: %v", err)
	}

	if err := s.QueryInput("gadget"); err != nil {
		t.Fatalf("QueryInput: %v", err)
	}
	if _, err := s.Confirm("bolt"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if s.debouncer.Pending() {
		t.Fatal("confirm should cancel the pending search")
	}

	time.Sleep(100 * time.Millisecond)
	if r, _ := s.Results(); r.Query != "bolt" {
		t.Errorf("latest query = %q, want bolt", r.Query)
	}
	if historyContains(s, "gadget") {
		t.Error("cancelled search ran")
	}
}

func TestStockLookup(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session

	status, err := s.LoadStock(context.Background(), filepath.Join(h.dir, "Залишки 01.03.24.xlsx"))
	if err != nil {
		t.Fatalf("LoadStock: %v", err)
	}
	if status.Stores != 2 || status.Rows != 2 {
		t.Errorf("status = %+v", status)
	}
	if !historyContains(s, "Imported stock for 2 stores") {
		t.Error("stock import not logged")
	}

	got := s.Stock("Widget A", "")
	if got.Status != models.StockAvailable || got.Availability.Columns[0][0].Store != "ААА" {
		t.Errorf("Stock(Widget A) = %+v", got)
	}
	if got := s.Stock("Gadget", ""); got.Status != models.StockOutOfStock {
		t.Errorf("Stock(Gadget) status = %s", got.Status)
	}
	if got := s.Stock("Other", "ART-1"); got.Status != models.StockAvailable {
		t.Errorf("article fallback status = %s", got.Status)
	}
	if got := s.Stock("Other", ""); got.Status != models.StockNotFound {
		t.Errorf("Stock(Other) status = %s", got.Status)
	}
}

func TestSetMapping(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session

	bad := accounting.BuildMapping(0)
	bad[models.FieldPrice] = 31
	if _, err := s.SetMapping(bad); !errors.Is(err, accounting.ErrInvalidMapping) {
		t.Fatalf("SetMapping error = %v", err)
	}
	if _, err := s.SetMapping(accounting.BuildMapping(0)); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("SetMapping before load = %v", err)
	}

	if _, err := s.LoadAccounting(context.Background(), filepath.Join(h.dir, "Облік 01.03.24.xlsx")); err != nil {
		t.Fatalf("LoadAccounting: %v", err)
	}
	if m, _ := s.Mapping(); m[models.FieldName] != 1 {
		t.Fatalf("detected mapping = %v", m)
	}

	// Column 20 is valid for the dialog but outside this grid.
	wide := accounting.BuildMapping(1)
	wide[models.FieldCode] = 20
	res, err := s.SetMapping(wide)
	if err != nil {
		t.Fatalf("SetMapping: %v", err)
	}
	if res.Warning == "" || res.Total != 3 {
		t.Errorf("result = %+v, want unfiltered rows with a warning", res)
	}
	if !historyContains(s, "Column mapping updated") {
		t.Error("mapping change not logged")
	}

	fallback, err := s.Confirm("widget")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if fallback.Total != 3 || fallback.Warning == "" {
		t.Errorf("Confirm with bad mapping = %+v", fallback)
	}
	if historyContains(s, "widget") {
		t.Error("failed search must not be recorded")
	}
}

func TestAutoLoadAndReload(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session
	ctx := context.Background()

	h.touch(t, "Облік 15.02.24.xlsx")
	h.touch(t, "Облік 01.03.24.xlsx")
	h.touch(t, "Залишки 01.03.24.xlsx")

	status := s.AutoLoad(ctx)
	if status.Accounting.File != "Облік 01.03.24.xlsx" || !status.Stock.Loaded {
		t.Fatalf("status = %+v", status)
	}
	if !historyContains(s, "Auto-loaded: Облік 01.03.24.xlsx") {
		t.Errorf("history = %v", s.History().Entries)
	}

	calls := h.loader.calls.Load()
	s.Reload(ctx)
	if got := h.loader.calls.Load(); got != calls {
		t.Errorf("reload without changes loaded %d files", got-calls)
	}

	h.loader.grids["Облік 05.03.24.xlsx"] = accountingGrid()
	h.touch(t, "Облік 05.03.24.xlsx")
	s.Reload(ctx)
	if got := s.Status().Accounting.File; got != "Облік 05.03.24.xlsx" {
		t.Errorf("after reload file = %q", got)
	}
}

func TestReloadTriesBrokenFileOnce(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session
	ctx := context.Background()

	h.touch(t, "Облік 01.03.24.xlsx")
	s.AutoLoad(ctx)
	if _, err := s.Confirm("widget a"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	// No grid registered, so the loader rejects it.
	h.touch(t, "Облік 05.03.24.xlsx")
	calls := h.loader.calls.Load()
	for i := 0; i < 120; i++ {
		s.Reload(ctx)
	}

	if got := h.loader.calls.Load() - calls; got != 1 {
		t.Errorf("broken file read %d times, want 1", got)
	}

	failures := 0
	for _, e := range s.History().Entries {
		if strings.HasSuffix(e, " - Failed to load file: Облік 05.03.24.xlsx") {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("failure notes = %d, want 1", failures)
	}
	if !historyContains(s, "widget a ➔ 20 ➔ 120 ➔ 1001") {
		t.Errorf("search entry lost: %v", s.History().Entries)
	}
	if got := s.Status().Accounting.File; got != "Облік 01.03.24.xlsx" {
		t.Errorf("active file = %q", got)
	}

	// A newer readable file is still picked up.
	h.loader.grids["Облік 09.03.24.xlsx"] = accountingGrid()
	h.touch(t, "Облік 09.03.24.xlsx")
	s.Reload(ctx)
	if got := s.Status().Accounting.File; got != "Облік 09.03.24.xlsx" {
		t.Errorf("after reload file = %q", got)
	}
}

func TestAutoLoadNothingFound(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session

	s.AutoLoad(context.Background())
	if !historyContains(s, "Accounting files not found") {
		t.Errorf("history = %v", s.History().Entries)
	}

	h.touch(t, "Облік 09.09.24.xlsx")
	s.AutoLoad(context.Background())
	if !historyContains(s, "Failed to load file: Облік 09.09.24.xlsx") {
		t.Errorf("history = %v", s.History().Entries)
	}
}

func TestHistoryPersistence(t *testing.T) {
	h := newHarness(t, time.Second)
	s := h.session

	s.LoadHistory()
	if !historyContains(s, "History loaded") {
		t.Fatal("load not logged")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines, err := h.store.Load()
	if err != nil || len(lines) != 1 {
		t.Fatalf("persisted = %v, %v", lines, err)
	}

	if err := s.ClearHistory(); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	lines, _ = h.store.Load()
	if len(lines) != 0 {
		t.Errorf("persisted after clear = %v", lines)
	}
	if view := s.History(); len(view.Entries) != 1 || !historyContains(s, "History cleared") {
		t.Errorf("history after clear = %v", view.Entries)
	}
}
