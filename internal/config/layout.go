package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

// LayoutConfig describes the export layouts of the two source files.
type LayoutConfig struct {
	Accounting AccountingLayout `toml:"accounting"`
	Stock      StockLayout      `toml:"stock"`
}

// AccountingLayout controls discovery and start-column detection of the
// accounting export.
type AccountingLayout struct {
	Patterns    []string `toml:"patterns"`
	DatePattern string   `toml:"date_pattern"`
	ScanRows    int      `toml:"scan_rows"`
}

// StockLayout controls discovery and header detection of the stock export.
type StockLayout struct {
	Patterns       []string `toml:"patterns"`
	Markers        []string `toml:"markers"`
	DefaultStore   string   `toml:"default_store"`
	TotalMarker    string   `toml:"total_marker"`
	HeaderScanRows int      `toml:"header_scan_rows"`
}

// DefaultLayout returns the layout of the stock exports in use today.
func DefaultLayout() *LayoutConfig {
	return &LayoutConfig{
		Accounting: AccountingLayout{
			Patterns: []string{
				"Облік *.xls", "Облік *.xlsx", "Облік *.xlsm", "Облік*.*",
				"Oblik*.xls", "Oblik*.xlsx", "Oblik*.xlsm",
			},
			DatePattern: `(?i)Облік[\s_]*(\d{1,2}[.,]\d{1,2}(?:[.,]\d{2,4})?)`,
			ScanRows:    10,
		},
		Stock: StockLayout{
			Patterns: []string{
				"*Залишки*.xls", "*Залишки*.xlsx", "*Залишки*.xlsm",
				"*залишки*.*", "*остатки*.*",
				"Залишки*.xls", "Залишки*.xlsx",
				"*Zalyshky*.xls", "*Zalyshky*.xlsx",
				"*Ostatki*.xls", "*Ostatki*.xlsx",
			},
			Markers:        []string{"арсен", "ааа"},
			DefaultStore:   "ААА",
			TotalMarker:    "итог",
			HeaderScanRows: 15,
		},
	}
}

// LoadLayout overlays the TOML file at path on top of DefaultLayout. An empty
// path or a missing file yields the defaults.
func LoadLayout(path string) (*LayoutConfig, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return layout, nil
		}
		return nil, fmt.Errorf("read layout file %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("parse layout file %s: %w", path, err)
	}
	return layout, nil
}

// DateRegexp compiles the accounting date pattern.
func (a AccountingLayout) DateRegexp() (*regexp.Regexp, error) {
	if a.DatePattern == "" {
		return nil, nil
	}
	return regexp.Compile(a.DatePattern)
}

// Validate checks the layout for values the parsers cannot work with.
func (l *LayoutConfig) Validate() error {
	if len(l.Accounting.Patterns) == 0 {
		return errors.New("layout: accounting.patterns must not be empty")
	}
	if _, err := l.Accounting.DateRegexp(); err != nil {
		return fmt.Errorf("layout: accounting.date_pattern: %w", err)
	}
	if l.Accounting.ScanRows <= 0 {
		return errors.New("layout: accounting.scan_rows must be positive")
	}

	if len(l.Stock.Patterns) == 0 {
		return errors.New("layout: stock.patterns must not be empty")
	}
	if len(l.Stock.Markers) == 0 {
		return errors.New("layout: stock.markers must not be empty")
	}
	if l.Stock.HeaderScanRows <= 0 {
		return errors.New("layout: stock.header_scan_rows must be positive")
	}
	return nil
}
