package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// Config represents the full application configuration surface.
type Config struct {
	Server   ServerConfig
	Files    FilesConfig
	Search   SearchConfig
	Schedule ScheduleConfig
	Sheets   SheetsConfig
	Log      LogConfig
	Layout   LayoutConfig
}

// ServerConfig holds the loopback bridge options.
type ServerConfig struct {
	Addr string
}

// FilesConfig locates input spreadsheets and the history file.
type FilesConfig struct {
	SearchDirs  []string
	HistoryPath string
	LayoutPath  string
}

// SearchConfig tunes the interactive search.
type SearchConfig struct {
	Debounce time.Duration
}

// ScheduleConfig holds cron expressions for background jobs.
type ScheduleConfig struct {
	ReloadCron  string
	HistoryCron string
}

// SheetsConfig contains configuration required to read from Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the remote source is configured.
func (s SheetsConfig) Enabled() bool {
	return s.CredentialsPath != "" && s.SpreadsheetID != ""
}

// LogConfig selects the logger flavour.
type LogConfig struct {
	Level       string
	Development bool
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	home, _ := os.UserHomeDir()

	debounce, err := time.ParseDuration(getenvWithDefault("SEARCH_DEBOUNCE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("SEARCH_DEBOUNCE: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr: getenvWithDefault("OBLIK_ADDR", "127.0.0.1:8765"),
		},
		Files: FilesConfig{
			SearchDirs:  splitList(os.Getenv("OBLIK_SEARCH_DIRS"), string(os.PathListSeparator), defaultSearchDirs(home)),
			HistoryPath: getenvWithDefault("OBLIK_HISTORY_PATH", filepath.Join(home, ".oblpy_history")),
			LayoutPath:  os.Getenv("OBLIK_LAYOUT_FILE"),
		},
		Search: SearchConfig{
			Debounce: debounce,
		},
		Schedule: ScheduleConfig{
			ReloadCron:  getenvWithDefault("RELOAD_CRON", "*/10 * * * *"),
			HistoryCron: getenvWithDefault("HISTORY_CRON", "0 * * * *"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		Log: LogConfig{
			Level:       getenvWithDefault("LOG_LEVEL", "info"),
			Development: strings.EqualFold(os.Getenv("LOG_DEVELOPMENT"), "true"),
		},
	}

	layout, err := LoadLayout(cfg.Files.LayoutPath)
	if err != nil {
		return nil, err
	}
	if markers := splitList(os.Getenv("STORE_MARKERS"), ",", nil); len(markers) > 0 {
		layout.Stock.Markers = markers
	}
	cfg.Layout = *layout

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Addr == "" {
		return errors.New("OBLIK_ADDR must be provided")
	}
	if err := requireLoopback(c.Server.Addr); err != nil {
		return err
	}

	if len(c.Files.SearchDirs) == 0 {
		return errors.New("OBLIK_SEARCH_DIRS must not be empty")
	}
	if c.Files.HistoryPath == "" {
		return errors.New("OBLIK_HISTORY_PATH must be provided")
	}

	if c.Search.Debounce <= 0 {
		return errors.New("SEARCH_DEBOUNCE must be positive")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(c.Schedule.ReloadCron); err != nil {
		return fmt.Errorf("RELOAD_CRON: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.HistoryCron); err != nil {
		return fmt.Errorf("HISTORY_CRON: %w", err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	return c.Layout.Validate()
}

// requireLoopback rejects listen addresses reachable from other hosts.
func requireLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("OBLIK_ADDR %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("OBLIK_ADDR %q must be a loopback address", addr)
	}
	return nil
}

func defaultSearchDirs(home string) []string {
	return []string{
		filepath.Join(home, "Desktop"),
		home,
		filepath.Join(home, "Documents"),
		filepath.Join(home, "Downloads"),
	}
}

func splitList(value, sep string, fallback []string) []string {
	var out []string
	for _, part := range strings.Split(value, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
