package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/config"
	"github.com/mamadbah2/oblik/internal/locator"
	"github.com/mamadbah2/oblik/internal/repository/sheets"
	"github.com/mamadbah2/oblik/internal/repository/spreadsheet"
	"github.com/mamadbah2/oblik/internal/scheduler"
	"github.com/mamadbah2/oblik/internal/server/handlers"
	"github.com/mamadbah2/oblik/internal/server/router"
	accountingsvc "github.com/mamadbah2/oblik/internal/service/accounting"
	historysvc "github.com/mamadbah2/oblik/internal/service/history"
	searchsvc "github.com/mamadbah2/oblik/internal/service/search"
	sessionsvc "github.com/mamadbah2/oblik/internal/service/session"
	stocksvc "github.com/mamadbah2/oblik/internal/service/stock"
	"github.com/mamadbah2/oblik/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level, cfg.Log.Development))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var loaderOpts []spreadsheet.Option
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		loaderOpts = append(loaderOpts, spreadsheet.WithRemote(sheetsRepo))
		baseLogger.Info("google sheets source enabled", zap.String("prefix", spreadsheet.RemotePrefix))
	}

	dateRe, err := cfg.Layout.Accounting.DateRegexp()
	if err != nil {
		baseLogger.Fatal("invalid accounting date pattern", zap.Error(err))
	}

	stockParser := stocksvc.NewParser(stocksvc.Options{
		Markers:        cfg.Layout.Stock.Markers,
		DefaultStore:   cfg.Layout.Stock.DefaultStore,
		TotalMarker:    cfg.Layout.Stock.TotalMarker,
		HeaderScanRows: cfg.Layout.Stock.HeaderScanRows,
	}, baseLogger.Named("svc.stock"))

	sess := sessionsvc.New(sessionsvc.Config{
		SearchDirs:         cfg.Files.SearchDirs,
		AccountingPatterns: cfg.Layout.Accounting.Patterns,
		AccountingDate:     dateRe,
		StockPatterns:      cfg.Layout.Stock.Patterns,
		Debounce:           cfg.Search.Debounce,
	}, sessionsvc.Dependencies{
		Loader:     spreadsheet.NewLoader(baseLogger.Named("repo.spreadsheet"), loaderOpts...),
		Locator:    locator.New(baseLogger.Named("locator")),
		Accounting: accountingsvc.NewParser(cfg.Layout.Accounting.ScanRows, baseLogger.Named("svc.accounting")),
		Stock:      stockParser,
		Engine:     searchsvc.NewEngine(baseLogger.Named("svc.search")),
		History:    historysvc.NewLog(baseLogger.Named("svc.history")),
		Store:      historysvc.NewFileStore(cfg.Files.HistoryPath),
	}, baseLogger.Named("svc.session"))

	sess.Start(ctx)
	defer func() {
		if err := sess.Close(); err != nil {
			baseLogger.Error("failed to save history on exit", zap.Error(err))
		}
	}()

	sessionHandler := handlers.NewSessionHandler(sess, baseLogger.Named("handlers.session"))
	engine := router.New(sessionHandler, baseLogger.Named("router"))

	sched := scheduler.NewScheduler(cfg.Schedule, sess, baseLogger.Named("scheduler"))
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
