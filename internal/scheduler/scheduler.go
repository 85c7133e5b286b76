package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/config"
)

// Target is the work the scheduler drives.
type Target interface {
	Reload(ctx context.Context)
	FlushHistory() error
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron   *cron.Cron
	target Target
	cfg    config.ScheduleConfig
	logger *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.ScheduleConfig, target Target, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New()

	return &Scheduler{
		cron:   c,
		target: target,
		cfg:    cfg,
		logger: logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler",
		zap.String("reload", s.cfg.ReloadCron),
		zap.String("history", s.cfg.HistoryCron))

	if _, err := s.cron.AddFunc(s.cfg.ReloadCron, s.reload); err != nil {
		s.logger.Error("failed to schedule reload", zap.Error(err))
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.HistoryCron, s.flushHistory); err != nil {
		s.logger.Error("failed to schedule history flush", zap.Error(err))
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) reload() {
	s.logger.Debug("checking for newer source files")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	s.target.Reload(ctx)
}

func (s *Scheduler) flushHistory() {
	if err := s.target.FlushHistory(); err != nil {
		s.logger.Error("failed to flush history", zap.Error(err))
		return
	}
	s.logger.Debug("history flushed")
}
