package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/mamadbah2/oblik/internal/config"
)

type countingTarget struct {
	reloads atomic.Int32
	flushes atomic.Int32
	err     error
}

func (c *countingTarget) Reload(context.Context) { c.reloads.Add(1) }

func (c *countingTarget) FlushHistory() error {
	c.flushes.Add(1)
	return c.err
}

func TestJobsCallTarget(t *testing.T) {
	target := &countingTarget{err: errors.New("disk full")}
	s := NewScheduler(config.ScheduleConfig{ReloadCron: "@every 1h", HistoryCron: "@hourly"}, target, nil)

	s.reload()
	s.flushHistory()

	if target.reloads.Load() != 1 || target.flushes.Load() != 1 {
		t.Fatalf("reloads=%d flushes=%d", target.reloads.Load(), target.flushes.Load())
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(config.ScheduleConfig{ReloadCron: "never", HistoryCron: "@hourly"}, &countingTarget{}, nil)
	if err := s.Start(); err == nil {
		s.Stop()
		t.Fatal("Start succeeded with an invalid schedule")
	}
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(config.ScheduleConfig{ReloadCron: "*/10 * * * *", HistoryCron: "0 * * * *"}, &countingTarget{}, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if n := len(s.cron.Entries()); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
	s.Stop()
}
