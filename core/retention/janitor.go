package retention

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"keywatch/config"
	"keywatch/core/store"
	"keywatch/core/utils"
)

// Janitor prunes probe-log rows past the retention horizon on a cron
// schedule. RetentionDays lives in the settings row, so operators can change
// it at runtime; a zero there falls back to the configured days, and when
// both are zero pruning is off without stopping the cron.
type Janitor struct {
	cfg    config.RetentionConfig
	store  store.MonitorStore
	logger *utils.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewJanitor(cfg config.RetentionConfig, st store.MonitorStore, logger *utils.Logger) *Janitor {
	return &Janitor{cfg: cfg, store: st, logger: logger}
}

func (j *Janitor) StartWithContext(ctx context.Context) error {
	if j == nil || !j.cfg.Enabled {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running {
		return nil
	}
	c := cron.New()
	schedule := j.cfg.Schedule
	if schedule == "" {
		schedule = "@hourly"
	}
	if _, err := c.AddFunc(schedule, func() { j.RunOnce(ctx, time.Now().UTC()) }); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	j.running = true
	j.logger.Infof("retention: scheduled %q", schedule)
	return nil
}

func (j *Janitor) StopWithContext(ctx context.Context) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.running = false
	j.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (j *Janitor) RunOnce(ctx context.Context, now time.Time) {
	settings, err := j.store.GetSettings(ctx)
	if err != nil {
		j.logger.Errorf("retention: read settings: %v", err)
		return
	}
	days := settings.RetentionDays
	if days <= 0 {
		days = j.cfg.Days
	}
	if days <= 0 {
		return
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)
	deleted, err := j.store.DeleteEventsBefore(ctx, cutoff)
	if err != nil {
		j.logger.Errorf("retention: prune: %v", err)
		return
	}
	if deleted > 0 {
		j.logger.Infof("retention: pruned %d probe events older than %s", deleted, cutoff.Format(time.RFC3339))
	}
}
