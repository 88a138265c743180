package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner deletes journal entries older than the retention on a cron schedule.
type Pruner struct {
	store     *JournalStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time

	sched *cron.Cron
}

func NewPruner(store *JournalStore, retention time.Duration, logger *slog.Logger) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:     store,
		retention: retention,
		logger:    logger.With("component", "journal"),
		now:       time.Now,
	}
}

// Start schedules pruning with a standard five-field cron spec.
func (p *Pruner) Start(ctx context.Context, schedule string) error {
	p.Stop()
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { p.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	c.Start()
	p.sched = c
	p.logger.Info("journal pruning scheduled", "schedule", schedule, "retention", p.retention)
	return nil
}

// RunOnce prunes immediately and returns the number of deleted entries.
func (p *Pruner) RunOnce(ctx context.Context) int64 {
	if p.retention <= 0 {
		return 0
	}
	n, err := p.store.Prune(ctx, p.now().Add(-p.retention))
	if err != nil {
		p.logger.Warn("journal prune failed", "error", err)
		return 0
	}
	if n > 0 {
		p.logger.Info("journal pruned", "deleted", n)
	}
	return n
}

func (p *Pruner) Stop() {
	if p.sched != nil {
		<-p.sched.Stop().Done()
		p.sched = nil
	}
}

// ValidateSchedule reports whether spec parses as a standard cron spec.
func ValidateSchedule(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
