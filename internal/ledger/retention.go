package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hoc_companion/internal/utils"
)

// Pruner deletes records older than a cutoff
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention prunes the ledger on a cron schedule, e.g. "0 3 * * *" for
// daily at 3 AM.
type Retention struct {
	pruner    Pruner
	retention time.Duration
	schedule  string
	cron      *cron.Cron
	logger    *utils.Logger
	now       func() time.Time

	mu      sync.Mutex
	running bool
}

// NewRetention creates a retention scheduler. A retention <= 0 keeps
// records forever.
func NewRetention(pruner Pruner, retention time.Duration, schedule string, logger *utils.Logger) *Retention {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Retention{
		pruner:    pruner,
		retention: retention,
		schedule:  schedule,
		cron:      cron.New(),
		logger:    logger,
		now:       time.Now,
	}
}

// Start schedules pruning. An empty schedule or retention disables it.
func (r *Retention) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if r.schedule == "" || r.retention <= 0 {
		r.logger.Info("Ledger retention disabled")
		return nil
	}

	if _, err := cron.ParseStandard(r.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.schedule, err)
	}
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error("Scheduled ledger pruning failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	r.cron.Start()
	r.running = true
	r.logger.Info("Ledger retention started", "schedule", r.schedule, "retention", r.retention)

	go func() {
		<-ctx.Done()
		r.Stop()
	}()
	return nil
}

// RunOnce prunes everything older than the retention window now
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	if r.retention <= 0 {
		return 0, nil
	}

	deleted, err := r.pruner.Prune(ctx, r.now().Add(-r.retention))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.Info("Pruned ledger records", "deleted", deleted)
	} else {
		r.logger.Debug("Ledger pruning found nothing to delete")
	}
	return deleted, nil
}

// Stop stops the scheduler and waits for a running prune to finish
func (r *Retention) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	<-r.cron.Stop().Done()
	r.running = false
	r.logger.Info("Ledger retention stopped")
}

// IsRunning reports whether pruning is scheduled
func (r *Retention) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled prune, or nil when not scheduled
func (r *Retention) NextRun() *time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.cron.Entries()
	if !r.running || len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
