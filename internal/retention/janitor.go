// Package retention trims the delivery log on a fixed interval.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is how often the janitor prunes when no interval is given.
const DefaultInterval = time.Hour

// Janitor periodically prunes deliveries older than the retention window.
type Janitor struct {
	store     Pruner
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// New creates a Janitor. A zero interval means DefaultInterval.
func New(store Pruner, retention, interval time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Janitor{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger.With("component", "retention"),
		stopCh:    make(chan struct{}),
	}
}

// Start prunes once and then keeps pruning every interval until ctx is
// cancelled or Stop is called.
func (j *Janitor) Start(ctx context.Context) error {
	if j.retention <= 0 {
		return fmt.Errorf("retention must be positive, got %s", j.retention)
	}
	j.logger.Info("Starting retention janitor", "retention", j.retention.String(), "interval", j.interval.String())

	j.wg.Add(1)
	go j.loop(ctx)
	return nil
}

// Stop halts the loop and waits for an in-flight prune to finish.
func (j *Janitor) Stop() {
	j.stopOnce.Do(func() { close(j.stopCh) })
	j.wg.Wait()
	j.logger.Info("Retention janitor stopped")
}

func (j *Janitor) loop(ctx context.Context) {
	defer j.wg.Done()

	j.tick(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.tick(ctx)
		case <-j.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick performs a single prune pass.
func (j *Janitor) tick(ctx context.Context) {
	n, err := j.store.Prune(ctx, j.retention)
	if err != nil {
		j.logger.Error("Failed to prune deliveries", "error", err)
		return
	}
	if n > 0 {
		j.logger.Info("Pruned deliveries", "count", n)
		return
	}
	j.logger.Debug("Nothing to prune")
}
