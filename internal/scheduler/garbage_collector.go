package scheduler

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

// IndexPruner drops bookkeeping entries of expired sessions.
type IndexPruner interface {
	PruneSessionIndex(ctx context.Context) (int, error)
}

// GarbageCollector handles cleanup of expired session index entries
type GarbageCollector struct {
	store    IndexPruner
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewGarbageCollector creates a new garbage collector
func NewGarbageCollector(
	store IndexPruner,
	log logger.Logger,
	interval time.Duration,
) *GarbageCollector {
	return &GarbageCollector{
		store:    store,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic garbage collection process
func (gc *GarbageCollector) Start(ctx context.Context) error {
	// Run immediately on start
	if err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial garbage collection failed",
			logger.Error(err))
	}

	// Start periodic collection
	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := gc.Collect(ctx); err != nil {
					gc.logger.Error("garbage collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the garbage collector
func (gc *GarbageCollector) Stop() {
	close(gc.stopCh)
}

// Collect removes index entries of sessions that expired in Redis
func (gc *GarbageCollector) Collect(ctx context.Context) error {
	removed, err := gc.store.PruneSessionIndex(ctx)
	if err != nil {
		return err
	}

	if removed > 0 {
		gc.logger.Info("garbage collection completed",
			logger.Int("sessions_pruned", removed))
	} else {
		gc.logger.Debug("no items to garbage collect")
	}
	return nil
}
