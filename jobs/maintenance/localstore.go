package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// LocalStore is the part of the local queue store the maintenance job works on.
type LocalStore interface {
	Ping(ctx context.Context) error
	Checkpoint(ctx context.Context) error
	Optimize(ctx context.Context)
}

// LocalStoreMaintenanceJob keeps the SQLite file behind the local transport compact.
// Every receive and delete is a write there, so the WAL grows steadily under a busy worker.
type LocalStoreMaintenanceJob struct {
	store  LocalStore
	ticker *time.Ticker
	done   chan struct{}
}

func NewLocalStoreMaintenanceJob(store LocalStore, intervalMs int64, maxDurationMs int64) *LocalStoreMaintenanceJob {
	j := &LocalStoreMaintenanceJob{
		store:  store,
		ticker: time.NewTicker(time.Duration(intervalMs) * time.Millisecond),
		done:   make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-j.ticker.C:
				ctx, cancelFunc := context.WithTimeout(context.Background(), time.Duration(maxDurationMs)*time.Millisecond)
				j.RunOnce(ctx)
				cancelFunc()
			case <-j.done:
				return
			}
		}
	}()

	return j
}

// RunOnce reports whether the store was reachable. An unreachable store is skipped until the next tick.
func (j *LocalStoreMaintenanceJob) RunOnce(ctx context.Context) bool {
	start := time.Now()
	if err := j.store.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("local queue store unreachable, skipping maintenance")
		return false
	}

	if err := j.store.Checkpoint(ctx); err != nil {
		// a checkpoint blocked by a long receive is retried on the next tick, optimize still runs
		log.Warn().Err(err).Msg("failed to checkpoint local queue store")
	}
	j.store.Optimize(ctx)

	log.Debug().Dur("took", time.Since(start)).Msg("local queue store maintenance done")
	return true
}

func (j *LocalStoreMaintenanceJob) Close() error {
	j.ticker.Stop()
	close(j.done)
	return nil
}
