package worker

import (
	"context"
	"time"

	applog "github.com/example/medflow/backend/internal/log"
	"github.com/example/medflow/backend/internal/service"
)

// MediaSyncWorker periodically runs the media backfill scan so workflows
// that completed without spawning their media records get reconciled.
type MediaSyncWorker struct {
	sync     *service.MediaSynchronizer
	interval time.Duration
}

// NewMediaSyncWorker creates the worker. An interval of zero disables it.
func NewMediaSyncWorker(sync *service.MediaSynchronizer, interval time.Duration) *MediaSyncWorker {
	return &MediaSyncWorker{sync: sync, interval: interval}
}

// Run starts the reconciliation loop and should be launched in its own
// goroutine. It stops when the context is cancelled; an in-flight scan
// still runs to completion.
func (w *MediaSyncWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		applog.GetLogger().Info("media sync worker disabled")
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			applog.GetLogger().Info("media sync worker shutting down")
			return
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

func (w *MediaSyncWorker) scan(ctx context.Context) {
	report, err := w.sync.SyncCompletedWorkflows(ctx)
	if err != nil {
		applog.GetLogger().Errorf("media sync scan failed: %v", err)
		return
	}
	if report.Videos > 0 || report.Shorts > 0 {
		applog.GetLogger().Infof("media sync created %d videos, %d shorts", report.Videos, report.Shorts)
	}
}
