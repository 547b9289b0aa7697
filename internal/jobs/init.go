package jobs

import (
	"context"
	"time"

	"tenf/portal/internal/logging"
)

const defaultReconcileInterval = time.Hour

// InitializeJobs starts the background jobs. They stop when ctx is cancelled.
func InitializeJobs(ctx context.Context, checker SyncChecker, interval time.Duration) *ReconcileJob {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	reconcile := NewReconcileJob(checker)
	go reconcile.RunScheduled(ctx, interval)

	logging.Info("Background jobs initialized", "reconcile_interval", interval.String())
	return reconcile
}
