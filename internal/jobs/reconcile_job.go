package jobs

import (
	"context"
	"time"

	"tenf/portal/internal/logging"
	"tenf/portal/internal/services"
)

// SyncChecker is satisfied by *services.ConsistencyService.
type SyncChecker interface {
	Check(ctx context.Context, entities ...string) (*services.SyncCheckReport, error)
}

// ReconcileJob periodically compares the blob and relational copies of the
// dual-stored entities. It only reports; imports stay a manual admin action.
type ReconcileJob struct {
	checker SyncChecker
	now     func() time.Time
	last    time.Time
}

func NewReconcileJob(checker SyncChecker) *ReconcileJob {
	return &ReconcileJob{checker: checker, now: time.Now}
}

// Run performs one check and logs every entity that diverged.
func (j *ReconcileJob) Run(ctx context.Context) (*services.SyncCheckReport, error) {
	start := j.now()
	report, err := j.checker.Check(ctx)
	if err != nil {
		logging.Error("[ReconcileJob] check failed", "error", err)
		return nil, err
	}
	j.last = start

	if !report.Diverged() {
		logging.Debug("[ReconcileJob] stores in sync", "duration", j.now().Sub(start).String())
		return report, nil
	}
	for _, e := range report.Entities {
		if len(e.MissingInRelational) == 0 {
			continue
		}
		logging.Warn("[ReconcileJob] relational store is missing blob records",
			"entity", e.Entity,
			"missing", len(e.MissingInRelational),
			"blob_count", e.BlobCount,
			"relational_count", e.RelationalCount,
		)
	}
	return report, nil
}

// LastRun is the start time of the last successful check.
func (j *ReconcileJob) LastRun() time.Time {
	return j.last
}

// RunScheduled runs the job once, then on every tick until ctx is cancelled.
func (j *ReconcileJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = j.Run(ctx)

	for {
		select {
		case <-ticker.C:
			_, _ = j.Run(ctx)
		case <-ctx.Done():
			logging.Info("[ReconcileJob] Shutting down scheduled check")
			return
		}
	}
}
