package review

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

const (
	// statusRefreshInterval throttles user-visible status line updates.
	statusRefreshInterval = 1200 * time.Millisecond

	// remainingEstimateAfter is the unit count below which only the raw
	// count is shown; remaining-time estimates need enough samples to be
	// meaningful.
	remainingEstimateAfter = 500

	// finishingThreshold collapses the remaining-time estimate to a
	// terse "Finishing..." once it drops this low.
	finishingThreshold = 1500 * time.Millisecond

	// estimateHeadroom and estimateBump keep the progress fraction from
	// reaching 1 while work remains: when n comes within the headroom of
	// maxn, maxn moves to n plus the bump.
	estimateHeadroom = 5
	estimateBump     = 10
)

// tracker is the ProgressRecorder attached to one running task. It owns the
// task's counters while the computation runs, swaps consistent snapshots
// into the task, and feeds upward corrections back into the process-wide
// estimate for non-summary tasks.
type tracker struct {
	ctx       context.Context
	task      *vetting.Task
	estimates *estimator
	clock     vetting.TimeProvider
	limiter   *rate.Limiter

	start time.Time
	n     int
	maxn  int
}

var _ vetting.ProgressRecorder = (*tracker)(nil)

func newTracker(ctx context.Context, task *vetting.Task, estimates *estimator, clock vetting.TimeProvider) *tracker {
	now := clock.Now()
	t := &tracker{
		ctx:       ctx,
		task:      task,
		estimates: estimates,
		clock:     clock,
		limiter:   rate.NewLimiter(rate.Every(statusRefreshInterval), 1),
		start:     now,
		maxn:      task.Progress().TotalEstimate(),
	}
	// Spend the initial burst so the first refresh waits a full interval.
	t.limiter.AllowN(now, 1)
	return t
}

// Advance records one completed work unit. It is the only point at which
// the computation is forced to abort: a cancelled task context fails the
// call fatally.
func (t *tracker) Advance() error {
	if err := context.Cause(t.ctx); err != nil {
		return fmt.Errorf("computation abandoned: %w", err)
	}

	t.n++
	if t.n > t.maxn-estimateHeadroom {
		t.maxn = t.n + estimateBump
		if !t.task.IsSummary() {
			t.estimates.raise(t.maxn)
		}
	}

	now := t.clock.Now()
	t.task.SetProgress(vetting.NewProgress(t.n, t.maxn, now))

	if t.limiter.AllowN(now, 1) {
		t.task.SetStatusLine(t.statusLine(now))
	}
	return nil
}

func (t *tracker) statusLine(now time.Time) string {
	if t.n <= remainingEstimateAfter {
		return fmt.Sprintf("Processed %d of about %d items", t.n, t.maxn)
	}

	elapsed := now.Sub(t.start)
	remaining := time.Duration(float64(elapsed) / float64(t.n) * float64(t.maxn-t.n))
	if remaining <= finishingThreshold {
		return "Finishing..."
	}
	return fmt.Sprintf("%s remaining", formatDuration(remaining))
}

// Done marks the computation finished.
func (t *tracker) Done() {
	t.task.SetProgress(vetting.NewProgress(t.n, t.maxn, t.clock.Now()))
	t.task.SetStatusLine("Done!")
}

// Stopped reports whether the computation should stop producing output.
func (t *tracker) Stopped() bool {
	return t.task.StopRequested() || t.ctx.Err() != nil
}
