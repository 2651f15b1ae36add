package review

import (
	"context"
	"fmt"
	"sync"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// estimator memoizes the expensive reviewable-item count of the reference
// data file. The count is taken once per process, lazily, and only ever
// corrected upward when a finished task observed more items than estimated.
type estimator struct {
	counter  vetting.PathCounter
	coverage vetting.CoverageReader

	mu   sync.Mutex
	base int // 0 until first counted
}

func newEstimator(counter vetting.PathCounter, coverage vetting.CoverageReader) *estimator {
	return &estimator{counter: counter, coverage: coverage}
}

// baseEstimate returns the memoized per-locale item count, counting on
// first use.
func (e *estimator) baseEstimate(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.base > 0 {
		return e.base, nil
	}
	n, err := e.counter.CountReviewableItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting reviewable items: %w", err)
	}
	e.base = n
	return n, nil
}

// raise corrects the memoized estimate upward. Downward corrections are
// ignored: a single sparse locale must not shrink the estimate for everyone.
func (e *estimator) raise(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.base > 0 && n > e.base {
		e.base = n
	}
}

// estimate returns the total work estimate for a task. An ordinary locale
// costs the base estimate. The summary report costs the base estimate once
// per locale configured at an explicit level the organization reviews at:
// every known level for regular organizations, only the top level for the
// privileged internal one.
func (e *estimator) estimate(ctx context.Context, locale vetting.Locale, org vetting.Organization) (int, error) {
	base, err := e.baseEstimate(ctx)
	if err != nil {
		return 0, err
	}
	if !locale.IsSummary() {
		return base, nil
	}

	levels := e.coverage.Levels()
	if org.IsInternal() && len(levels) > 0 {
		levels = levels[len(levels)-1:]
	}

	total := 0
	for _, lv := range levels {
		total += base * len(e.coverage.LocalesAtLevel(org, lv))
	}
	return total, nil
}
