package vetting

import "time"

// Progress is an immutable point-in-time snapshot of a task's progress
// counters. The computation goroutine swaps whole snapshots in so that
// pollers always observe a consistent (items, estimate) pair.
type Progress struct {
	itemsProcessed int
	totalEstimate  int
	updatedAt      time.Time
}

// NewProgress creates a new Progress snapshot.
func NewProgress(itemsProcessed, totalEstimate int, updatedAt time.Time) Progress {
	return Progress{
		itemsProcessed: itemsProcessed,
		totalEstimate:  totalEstimate,
		updatedAt:      updatedAt,
	}
}

// ItemsProcessed returns the number of work units completed so far.
func (p Progress) ItemsProcessed() int { return p.itemsProcessed }

// TotalEstimate returns the estimated total number of work units.
func (p Progress) TotalEstimate() int { return p.totalEstimate }

// UpdatedAt returns the time the snapshot was taken.
func (p Progress) UpdatedAt() time.Time { return p.updatedAt }

// Fraction returns the completed fraction in [0, 1]. It is 0 when no
// estimate exists and clamped to 1 while the estimate lags behind a bump.
func (p Progress) Fraction() float64 {
	if p.totalEstimate <= 0 {
		return 0
	}
	f := float64(p.itemsProcessed) / float64(p.totalEstimate)
	if f > 1 {
		return 1
	}
	return f
}
