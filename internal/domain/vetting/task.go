package vetting

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Task is the unit of work: one report computation for a
// (locale, organization, coverage level) triple. It carries its own state
// machine, progress counters, and cancellation flag. The owning session's
// queue entry holds at most one live Task; once superseded the Task is
// detached but may still be read by a caller holding a reference, so all
// mutable state is guarded.
type Task struct {
	id        uuid.UUID
	locale    Locale
	org       Organization
	level     Level
	isSummary bool

	// stopRequested is the cooperative cancellation flag. It is set at most
	// once; the computation must observe it to stop promptly.
	stopRequested atomic.Bool

	// abandoned records that a successfully computed result was discarded
	// because nothing was waiting for it anymore. Distinct from an explicit
	// stop: abandonment is a normal outcome, not a failure.
	abandoned atomic.Bool

	mu         sync.Mutex
	status     Status
	statusLine string
	progress   Progress
	timeline   *Timeline
}

// TaskOption defines functional options for configuring a new Task.
type TaskOption func(*Task)

// WithTimeProvider sets a custom time provider for the task.
func WithTimeProvider(tp TimeProvider) TaskOption {
	return func(t *Task) { t.timeline = NewTimeline(tp) }
}

// NewTask creates a Task in WAITING state with an initial work estimate.
func NewTask(locale Locale, org Organization, level Level, totalEstimate int, opts ...TaskOption) *Task {
	task := &Task{
		id:         uuid.New(),
		locale:     locale,
		org:        org,
		level:      level,
		isSummary:  locale.IsSummary(),
		status:     StatusWaiting,
		statusLine: "Waiting for a spot in line",
		timeline:   NewTimeline(new(realTimeProvider)),
	}

	for _, opt := range opts {
		opt(task)
	}
	task.progress = NewProgress(0, totalEstimate, task.timeline.CreatedAt())

	return task
}

// ID returns the unique identifier for this task.
func (t *Task) ID() uuid.UUID { return t.id }

// Locale returns the locale this task computes a report for.
func (t *Task) Locale() Locale { return t.locale }

// Organization returns the requesting organization.
func (t *Task) Organization() Organization { return t.org }

// Level returns the requester's coverage level.
func (t *Task) Level() Level { return t.level }

// IsSummary reports whether this task targets the cross-locale summary report.
func (t *Task) IsSummary() bool { return t.isSummary }

// Status returns the current lifecycle status.
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// StatusLine returns the human-readable status line.
func (t *Task) StatusLine() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLine
}

// SetStatusLine replaces the human-readable status line.
func (t *Task) SetStatusLine(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.statusLine = line
	t.timeline.UpdateLastUpdate()
}

// Progress returns the latest progress snapshot.
func (t *Task) Progress() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// SetProgress swaps in a new progress snapshot.
func (t *Task) SetProgress(p Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress = p
	t.timeline.UpdateLastUpdate()
}

// StartedAt returns the time processing began, or the zero time.
func (t *Task) StartedAt() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeline.StartedAt()
}

// LastUpdate returns the time the task state last changed.
func (t *Task) LastUpdate() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timeline.LastUpdate()
}

// RequestStop sets the cooperative cancellation flag. It returns true the
// first time, false if a stop was already requested.
func (t *Task) RequestStop() bool { return t.stopRequested.CompareAndSwap(false, true) }

// StopRequested reports whether a stop has been requested.
func (t *Task) StopRequested() bool { return t.stopRequested.Load() }

// MarkAbandoned records that the task's output was discarded unpublished.
func (t *Task) MarkAbandoned() { t.abandoned.Store(true) }

// Abandoned reports whether the task's output was discarded unpublished.
func (t *Task) Abandoned() bool { return t.abandoned.Load() }

// Begin transitions the task from WAITING to PROCESSING once it holds the
// execution permit.
func (t *Task) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.status.validateTransition(StatusProcessing); err != nil {
		return err
	}
	t.status = StatusProcessing
	t.statusLine = "Beginning process, calculating"
	t.timeline.MarkStarted()
	return nil
}

// Ready transitions the task from PROCESSING to READY after its output has
// been published.
func (t *Task) Ready() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.status.validateTransition(StatusReady); err != nil {
		return err
	}
	t.status = StatusReady
	t.statusLine = "Finished"
	t.timeline.MarkCompleted()
	return nil
}

// Stop transitions the task to STOPPED with a short human-readable reason.
// It is valid from WAITING (cancelled before it ran) and from PROCESSING
// (cancelled mid-flight or failed). Stopping an already terminal task is a
// no-op so racing stop paths stay quiet.
func (t *Task) Stop(reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return nil
	}
	if err := t.status.validateTransition(StatusStopped); err != nil {
		return err
	}
	t.status = StatusStopped
	t.statusLine = reason
	t.timeline.MarkCompleted()
	return nil
}

// Snapshot returns a consistent view of the task for pollers.
func (t *Task) Snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskSnapshot{
		ID:             t.id,
		Locale:         t.locale,
		IsSummary:      t.isSummary,
		Status:         t.status,
		StatusLine:     t.statusLine,
		ItemsProcessed: t.progress.ItemsProcessed(),
		TotalEstimate:  t.progress.TotalEstimate(),
		Fraction:       t.progress.Fraction(),
		StartedAt:      t.timeline.StartedAt(),
		LastUpdate:     t.timeline.LastUpdate(),
	}
}

// TaskSnapshot is a consistent read of a task's observable state.
type TaskSnapshot struct {
	ID             uuid.UUID
	Locale         Locale
	IsSummary      bool
	Status         Status
	StatusLine     string
	ItemsProcessed int
	TotalEstimate  int
	Fraction       float64
	StartedAt      time.Time
	LastUpdate     time.Time
}
