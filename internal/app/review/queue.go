// Package review implements the background queue that computes review
// reports. Report generation is expensive, so the queue serializes all
// computation behind a single execution permit, keeps at most one live task
// per session, and caches completed output per (locale, organization) for
// the session's lifetime.
package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/localeforge/vetqueue/internal/app/review/metrics"
	"github.com/localeforge/vetqueue/internal/domain/vetting"
	"github.com/localeforge/vetqueue/pkg/common/logger"
)

// errStopRequested is the cancellation cause recorded when a task is
// stopped or superseded.
var errStopRequested = errors.New("stop requested")

// Request identifies what a session wants and how eagerly.
type Request struct {
	Session      SessionID
	Locale       vetting.Locale
	Organization vetting.Organization
	Level        vetting.Level
	Policy       vetting.LoadingPolicy
}

// StatusFields is the machine-readable half of a queue response, shaped for
// direct serialization into polling replies.
type StatusFields struct {
	IsSummary          bool      `json:"isSummary"`
	Locale             string    `json:"locale"`
	UsersWaiting       int64     `json:"usersWaiting"`
	TaskID             uuid.UUID `json:"taskId,omitempty"`
	Running            bool      `json:"running"`
	StatusCode         string    `json:"statusCode"`
	StatusLine         string    `json:"statusLine,omitempty"`
	Progress           int       `json:"progress"`
	ProgressMax        int       `json:"progressMax"`
	ProgressFraction   float64   `json:"progressFraction"`
	OtherLocaleRunning string    `json:"otherLocaleRunning,omitempty"`
	StoppedLocale      string    `json:"stoppedLocale,omitempty"`
}

// Result is one answer from the queue: either finished output, or the
// status of whatever is (or is not) in flight.
type Result struct {
	Status        vetting.Status
	Message       string
	Output        string
	Notifications []vetting.Notification
	Fields        StatusFields
}

// Config holds the queue's dependencies.
type Config struct {
	Generator vetting.ReportGenerator
	Coverage  vetting.CoverageReader
	Counter   vetting.PathCounter
	Resolvers vetting.ResolverSource

	Logger  *logger.Logger
	Tracer  trace.Tracer
	Metrics metrics.QueueMetrics

	// Clock is optional; tests inject a fake.
	Clock vetting.TimeProvider
}

// Queue owns all review-report scheduling for the process. At most one
// report computes at a time regardless of how many sessions ask.
type Queue struct {
	generator vetting.ReportGenerator
	coverage  vetting.CoverageReader
	resolvers vetting.ResolverSource
	estimates *estimator

	// permit is the process-wide execution slot. Weight one: report
	// generation is never concurrent with itself.
	permit *semaphore.Weighted

	// waiting counts tasks blocked on the permit plus the one holding it.
	waiting atomic.Int64

	mu      sync.Mutex
	entries map[SessionID]*sessionEntry

	log     *logger.Logger
	tracer  trace.Tracer
	metrics metrics.QueueMetrics
	clock   vetting.TimeProvider
}

// New creates a Queue from its dependencies.
func New(cfg Config) (*Queue, error) {
	if cfg.Generator == nil {
		return nil, errors.New("report generator is required")
	}
	if cfg.Coverage == nil {
		return nil, errors.New("coverage reader is required")
	}
	if cfg.Counter == nil {
		return nil, errors.New("path counter is required")
	}
	if cfg.Resolvers == nil {
		return nil, errors.New("resolver source is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Tracer == nil {
		return nil, errors.New("tracer is required")
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Noop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = vetting.NewRealTimeProvider()
	}

	return &Queue{
		generator: cfg.Generator,
		coverage:  cfg.Coverage,
		resolvers: cfg.Resolvers,
		estimates: newEstimator(cfg.Counter, cfg.Coverage),
		permit:    semaphore.NewWeighted(1),
		entries:   make(map[SessionID]*sessionEntry),
		log:       cfg.Logger,
		tracer:    cfg.Tracer,
		metrics:   cfg.Metrics,
		clock:     cfg.Clock,
	}, nil
}

// UsersWaiting returns the number of tasks currently queued on or holding
// the execution permit.
func (q *Queue) UsersWaiting() int64 { return q.waiting.Load() }

// RequestOrPoll is the queue's single entry point. Depending on the policy
// and the session's current state it returns cached output, reports the
// status of a task in flight, starts a new task, or stops one. Callers poll
// it repeatedly with the same request until Status is READY or STOPPED.
func (q *Queue) RequestOrPoll(ctx context.Context, req Request) (Result, error) {
	if req.Session == "" {
		return Result{}, errors.New("session id is required")
	}
	if req.Locale == "" {
		return Result{}, errors.New("locale is required")
	}
	policy := req.Policy
	if policy == "" {
		policy = vetting.PolicyStart
	}

	entry := q.entryFor(req.Session)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	key := outputKey{locale: req.Locale, org: req.Organization}
	force := policy == vetting.PolicyForceRestart

	// Finished output short-circuits everything except a forced restart.
	if out, ok := entry.output[key]; ok && !force {
		q.metrics.IncOutputCacheHit(ctx)
		return Result{
			Status:        vetting.StatusReady,
			Message:       "Output is ready",
			Output:        out.render(q.clock.Now()),
			Notifications: out.notifications,
			Fields:        q.statusFields(req.Locale, nil),
		}, nil
	}
	q.metrics.IncOutputCacheMiss(ctx)

	if force {
		q.stopCurrent(entry)
		delete(entry.output, key)
	}

	if policy == vetting.PolicyForceStop {
		q.stopCurrent(entry)
		return Result{
			Status:  vetting.StatusStopped,
			Message: "Stopped on request",
			Fields:  q.statusFields(req.Locale, nil),
		}, nil
	}

	// A live task for the same locale answers the poll itself.
	if rt := entry.current; rt != nil && rt.task.Locale() == req.Locale {
		snap := rt.task.Snapshot()
		if rt.alive() && !snap.Status.IsTerminal() {
			msg := snap.StatusLine
			if snap.Status == vetting.StatusWaiting {
				msg = fmt.Sprintf("%d in line. %s", q.waiting.Load(), msg)
			}
			return Result{
				Status:  snap.Status,
				Message: "In progress: " + msg,
				Fields:  q.statusFields(req.Locale, &snap),
			}, nil
		}
		// Terminal or dead. Any published output was already served by the
		// cache check above, so detach the stale handle and let the policy
		// decide what happens next.
		entry.current = nil
	}

	if policy == vetting.PolicyNoStart {
		if rt := entry.current; rt != nil && rt.alive() {
			other := rt.task.Locale()
			fields := q.statusFields(req.Locale, nil)
			fields.OtherLocaleRunning = string(other)
			return Result{
				Status:  vetting.StatusStopped,
				Message: "Another locale is loading: " + other.DisplayName(),
				Fields:  fields,
			}, nil
		}
		return Result{
			Status:  vetting.StatusStopped,
			Message: "Not loading. Reload to load.",
			Fields:  q.statusFields(req.Locale, nil),
		}, nil
	}

	// START (or forced restart past this point): supersede whatever the
	// session had running, then queue the new task.
	var stopped vetting.Locale
	if rt := entry.current; rt != nil && rt.alive() {
		stopped = rt.task.Locale()
	}
	q.stopCurrent(entry)

	total, err := q.estimates.estimate(ctx, req.Locale, req.Organization)
	if err != nil {
		return Result{}, fmt.Errorf("estimating work for %q: %w", req.Locale, err)
	}

	task := vetting.NewTask(req.Locale, req.Organization, req.Level, total,
		vetting.WithTimeProvider(q.clock))
	rt := q.start(entry, task)
	entry.current = rt

	msg := "Started new task: " + task.ID().String()
	if stopped != "" {
		msg = fmt.Sprintf("%s (stopped loading %s)", msg, stopped)
	}
	snap := task.Snapshot()
	fields := q.statusFields(req.Locale, &snap)
	fields.StoppedLocale = string(stopped)
	return Result{
		Status:  vetting.StatusWaiting,
		Message: msg,
		Fields:  fields,
	}, nil
}

func (q *Queue) entryFor(session SessionID) *sessionEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.entries[session]
	if !ok {
		entry = newSessionEntry()
		q.entries[session] = entry
	}
	return entry
}

// EndSession discards all queue state for a session: its live task is
// stopped and its cached output dropped.
func (q *Queue) EndSession(session SessionID) {
	q.mu.Lock()
	entry, ok := q.entries[session]
	delete(q.entries, session)
	q.mu.Unlock()
	if !ok {
		return
	}
	entry.mu.Lock()
	q.stopCurrent(entry)
	entry.mu.Unlock()
}

// stopCurrent requests a cooperative stop of the entry's live task and
// detaches it. Callers must hold entry.mu.
func (q *Queue) stopCurrent(entry *sessionEntry) {
	rt := entry.current
	if rt == nil {
		return
	}
	if rt.alive() && rt.task.RequestStop() {
		rt.cancel(errStopRequested)
	}
	entry.current = nil
}

// statusFields builds the machine-readable status block. snap may be nil
// when no task is relevant.
func (q *Queue) statusFields(locale vetting.Locale, snap *vetting.TaskSnapshot) StatusFields {
	f := StatusFields{
		IsSummary:    locale.IsSummary(),
		Locale:       string(locale),
		UsersWaiting: q.waiting.Load(),
		StatusCode:   string(vetting.StatusUnspecified),
	}
	if snap != nil {
		f.TaskID = snap.ID
		f.Running = !snap.Status.IsTerminal()
		f.StatusCode = string(snap.Status)
		f.StatusLine = snap.StatusLine
		f.Progress = snap.ItemsProcessed
		f.ProgressMax = snap.TotalEstimate
		f.ProgressFraction = snap.Fraction
	}
	return f
}

// start launches the task's goroutine and returns its running handle.
// Callers must hold entry.mu.
func (q *Queue) start(entry *sessionEntry, task *vetting.Task) *runningTask {
	ctx, cancel := context.WithCancelCause(context.Background())
	rt := &runningTask{
		task:   task,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	q.metrics.IncTasksStarted(ctx)
	go q.run(ctx, entry, rt)
	return rt
}

// run executes one task end to end: wait for the permit, generate, publish.
// The task outlives the request that created it, so it runs under its own
// context; only a stop or supersession cancels it.
func (q *Queue) run(ctx context.Context, entry *sessionEntry, rt *runningTask) {
	defer close(rt.done)
	task := rt.task

	ctx, span := q.tracer.Start(ctx, "review_queue.run_task",
		trace.WithAttributes(
			attribute.String("task_id", task.ID().String()),
			attribute.String("locale", string(task.Locale())),
			attribute.String("organization", string(task.Organization())),
			attribute.Bool("summary", task.IsSummary()),
		))
	defer span.End()

	q.waiting.Add(1)
	q.metrics.AddUsersWaiting(ctx, 1)
	err := q.permit.Acquire(ctx, 1)
	q.waiting.Add(-1)
	q.metrics.AddUsersWaiting(ctx, -1)
	if err != nil {
		span.AddEvent("stopped_before_start")
		_ = task.Stop("Stopped on request")
		q.metrics.IncTasksStopped(ctx)
		return
	}
	defer q.permit.Release(1)

	if task.StopRequested() {
		span.AddEvent("stopped_before_start")
		_ = task.Stop("Stopped on request")
		q.metrics.IncTasksStopped(ctx)
		return
	}

	if err := task.Begin(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to begin task")
		q.log.Error(ctx, "review queue: task failed to begin",
			"task_id", task.ID(), "error", err)
		return
	}
	span.AddEvent("processing_started")
	begin := q.clock.Now()

	rec := newTracker(ctx, task, q.estimates, q.clock)
	report, err := q.generator.Generate(ctx, vetting.ReportRequest{
		Locale:       task.Locale(),
		Organization: task.Organization(),
		Level:        task.Level(),
		Categories:   vetting.CategoriesForOrganization(task.Organization()),
		Resolvers:    q.resolvers,
	}, rec)
	elapsed := q.clock.Now().Sub(begin)
	q.metrics.ObserveReportDuration(ctx, elapsed)

	if err != nil {
		if task.StopRequested() || errors.Is(err, context.Canceled) || context.Cause(ctx) != nil {
			span.AddEvent("stopped_mid_flight")
			_ = task.Stop("Stopped on request")
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "report generation failed")
			q.log.Error(ctx, "review queue: report generation failed",
				"task_id", task.ID(), "locale", task.Locale(), "error", err)
			_ = task.Stop("Failed: " + err.Error())
		}
		q.metrics.IncTasksStopped(ctx)
		return
	}
	rec.Done()

	text := fmt.Sprintf("%s\n\nProcessing time: %s\n", report.Text, formatDuration(elapsed))

	// Publish only if this task is still the session's current one and was
	// not stopped in the window after its last Stopped check.
	entry.mu.Lock()
	published := entry.current == rt && !task.StopRequested()
	if published {
		entry.output[outputKey{locale: task.Locale(), org: task.Organization()}] = &cachedOutput{
			text:          text,
			notifications: report.Notifications,
			createdAt:     q.clock.Now(),
		}
	}
	entry.mu.Unlock()

	if !published {
		span.AddEvent("output_abandoned")
		task.MarkAbandoned()
		_ = task.Stop("Superseded")
		q.metrics.IncTasksStopped(ctx)
		q.log.Info(ctx, "review queue: task output abandoned",
			"task_id", task.ID(), "locale", task.Locale())
		return
	}

	if err := task.Ready(); err != nil {
		span.RecordError(err)
		q.log.Error(ctx, "review queue: task failed to finish",
			"task_id", task.ID(), "error", err)
		return
	}
	span.AddEvent("output_published")
	q.metrics.IncTasksCompleted(ctx)
	q.log.Info(ctx, "review queue: task completed",
		"task_id", task.ID(), "locale", task.Locale(),
		"organization", task.Organization(),
		"duration", elapsed.Round(time.Millisecond))
}
