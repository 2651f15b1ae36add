// Package metrics defines the instrumentation surface of the review queue.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// QueueMetrics defines metrics operations needed by the review queue.
type QueueMetrics interface {
	// Task lifecycle metrics.
	IncTasksStarted(ctx context.Context)
	IncTasksCompleted(ctx context.Context)
	IncTasksStopped(ctx context.Context)

	// Permit queue metrics.
	AddUsersWaiting(ctx context.Context, delta int64)

	// Report generation metrics.
	ObserveReportDuration(ctx context.Context, duration time.Duration)

	// Output cache metrics.
	IncOutputCacheHit(ctx context.Context)
	IncOutputCacheMiss(ctx context.Context)
}

// Queue implements QueueMetrics on OpenTelemetry instruments.
type Queue struct {
	tasksStarted   metric.Int64Counter
	tasksCompleted metric.Int64Counter
	tasksStopped   metric.Int64Counter

	usersWaiting metric.Int64UpDownCounter

	reportDuration metric.Float64Histogram

	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

const namespace = "review_queue"

// New creates a new Queue metrics instance.
func New(mp metric.MeterProvider) (*Queue, error) {
	meter := mp.Meter(namespace, metric.WithInstrumentationVersion("v0.1.0"))

	q := new(Queue)
	var err error

	if q.tasksStarted, err = meter.Int64Counter(
		"tasks_started_total",
		metric.WithDescription("Total number of review tasks started"),
	); err != nil {
		return nil, err
	}

	if q.tasksCompleted, err = meter.Int64Counter(
		"tasks_completed_total",
		metric.WithDescription("Total number of review tasks that published output"),
	); err != nil {
		return nil, err
	}

	if q.tasksStopped, err = meter.Int64Counter(
		"tasks_stopped_total",
		metric.WithDescription("Total number of review tasks stopped, superseded, or failed"),
	); err != nil {
		return nil, err
	}

	if q.usersWaiting, err = meter.Int64UpDownCounter(
		"users_waiting",
		metric.WithDescription("Number of tasks queued on the execution permit"),
	); err != nil {
		return nil, err
	}

	if q.reportDuration, err = meter.Float64Histogram(
		"report_duration_seconds",
		metric.WithDescription("Time spent generating review reports"),
	); err != nil {
		return nil, err
	}

	if q.cacheHits, err = meter.Int64Counter(
		"output_cache_hits_total",
		metric.WithDescription("Total number of output cache hits"),
	); err != nil {
		return nil, err
	}

	if q.cacheMisses, err = meter.Int64Counter(
		"output_cache_misses_total",
		metric.WithDescription("Total number of output cache misses"),
	); err != nil {
		return nil, err
	}

	return q, nil
}

// IncTasksStarted increments the started-task counter.
func (q *Queue) IncTasksStarted(ctx context.Context) { q.tasksStarted.Add(ctx, 1) }

// IncTasksCompleted increments the completed-task counter.
func (q *Queue) IncTasksCompleted(ctx context.Context) { q.tasksCompleted.Add(ctx, 1) }

// IncTasksStopped increments the stopped-task counter.
func (q *Queue) IncTasksStopped(ctx context.Context) { q.tasksStopped.Add(ctx, 1) }

// AddUsersWaiting adjusts the permit-waiters gauge.
func (q *Queue) AddUsersWaiting(ctx context.Context, delta int64) { q.usersWaiting.Add(ctx, delta) }

// ObserveReportDuration records the duration of one report generation.
func (q *Queue) ObserveReportDuration(ctx context.Context, duration time.Duration) {
	q.reportDuration.Record(ctx, duration.Seconds())
}

// IncOutputCacheHit increments the cache-hit counter.
func (q *Queue) IncOutputCacheHit(ctx context.Context) { q.cacheHits.Add(ctx, 1) }

// IncOutputCacheMiss increments the cache-miss counter.
func (q *Queue) IncOutputCacheMiss(ctx context.Context) { q.cacheMisses.Add(ctx, 1) }

// Noop implements QueueMetrics without recording anything.
type Noop struct{}

func (Noop) IncTasksStarted(context.Context)                      {}
func (Noop) IncTasksCompleted(context.Context)                    {}
func (Noop) IncTasksStopped(context.Context)                      {}
func (Noop) AddUsersWaiting(context.Context, int64)               {}
func (Noop) ObserveReportDuration(context.Context, time.Duration) {}
func (Noop) IncOutputCacheHit(context.Context)                    {}
func (Noop) IncOutputCacheMiss(context.Context)                   {}
