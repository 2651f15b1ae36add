package review

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// SessionID is the stable handle the identity layer supplies for one user
// session. The queue keys its per-session state on it.
type SessionID string

// outputKey partitions cached output per locale and per requesting
// organization; report contents depend on both.
type outputKey struct {
	locale vetting.Locale
	org    vetting.Organization
}

// cachedOutput is one completed report kept for the session's lifetime. The
// creation time is stored so the displayed age stays accurate across reads.
type cachedOutput struct {
	text          string
	notifications []vetting.Notification
	createdAt     time.Time
}

// render prefixes the report text with its age, computed at read time.
func (o *cachedOutput) render(now time.Time) string {
	return fmt.Sprintf("Last generated %s ago\n\n%s", formatDuration(now.Sub(o.createdAt)), o.text)
}

// sessionEntry holds one session's queue state: at most one live task and a
// cache of completed outputs. Its mutex serializes the queue's entry point
// per session, so concurrent callers for the same session block on each
// other, not on other sessions.
type sessionEntry struct {
	mu      sync.Mutex
	current *runningTask
	output  map[outputKey]*cachedOutput
}

func newSessionEntry() *sessionEntry {
	return &sessionEntry{output: make(map[outputKey]*cachedOutput)}
}

// runningTask pairs a task with the handle to its execution: the cancel
// function for cooperative interruption and a done channel standing in for
// thread liveness.
type runningTask struct {
	task   *vetting.Task
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// alive reports whether the task's goroutine is still running.
func (rt *runningTask) alive() bool {
	select {
	case <-rt.done:
		return false
	default:
		return true
	}
}

// formatDuration renders a duration for status text at a precision humans
// care about.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	if d >= time.Minute {
		return d.Round(time.Second).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
