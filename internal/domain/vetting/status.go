package vetting

import (
	"errors"
	"fmt"
)

// Status represents the lifecycle state of a review task. Callers poll it;
// absence of a ready result is a status, never an error.
type Status string

// ErrStatusUnknown is returned when a task status is unknown.
var ErrStatusUnknown = errors.New("task status unknown")

const (
	// StatusWaiting indicates a task is queued behind the execution permit.
	StatusWaiting Status = "WAITING"

	// StatusProcessing indicates a task holds the permit and is computing.
	StatusProcessing Status = "PROCESSING"

	// StatusReady indicates the task's output has been published to the
	// session's output cache.
	StatusReady Status = "READY"

	// StatusStopped indicates the task was cancelled, superseded, or failed.
	StatusStopped Status = "STOPPED"

	// StatusUnspecified is used when a task status is unknown.
	StatusUnspecified Status = "UNSPECIFIED"
)

// String returns the string representation of the Status.
func (s Status) String() string { return string(s) }

// IsTerminal reports whether the status is final. A task never leaves a
// terminal status.
func (s Status) IsTerminal() bool { return s == StatusReady || s == StatusStopped }

// ParseStatus converts a string to a Status.
func ParseStatus(v string) Status {
	switch v {
	case "WAITING":
		return StatusWaiting
	case "PROCESSING":
		return StatusProcessing
	case "READY":
		return StatusReady
	case "STOPPED":
		return StatusStopped
	default:
		return StatusUnspecified
	}
}

// validateTransition checks if a status transition is valid and returns an error if not.
func (s Status) validateTransition(target Status) error {
	if !s.isValidTransition(target) {
		return fmt.Errorf("invalid task status transition from %s to %s", s, target)
	}
	return nil
}

// isValidTransition checks if the current status can transition to the target
// status. WAITING may be stopped before it ever runs; READY is reachable only
// from PROCESSING.
func (s Status) isValidTransition(target Status) bool {
	switch s {
	case StatusWaiting:
		return target == StatusProcessing || target == StatusStopped
	case StatusProcessing:
		return target == StatusReady || target == StatusStopped
	case StatusReady, StatusStopped:
		// Terminal states - no further transitions allowed.
		return false
	default:
		return false
	}
}
