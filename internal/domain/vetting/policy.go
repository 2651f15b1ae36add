package vetting

import (
	"errors"
	"fmt"
)

// LoadingPolicy controls what a request against the queue is allowed to do
// when no usable cached result exists.
type LoadingPolicy string

// ErrPolicyUnknown is returned when a loading policy cannot be parsed.
var ErrPolicyUnknown = errors.New("loading policy unknown")

const (
	// PolicyStart starts a new task if none is running for the session and
	// locale. This is the default.
	PolicyStart LoadingPolicy = "START"

	// PolicyNoStart only checks: it never creates a task and never mutates
	// the output cache.
	PolicyNoStart LoadingPolicy = "NOSTART"

	// PolicyForceRestart discards any cached entry for the key, stops any
	// running task for the session, and starts fresh.
	PolicyForceRestart LoadingPolicy = "FORCERESTART"

	// PolicyForceStop stops any running task for the session and starts
	// nothing.
	PolicyForceStop LoadingPolicy = "FORCESTOP"
)

// String returns the string representation of the LoadingPolicy.
func (p LoadingPolicy) String() string { return string(p) }

// ParseLoadingPolicy converts a string to a LoadingPolicy. The empty string
// parses to PolicyStart.
func ParseLoadingPolicy(s string) (LoadingPolicy, error) {
	switch s {
	case "", "START":
		return PolicyStart, nil
	case "NOSTART":
		return PolicyNoStart, nil
	case "FORCERESTART":
		return PolicyForceRestart, nil
	case "FORCESTOP":
		return PolicyForceStop, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrPolicyUnknown, s)
	}
}
