package vetting

import (
	"errors"
	"fmt"
)

// Level is an ordinal classification of how much of a locale's data is
// expected to be reviewed for a given organization. Higher values cover more.
type Level int

// ErrLevelUnknown is returned when a coverage level cannot be parsed.
var ErrLevelUnknown = errors.New("coverage level unknown")

const (
	// LevelUndetermined means no explicit coverage level is configured.
	LevelUndetermined Level = 0

	// LevelCore covers only the minimal locale data.
	LevelCore Level = 10

	// LevelBasic covers data needed for basic usability.
	LevelBasic Level = 40

	// LevelModerate covers data for a typical deployment.
	LevelModerate Level = 60

	// LevelModern covers everything in common modern use.
	LevelModern Level = 80

	// LevelComprehensive covers the entire data set.
	LevelComprehensive Level = 100
)

// KnownLevels returns every explicit coverage level in ascending order.
func KnownLevels() []Level {
	return []Level{LevelCore, LevelBasic, LevelModerate, LevelModern, LevelComprehensive}
}

// String returns the lowercase name of the coverage level.
func (l Level) String() string {
	switch l {
	case LevelCore:
		return "core"
	case LevelBasic:
		return "basic"
	case LevelModerate:
		return "moderate"
	case LevelModern:
		return "modern"
	case LevelComprehensive:
		return "comprehensive"
	default:
		return "undetermined"
	}
}

// ParseLevel converts a string to a Level.
func ParseLevel(s string) (Level, error) {
	switch s {
	case "core":
		return LevelCore, nil
	case "basic":
		return LevelBasic, nil
	case "moderate":
		return LevelModerate, nil
	case "modern":
		return LevelModern, nil
	case "comprehensive":
		return LevelComprehensive, nil
	default:
		return LevelUndetermined, fmt.Errorf("%w: %q", ErrLevelUnknown, s)
	}
}

// Organization is the requester's affiliated reviewing body. It is used both
// for filtering which problems are visible and for partitioning cached
// report output per organization.
type Organization string

// OrganizationInternal is the privileged organization operating the vetting
// tool itself. It sees a restricted problem-category set and its summary
// report only spans the top coverage level.
const OrganizationInternal Organization = "internal"

// String returns the organization name.
func (o Organization) String() string { return string(o) }

// IsInternal reports whether this is the privileged internal organization.
func (o Organization) IsInternal() bool { return o == OrganizationInternal }
