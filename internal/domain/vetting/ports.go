package vetting

import "context"

// ProgressRecorder is invoked cooperatively by the report generation
// algorithm. Implementations throttle user-visible updates; the generator
// is expected to call Advance once per work unit and check Stopped at
// reasonable intervals.
type ProgressRecorder interface {
	// Advance records one completed work unit. It returns an error when the
	// computation has been abandoned and must abort; this is the only point
	// at which the recorder forces early termination.
	Advance() error

	// Done marks the computation finished with a terminal status line.
	Done()

	// Stopped reports whether the computation should stop producing output.
	Stopped() bool
}

// VoteStatus summarizes the vote state of one path for an organization.
type VoteStatus string

const (
	// VoteStatusOK means the organization's vote agrees with the winner.
	VoteStatusOK VoteStatus = "ok"

	// VoteStatusProvisional means the winning value lacks enough votes.
	VoteStatusProvisional VoteStatus = "provisional"

	// VoteStatusLosing means the organization voted for a losing value.
	VoteStatusLosing VoteStatus = "losing"

	// VoteStatusDisputed means the path has conflicting votes.
	VoteStatusDisputed VoteStatus = "disputed"
)

// VoteResolver resolves winning values, baseline values, and per-path vote
// state for one locale. Obtaining one may be expensive; the queue keeps a
// small recency cache of them.
type VoteResolver interface {
	// WinningValue returns the current winning value for a path, taking
	// recent votes into account.
	WinningValue(path string) string

	// BaselineValue returns the value currently checked into version
	// control for a path.
	BaselineValue(path string) string

	// EnglishValue returns the English source value a path's translation
	// was last reviewed against. Comparing it with the reference locale's
	// current winning value detects stale translations.
	EnglishValue(path string) string

	// VoteStatus returns the vote state of a path as seen by an organization.
	VoteStatus(path string, org Organization) VoteStatus
}

// ResolverSource produces per-locale vote resolution handles.
type ResolverSource interface {
	ResolverForLocale(ctx context.Context, locale Locale) (VoteResolver, error)
}

// ReportRequest carries everything the report generator needs for one run.
type ReportRequest struct {
	Locale       Locale
	Organization Organization
	Level        Level
	Categories   []ProblemCategory
	Resolvers    ResolverSource
}

// ReportGenerator produces review reports. Implementations must call the
// progress recorder once per processed item and must check Stopped to stop
// early; a run can be long and cancellation is cooperative, not pre-emptive.
type ReportGenerator interface {
	// Generate produces the full report for the request. For the summary
	// locale it aggregates over every locale visible to the organization.
	Generate(ctx context.Context, req ReportRequest, rec ProgressRecorder) (*Report, error)

	// PathProblems produces the problems for a single path. It must be
	// cheap enough to run inline, unqueued.
	PathProblems(ctx context.Context, req ReportRequest, path string) ([]Problem, error)
}

// PathCounter estimates the number of reviewable items in the reference data
// file. The count is expensive, so callers memoize it per process.
type PathCounter interface {
	CountReviewableItems(ctx context.Context) (int, error)
}

// CoverageReader exposes organization and coverage-level metadata.
type CoverageReader interface {
	// Levels returns every known explicit coverage level, ascending.
	Levels() []Level

	// LocalesAtLevel returns the locales configured at exactly the given
	// explicit level for an organization.
	LocalesAtLevel(org Organization, level Level) []Locale
}
