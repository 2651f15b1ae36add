package vetting

// ProblemCategory classifies why a path needs review.
type ProblemCategory string

const (
	// ProblemError indicates the winning value fails validation.
	ProblemError ProblemCategory = "error"

	// ProblemWarning indicates the winning value looks suspect.
	ProblemWarning ProblemCategory = "warning"

	// ProblemEnglishChanged indicates the English source changed since the
	// value was last reviewed.
	ProblemEnglishChanged ProblemCategory = "englishChanged"

	// ProblemBaselineChanged indicates the winning value differs from the
	// baseline value.
	ProblemBaselineChanged ProblemCategory = "baselineChanged"

	// ProblemDisputed indicates the path has conflicting votes.
	ProblemDisputed ProblemCategory = "hasDispute"

	// ProblemNotApproved indicates the winning value lacks approving votes.
	ProblemNotApproved ProblemCategory = "notApproved"

	// ProblemMissingCoverage indicates the path has no value at the
	// requested coverage level.
	ProblemMissingCoverage ProblemCategory = "missingCoverage"
)

// AllProblemCategories returns every problem category.
func AllProblemCategories() []ProblemCategory {
	return []ProblemCategory{
		ProblemError,
		ProblemWarning,
		ProblemEnglishChanged,
		ProblemBaselineChanged,
		ProblemDisputed,
		ProblemNotApproved,
		ProblemMissingCoverage,
	}
}

// CategoriesForOrganization returns the problem categories visible to an
// organization. The internal organization sees only the actionable subset.
func CategoriesForOrganization(org Organization) []ProblemCategory {
	if org.IsInternal() {
		return []ProblemCategory{ProblemError, ProblemWarning, ProblemDisputed, ProblemNotApproved}
	}
	return AllProblemCategories()
}

// Problem is a single reviewable finding on one path.
type Problem struct {
	Category        ProblemCategory `json:"category"`
	Code            string          `json:"code"`
	Path            string          `json:"path"`
	English         string          `json:"english,omitempty"`
	PreviousEnglish string          `json:"previousEnglish,omitempty"`
	Baseline        string          `json:"baseline,omitempty"`
	Winning         string          `json:"winning,omitempty"`
	Comment         string          `json:"comment,omitempty"`
}

// Notification groups problems that share a category heading.
type Notification struct {
	Category ProblemCategory `json:"category"`
	Entries  []Problem       `json:"entries"`
}

// Report is the structured result of one report computation, together with
// its rendered text form.
type Report struct {
	Text          string
	Notifications []Notification
}
