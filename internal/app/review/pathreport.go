package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// ErrSummaryNotSupported is returned when a single-path report is requested
// for the summary locale, which has no per-path view.
var ErrSummaryNotSupported = errors.New("summary locale has no per-path report")

// PathReport computes the problems for a single path synchronously. It is
// the one deliberate exception to the single-permit rule: a single path is
// cheap enough to compute inline, and waiting behind a full report run
// would make the per-path view useless.
func (q *Queue) PathReport(ctx context.Context, locale vetting.Locale, org vetting.Organization, level vetting.Level, path string) ([]vetting.Problem, error) {
	if locale.IsSummary() {
		return nil, ErrSummaryNotSupported
	}
	if path == "" {
		return nil, errors.New("path is required")
	}

	problems, err := q.generator.PathProblems(ctx, vetting.ReportRequest{
		Locale:       locale,
		Organization: org,
		Level:        level,
		Categories:   vetting.CategoriesForOrganization(org),
		Resolvers:    q.resolvers,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("computing path report for %q in %q: %w", path, locale, err)
	}
	return problems, nil
}
