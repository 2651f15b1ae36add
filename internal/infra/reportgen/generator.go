// Package reportgen implements report generation over locale data. It walks
// the reviewable paths of one locale (or, for the summary report, of every
// locale an organization reviews), classifies each path's problems, and
// renders the result.
package reportgen

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// PathSource lists the reviewable paths of a locale.
type PathSource interface {
	Paths(ctx context.Context, locale vetting.Locale) ([]string, error)
}

// referenceLocale supplies the current English values problems are compared
// against.
const referenceLocale = vetting.Locale("en")

// Generator implements vetting.ReportGenerator over a path source and a
// coverage table.
type Generator struct {
	paths    PathSource
	coverage vetting.CoverageReader
	tracer   trace.Tracer
}

var _ vetting.ReportGenerator = (*Generator)(nil)

// New creates a Generator.
func New(paths PathSource, coverage vetting.CoverageReader, tracer trace.Tracer) *Generator {
	return &Generator{paths: paths, coverage: coverage, tracer: tracer}
}

// Generate produces the full report for the request. Cancellation is
// cooperative: the recorder's Advance error aborts the walk between paths.
func (g *Generator) Generate(ctx context.Context, req vetting.ReportRequest, rec vetting.ProgressRecorder) (*vetting.Report, error) {
	ctx, span := g.tracer.Start(ctx, "reportgen.generate",
		trace.WithAttributes(
			attribute.String("locale", string(req.Locale)),
			attribute.String("organization", string(req.Organization)),
		))
	defer span.End()

	locales, err := g.targetLocales(req)
	if err != nil {
		return nil, err
	}

	allowed := categorySet(req.Categories)
	byCategory := make(map[vetting.ProblemCategory][]vetting.Problem)

	reference, err := req.Resolvers.ResolverForLocale(ctx, referenceLocale)
	if err != nil {
		return nil, fmt.Errorf("loading reference locale: %w", err)
	}

	for _, locale := range locales {
		if rec.Stopped() {
			return nil, fmt.Errorf("report for %q: %w", req.Locale, context.Canceled)
		}

		resolver, err := req.Resolvers.ResolverForLocale(ctx, locale)
		if err != nil {
			return nil, fmt.Errorf("loading locale %q: %w", locale, err)
		}
		paths, err := g.paths.Paths(ctx, locale)
		if err != nil {
			return nil, fmt.Errorf("listing paths for %q: %w", locale, err)
		}
		sort.Strings(paths)

		for _, path := range paths {
			if err := rec.Advance(); err != nil {
				return nil, fmt.Errorf("report for %q: %w", req.Locale, err)
			}
			for _, p := range classify(resolver, reference, req.Organization, path) {
				if _, ok := allowed[p.Category]; !ok {
					continue
				}
				if req.Locale.IsSummary() {
					p.Path = string(locale) + ":" + p.Path
				}
				byCategory[p.Category] = append(byCategory[p.Category], p)
			}
		}
	}

	report := assemble(req.Locale, byCategory)
	span.AddEvent("report_assembled",
		trace.WithAttributes(attribute.Int("notifications", len(report.Notifications))))
	return report, nil
}

// PathProblems produces the problems for a single path, unfiltered by
// progress tracking. It must stay cheap; callers run it inline.
func (g *Generator) PathProblems(ctx context.Context, req vetting.ReportRequest, path string) ([]vetting.Problem, error) {
	resolver, err := req.Resolvers.ResolverForLocale(ctx, req.Locale)
	if err != nil {
		return nil, fmt.Errorf("loading locale %q: %w", req.Locale, err)
	}
	reference, err := req.Resolvers.ResolverForLocale(ctx, referenceLocale)
	if err != nil {
		return nil, fmt.Errorf("loading reference locale: %w", err)
	}

	allowed := categorySet(req.Categories)
	var out []vetting.Problem
	for _, p := range classify(resolver, reference, req.Organization, path) {
		if _, ok := allowed[p.Category]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// targetLocales resolves the request to the concrete locales to walk. The
// summary report spans every locale the organization has at an explicit
// coverage level; the internal organization only reviews the top level.
func (g *Generator) targetLocales(req vetting.ReportRequest) ([]vetting.Locale, error) {
	if !req.Locale.IsSummary() {
		return []vetting.Locale{req.Locale}, nil
	}

	levels := g.coverage.Levels()
	if req.Organization.IsInternal() && len(levels) > 0 {
		levels = levels[len(levels)-1:]
	}

	seen := make(map[vetting.Locale]bool)
	var locales []vetting.Locale
	for _, lv := range levels {
		for _, loc := range g.coverage.LocalesAtLevel(req.Organization, lv) {
			if !seen[loc] {
				seen[loc] = true
				locales = append(locales, loc)
			}
		}
	}
	if len(locales) == 0 {
		return nil, fmt.Errorf("organization %q has no locales at explicit coverage levels", req.Organization)
	}
	sort.Slice(locales, func(i, j int) bool { return locales[i] < locales[j] })
	return locales, nil
}

func categorySet(categories []vetting.ProblemCategory) map[vetting.ProblemCategory]struct{} {
	set := make(map[vetting.ProblemCategory]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

// classify derives every problem of one path in one locale.
func classify(resolver, reference vetting.VoteResolver, org vetting.Organization, path string) []vetting.Problem {
	winning := resolver.WinningValue(path)
	baseline := resolver.BaselineValue(path)
	reviewedEnglish := resolver.EnglishValue(path)
	currentEnglish := reference.WinningValue(path)

	var problems []vetting.Problem

	if winning == "" {
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemMissingCoverage,
			Code:     "missing",
			Path:     path,
			English:  currentEnglish,
			Comment:  "no winning value at this coverage level",
		})
		return problems
	}

	if strings.TrimSpace(winning) != winning {
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemWarning,
			Code:     "surrounding-space",
			Path:     path,
			Winning:  winning,
			Comment:  "winning value has leading or trailing whitespace",
		})
	}
	if strings.Count(winning, "{") != strings.Count(winning, "}") {
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemError,
			Code:     "unbalanced-placeholder",
			Path:     path,
			Winning:  winning,
			Comment:  "winning value has unbalanced placeholder braces",
		})
	}

	if reviewedEnglish != "" && currentEnglish != "" && reviewedEnglish != currentEnglish {
		problems = append(problems, vetting.Problem{
			Category:        vetting.ProblemEnglishChanged,
			Code:            "english-changed",
			Path:            path,
			English:         currentEnglish,
			PreviousEnglish: reviewedEnglish,
			Winning:         winning,
			Comment:         "English source changed since last review",
		})
	}

	if baseline != "" && winning != baseline {
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemBaselineChanged,
			Code:     "baseline-changed",
			Path:     path,
			Baseline: baseline,
			Winning:  winning,
			Comment:  "winning value differs from the baseline",
		})
	}

	switch resolver.VoteStatus(path, org) {
	case vetting.VoteStatusDisputed:
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemDisputed,
			Code:     "disputed",
			Path:     path,
			Winning:  winning,
			Comment:  "path has conflicting votes",
		})
	case vetting.VoteStatusProvisional:
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemNotApproved,
			Code:     "provisional",
			Path:     path,
			Winning:  winning,
			Comment:  "winning value lacks enough votes for approval",
		})
	case vetting.VoteStatusLosing:
		problems = append(problems, vetting.Problem{
			Category: vetting.ProblemNotApproved,
			Code:     "losing-vote",
			Path:     path,
			Winning:  winning,
			Comment:  "organization voted for a losing value",
		})
	}

	return problems
}

// assemble orders the findings into notifications and renders the text form.
func assemble(locale vetting.Locale, byCategory map[vetting.ProblemCategory][]vetting.Problem) *vetting.Report {
	var notifications []vetting.Notification
	for _, cat := range vetting.AllProblemCategories() {
		entries, ok := byCategory[cat]
		if !ok {
			continue
		}
		notifications = append(notifications, vetting.Notification{Category: cat, Entries: entries})
	}

	var b strings.Builder
	if locale.IsSummary() {
		b.WriteString("Priority Items Summary\n")
	} else {
		fmt.Fprintf(&b, "Review Report for %s\n", locale.DisplayName())
	}
	if len(notifications) == 0 {
		b.WriteString("\nNo items need review.\n")
	}
	for _, n := range notifications {
		fmt.Fprintf(&b, "\n## %s (%d)\n", n.Category, len(n.Entries))
		for _, p := range n.Entries {
			fmt.Fprintf(&b, "- %s: %s\n", p.Path, p.Comment)
		}
	}

	return &vetting.Report{Text: b.String(), Notifications: notifications}
}
