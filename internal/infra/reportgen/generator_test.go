package reportgen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// pathData is one path's values for the map-backed fakes.
type pathData struct {
	winning  string
	baseline string
	english  string
	status   vetting.VoteStatus
}

type mapResolver struct {
	paths map[string]pathData
}

func (r *mapResolver) WinningValue(path string) string  { return r.paths[path].winning }
func (r *mapResolver) BaselineValue(path string) string { return r.paths[path].baseline }
func (r *mapResolver) EnglishValue(path string) string  { return r.paths[path].english }
func (r *mapResolver) VoteStatus(path string, org vetting.Organization) vetting.VoteStatus {
	if d, ok := r.paths[path]; ok && d.status != "" {
		return d.status
	}
	return vetting.VoteStatusOK
}

type mapSource struct {
	locales map[vetting.Locale]*mapResolver
}

func (s *mapSource) ResolverForLocale(ctx context.Context, locale vetting.Locale) (vetting.VoteResolver, error) {
	r, ok := s.locales[locale]
	if !ok {
		return nil, errors.New("no data for locale " + string(locale))
	}
	return r, nil
}

func (s *mapSource) Paths(ctx context.Context, locale vetting.Locale) ([]string, error) {
	r, ok := s.locales[locale]
	if !ok {
		return nil, errors.New("no data for locale " + string(locale))
	}
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	return paths, nil
}

type fakeRecorder struct {
	advances int
	failAt   int
	stopped  bool
}

func (r *fakeRecorder) Advance() error {
	r.advances++
	if r.failAt > 0 && r.advances >= r.failAt {
		return errors.New("computation abandoned")
	}
	return nil
}

func (r *fakeRecorder) Done() {}

func (r *fakeRecorder) Stopped() bool { return r.stopped }

func testSource() *mapSource {
	return &mapSource{locales: map[vetting.Locale]*mapResolver{
		"en": {paths: map[string]pathData{
			"//dates/months/1": {winning: "January", english: "January"},
			"//dates/months/2": {winning: "February", english: "February"},
			"//greeting":       {winning: "Hello {0}!", english: "Hello {0}!"},
		}},
		"de": {paths: map[string]pathData{
			// English changed since last review.
			"//dates/months/1": {winning: "Januar", baseline: "Januar", english: "Jan."},
			// Winning drifted from the baseline; vote is disputed.
			"//dates/months/2": {winning: "Feber", baseline: "Februar", english: "February", status: vetting.VoteStatusDisputed},
			// Unbalanced placeholder.
			"//greeting": {winning: "Hallo {0!", baseline: "Hallo {0!", english: "Hello {0}!"},
		}},
		"fr": {paths: map[string]pathData{
			// Missing value.
			"//dates/months/1": {},
			// Trailing whitespace; not yet approved.
			"//dates/months/2": {winning: "février ", baseline: "février ", english: "February", status: vetting.VoteStatusProvisional},
			"//greeting":       {winning: "Bonjour {0}!", baseline: "Bonjour {0}!", english: "Hello {0}!"},
		}},
	}}
}

func testCoverage() *tableCoverage {
	return &tableCoverage{locales: map[vetting.Organization]map[vetting.Level][]vetting.Locale{
		"acme": {
			vetting.LevelModern:        {"de"},
			vetting.LevelComprehensive: {"fr"},
		},
		vetting.OrganizationInternal: {
			vetting.LevelModern:        {"de", "fr"},
			vetting.LevelComprehensive: {"de"},
		},
	}}
}

type tableCoverage struct {
	locales map[vetting.Organization]map[vetting.Level][]vetting.Locale
}

func (c *tableCoverage) Levels() []vetting.Level { return vetting.KnownLevels() }

func (c *tableCoverage) LocalesAtLevel(org vetting.Organization, level vetting.Level) []vetting.Locale {
	return c.locales[org][level]
}

func newTestGenerator() (*Generator, *mapSource) {
	source := testSource()
	gen := New(source, testCoverage(), tracenoop.NewTracerProvider().Tracer("test"))
	return gen, source
}

func notificationFor(report *vetting.Report, cat vetting.ProblemCategory) *vetting.Notification {
	for i := range report.Notifications {
		if report.Notifications[i].Category == cat {
			return &report.Notifications[i]
		}
	}
	return nil
}

func TestGenerate_SingleLocale(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	rec := new(fakeRecorder)

	report, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       "de",
		Organization: "acme",
		Level:        vetting.LevelModern,
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, 3, rec.advances, "one advance per path")
	assert.Contains(t, report.Text, "Review Report for German")

	englishChanged := notificationFor(report, vetting.ProblemEnglishChanged)
	require.NotNil(t, englishChanged)
	require.Len(t, englishChanged.Entries, 1)
	assert.Equal(t, "//dates/months/1", englishChanged.Entries[0].Path)
	assert.Equal(t, "Jan.", englishChanged.Entries[0].PreviousEnglish)
	assert.Equal(t, "January", englishChanged.Entries[0].English)

	baselineChanged := notificationFor(report, vetting.ProblemBaselineChanged)
	require.NotNil(t, baselineChanged)
	assert.Equal(t, "//dates/months/2", baselineChanged.Entries[0].Path)

	disputed := notificationFor(report, vetting.ProblemDisputed)
	require.NotNil(t, disputed)

	errs := notificationFor(report, vetting.ProblemError)
	require.NotNil(t, errs)
	assert.Equal(t, "//greeting", errs.Entries[0].Path)
	assert.Equal(t, "unbalanced-placeholder", errs.Entries[0].Code)
}

func TestGenerate_FiltersByCategory(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	report, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       "de",
		Organization: "acme",
		Categories:   []vetting.ProblemCategory{vetting.ProblemError},
		Resolvers:    source,
	}, new(fakeRecorder))
	require.NoError(t, err)

	require.Len(t, report.Notifications, 1)
	assert.Equal(t, vetting.ProblemError, report.Notifications[0].Category)
}

func TestGenerate_MissingAndWhitespace(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	report, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       "fr",
		Organization: "acme",
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, new(fakeRecorder))
	require.NoError(t, err)

	missing := notificationFor(report, vetting.ProblemMissingCoverage)
	require.NotNil(t, missing)
	assert.Equal(t, "//dates/months/1", missing.Entries[0].Path)

	warnings := notificationFor(report, vetting.ProblemWarning)
	require.NotNil(t, warnings)
	assert.Equal(t, "surrounding-space", warnings.Entries[0].Code)

	notApproved := notificationFor(report, vetting.ProblemNotApproved)
	require.NotNil(t, notApproved)
	assert.Equal(t, "provisional", notApproved.Entries[0].Code)
}

func TestGenerate_Summary(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	rec := new(fakeRecorder)

	report, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       vetting.SummaryLocale,
		Organization: "acme",
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, rec)
	require.NoError(t, err)

	assert.Equal(t, 6, rec.advances, "both locales walked")
	assert.Contains(t, report.Text, "Priority Items Summary")

	// Summary findings carry locale-qualified paths.
	englishChanged := notificationFor(report, vetting.ProblemEnglishChanged)
	require.NotNil(t, englishChanged)
	assert.Equal(t, "de://dates/months/1", englishChanged.Entries[0].Path)
}

func TestGenerate_SummaryInternalTopLevelOnly(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	rec := new(fakeRecorder)

	_, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       vetting.SummaryLocale,
		Organization: vetting.OrganizationInternal,
		Categories:   vetting.CategoriesForOrganization(vetting.OrganizationInternal),
		Resolvers:    source,
	}, rec)
	require.NoError(t, err)

	// Only de sits at the top level for the internal organization.
	assert.Equal(t, 3, rec.advances)
}

func TestGenerate_SummaryWithoutCoverageFails(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	_, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       vetting.SummaryLocale,
		Organization: "unknown",
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, new(fakeRecorder))
	assert.Error(t, err)
}

func TestGenerate_StopsCooperatively(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()

	t.Run("stopped before a locale", func(t *testing.T) {
		t.Parallel()
		_, err := gen.Generate(context.Background(), vetting.ReportRequest{
			Locale:       "de",
			Organization: "acme",
			Categories:   vetting.AllProblemCategories(),
			Resolvers:    source,
		}, &fakeRecorder{stopped: true})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("advance failure aborts mid-walk", func(t *testing.T) {
		t.Parallel()
		rec := &fakeRecorder{failAt: 2}
		_, err := gen.Generate(context.Background(), vetting.ReportRequest{
			Locale:       "de",
			Organization: "acme",
			Categories:   vetting.AllProblemCategories(),
			Resolvers:    source,
		}, rec)
		require.Error(t, err)
		assert.Equal(t, 2, rec.advances)
	})
}

func TestGenerate_NoFindings(t *testing.T) {
	t.Parallel()

	source := &mapSource{locales: map[vetting.Locale]*mapResolver{
		"en": {paths: map[string]pathData{
			"//greeting": {winning: "Hello", english: "Hello"},
		}},
		"ja": {paths: map[string]pathData{
			"//greeting": {winning: "こんにちは", baseline: "こんにちは", english: "Hello"},
		}},
	}}
	gen := New(source, testCoverage(), tracenoop.NewTracerProvider().Tracer("test"))

	report, err := gen.Generate(context.Background(), vetting.ReportRequest{
		Locale:       "ja",
		Organization: "acme",
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, new(fakeRecorder))
	require.NoError(t, err)
	assert.Empty(t, report.Notifications)
	assert.Contains(t, report.Text, "No items need review.")
}

func TestPathProblems(t *testing.T) {
	t.Parallel()

	gen, source := newTestGenerator()
	problems, err := gen.PathProblems(context.Background(), vetting.ReportRequest{
		Locale:       "de",
		Organization: "acme",
		Categories:   vetting.AllProblemCategories(),
		Resolvers:    source,
	}, "//greeting")
	require.NoError(t, err)

	require.Len(t, problems, 1)
	assert.Equal(t, vetting.ProblemError, problems[0].Category)
	assert.Equal(t, "unbalanced-placeholder", problems[0].Code)
}
