package resolvers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

type stubResolver struct{ locale vetting.Locale }

func (stubResolver) WinningValue(string) string  { return "" }
func (stubResolver) BaselineValue(string) string { return "" }
func (stubResolver) EnglishValue(string) string  { return "" }
func (stubResolver) VoteStatus(string, vetting.Organization) vetting.VoteStatus {
	return vetting.VoteStatusOK
}

type countingSource struct {
	mu     sync.Mutex
	builds map[vetting.Locale]int
	err    error
}

func newCountingSource() *countingSource {
	return &countingSource{builds: make(map[vetting.Locale]int)}
}

func (s *countingSource) ResolverForLocale(ctx context.Context, locale vetting.Locale) (vetting.VoteResolver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.builds[locale]++
	return stubResolver{locale: locale}, nil
}

func (s *countingSource) buildCount(locale vetting.Locale) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds[locale]
}

func TestCache_HitAvoidsRebuild(t *testing.T) {
	t.Parallel()

	source := newCountingSource()
	cache := New(source, 4)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cache.ResolverForLocale(ctx, "de")
		require.NoError(t, err)
	}

	assert.Equal(t, 1, source.buildCount("de"))
	hits, misses := cache.Stats()
	assert.Equal(t, int64(2), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	source := newCountingSource()
	cache := New(source, 2)
	ctx := context.Background()

	_, err := cache.ResolverForLocale(ctx, "de")
	require.NoError(t, err)
	_, err = cache.ResolverForLocale(ctx, "fr")
	require.NoError(t, err)

	// Touch de so fr becomes the eviction candidate.
	_, err = cache.ResolverForLocale(ctx, "de")
	require.NoError(t, err)

	_, err = cache.ResolverForLocale(ctx, "ja")
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	// fr was evicted and rebuilds; de did not.
	_, err = cache.ResolverForLocale(ctx, "fr")
	require.NoError(t, err)
	assert.Equal(t, 2, source.buildCount("fr"))
	assert.Equal(t, 1, source.buildCount("de"))
}

func TestCache_DefaultCapacity(t *testing.T) {
	t.Parallel()

	source := newCountingSource()
	cache := New(source, 0)
	ctx := context.Background()

	locales := []vetting.Locale{"de", "fr", "ja", "zh", "pt", "es", "it", "nl", "ko"}
	for _, l := range locales {
		_, err := cache.ResolverForLocale(ctx, l)
		require.NoError(t, err)
	}
	assert.Equal(t, DefaultCapacity, cache.Len())

	// The oldest entry fell out.
	_, err := cache.ResolverForLocale(ctx, "de")
	require.NoError(t, err)
	assert.Equal(t, 2, source.buildCount("de"))
}

func TestCache_SourceErrorNotCached(t *testing.T) {
	t.Parallel()

	source := newCountingSource()
	source.err = errors.New("data unavailable")
	cache := New(source, 2)

	_, err := cache.ResolverForLocale(context.Background(), "de")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	source.mu.Lock()
	source.err = nil
	source.mu.Unlock()

	_, err = cache.ResolverForLocale(context.Background(), "de")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.Len())
}
