// Package localedata reads locale value and vote data from a directory of
// YAML files, one per locale, plus a coverage table. It backs the
// ResolverSource, PathCounter, and CoverageReader ports.
package localedata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// referenceLocale is the locale whose file defines the reviewable path set.
const referenceLocale = vetting.Locale("en")

// pathEntry is one path's data as stored on disk.
type pathEntry struct {
	Winning  string         `yaml:"winning"`
	Baseline string         `yaml:"baseline"`
	English  string         `yaml:"english"`
	Votes    map[string]int `yaml:"votes,omitempty"`
}

// localeFile is the on-disk shape of one locale's data.
type localeFile struct {
	Locale string               `yaml:"locale"`
	Paths  map[string]pathEntry `yaml:"paths"`
}

// Store reads locale data files from a directory. Files are parsed on
// demand and held for the process lifetime; the data set is read-only while
// the service runs.
type Store struct {
	dir string

	mu     sync.Mutex
	loaded map[vetting.Locale]*localeFile
}

var _ vetting.ResolverSource = (*Store)(nil)
var _ vetting.PathCounter = (*Store)(nil)

// NewStore creates a Store over a data directory.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("locale data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("locale data path %q is not a directory", dir)
	}
	return &Store{dir: dir, loaded: make(map[vetting.Locale]*localeFile)}, nil
}

// Locales lists every locale with a data file present.
func (s *Store) Locales() ([]vetting.Locale, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing locale data directory: %w", err)
	}
	var locales []vetting.Locale
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		locales = append(locales, vetting.Locale(strings.TrimSuffix(name, ".yaml")))
	}
	return locales, nil
}

func (s *Store) load(locale vetting.Locale) (*localeFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lf, ok := s.loaded[locale]; ok {
		return lf, nil
	}

	raw, err := os.ReadFile(filepath.Join(s.dir, string(locale)+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("reading data for locale %q: %w", locale, err)
	}
	lf := new(localeFile)
	if err := yaml.Unmarshal(raw, lf); err != nil {
		return nil, fmt.Errorf("parsing data for locale %q: %w", locale, err)
	}
	s.loaded[locale] = lf
	return lf, nil
}

// CountReviewableItems counts the paths in the reference locale's file.
func (s *Store) CountReviewableItems(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lf, err := s.load(referenceLocale)
	if err != nil {
		return 0, err
	}
	return len(lf.Paths), nil
}

// ResolverForLocale builds a resolver over one locale's parsed file.
func (s *Store) ResolverForLocale(ctx context.Context, locale vetting.Locale) (vetting.VoteResolver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lf, err := s.load(locale)
	if err != nil {
		return nil, err
	}
	return &fileResolver{data: lf}, nil
}

// Paths returns the sorted-by-map-iteration path set of a locale. Callers
// that need stable order sort the result themselves.
func (s *Store) Paths(ctx context.Context, locale vetting.Locale) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lf, err := s.load(locale)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(lf.Paths))
	for p := range lf.Paths {
		paths = append(paths, p)
	}
	return paths, nil
}

// approvalThreshold is the vote weight below which a winning value counts
// as provisional.
const approvalThreshold = 4

// fileResolver answers vote questions from one locale's parsed file.
type fileResolver struct {
	data *localeFile
}

var _ vetting.VoteResolver = (*fileResolver)(nil)

func (r *fileResolver) WinningValue(path string) string {
	return r.data.Paths[path].Winning
}

func (r *fileResolver) BaselineValue(path string) string {
	return r.data.Paths[path].Baseline
}

func (r *fileResolver) EnglishValue(path string) string {
	return r.data.Paths[path].English
}

func (r *fileResolver) VoteStatus(path string, org vetting.Organization) vetting.VoteStatus {
	entry, ok := r.data.Paths[path]
	if !ok {
		return vetting.VoteStatusProvisional
	}

	winning, total := 0, 0
	distinct := 0
	for value, weight := range entry.Votes {
		total += weight
		if weight > 0 {
			distinct++
		}
		if value == entry.Winning {
			winning += weight
		}
	}

	switch {
	case distinct > 1 && winning*2 <= total:
		return vetting.VoteStatusDisputed
	case winning < approvalThreshold:
		return vetting.VoteStatusProvisional
	case entry.Votes[entry.Winning] == 0 && len(entry.Votes) > 0:
		return vetting.VoteStatusLosing
	default:
		return vetting.VoteStatusOK
	}
}
