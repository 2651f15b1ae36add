package localedata

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// coverageFile is the on-disk shape of the coverage table: organization to
// locale to coverage level name.
type coverageFile struct {
	Organizations map[string]map[string]string `yaml:"organizations"`
}

// Coverage is the parsed coverage table. It is immutable after load.
type Coverage struct {
	// byOrg maps organization -> level -> locales at exactly that level.
	byOrg map[vetting.Organization]map[vetting.Level][]vetting.Locale
}

var _ vetting.CoverageReader = (*Coverage)(nil)

// LoadCoverage parses the coverage table from a YAML file.
func LoadCoverage(path string) (*Coverage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading coverage table: %w", err)
	}

	var cf coverageFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("parsing coverage table: %w", err)
	}

	c := &Coverage{byOrg: make(map[vetting.Organization]map[vetting.Level][]vetting.Locale)}
	for orgName, locales := range cf.Organizations {
		org := vetting.Organization(orgName)
		levels := make(map[vetting.Level][]vetting.Locale)
		for localeName, levelName := range locales {
			level, err := vetting.ParseLevel(levelName)
			if err != nil {
				return nil, fmt.Errorf("coverage table entry %s/%s: %w", orgName, localeName, err)
			}
			levels[level] = append(levels[level], vetting.Locale(localeName))
		}
		for _, ls := range levels {
			sort.Slice(ls, func(i, j int) bool { return ls[i] < ls[j] })
		}
		c.byOrg[org] = levels
	}
	return c, nil
}

// Levels returns every known explicit coverage level, ascending.
func (c *Coverage) Levels() []vetting.Level { return vetting.KnownLevels() }

// LocalesAtLevel returns the locales an organization has configured at
// exactly the given level, sorted.
func (c *Coverage) LocalesAtLevel(org vetting.Organization, level vetting.Level) []vetting.Locale {
	levels, ok := c.byOrg[org]
	if !ok {
		return nil
	}
	return levels[level]
}

// Organizations lists every organization in the table, sorted.
func (c *Coverage) Organizations() []vetting.Organization {
	orgs := make([]vetting.Organization, 0, len(c.byOrg))
	for org := range c.byOrg {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i] < orgs[j] })
	return orgs
}
