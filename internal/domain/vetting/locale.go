package vetting

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Locale identifies one locale's data set by its BCP-47 language tag.
type Locale string

// SummaryLocale is the sentinel locale identifying the cross-locale summary
// report. It is never a real locale; requesting it produces the aggregate
// report over every locale visible to the requesting organization.
const SummaryLocale Locale = "und-vetting"

// ParseLocale validates and canonicalizes a locale identifier. The summary
// sentinel is accepted as-is.
func ParseLocale(s string) (Locale, error) {
	if s == string(SummaryLocale) {
		return SummaryLocale, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid locale %q: %w", s, err)
	}
	return Locale(tag.String()), nil
}

// String returns the locale's BCP-47 tag.
func (l Locale) String() string { return string(l) }

// IsSummary reports whether this is the cross-locale summary sentinel.
func (l Locale) IsSummary() bool { return l == SummaryLocale }

// DisplayName returns a human-readable name for the locale, used in
// user-facing status text ("Stopped loading: German").
func (l Locale) DisplayName() string {
	if l.IsSummary() {
		return "Summary"
	}
	tag, err := language.Parse(string(l))
	if err != nil {
		return string(l)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return string(l)
}
