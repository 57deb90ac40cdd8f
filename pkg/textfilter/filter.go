package textfilter

import (
	"regexp"
	"strings"

	"github.com/ejpembleton/fateweaver/pkg/adventure"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// softenings maps coarse language to period-flavored stand-ins. Models
// drift toward profanity in combat scenes even when the system prompt
// forbids it, so family-rated adventures scrub narrative text before it
// reaches the log. Inflected forms need their own entries because every
// pattern is word-bounded.
var softenings = []struct {
	word string
	soft string
}{
	{"motherfucker", "scoundrel"},
	{"goddamned", "gods-blasted"},
	{"goddamn", "gods-blasted"},
	{"bullshit", "nonsense"},
	{"horseshit", "nonsense"},
	{"asshole", "scoundrel"},
	{"bastard", "scoundrel"},
	{"dumbass", "fool"},
	{"jackass", "fool"},
	{"fucking", "blasted"},
	{"fucked", "ruined"},
	{"fuck", "blast"},
	{"shitty", "wretched"},
	{"shit", "muck"},
	{"damned", "blasted"},
	{"damn", "blast"},
	{"hell", "blazes"},
	{"bitch", "wretch"},
	{"crap", "muck"},
	{"prick", "lout"},
	{"ass", "backside"},
}

// Softener rewrites profanity in narrative text using word-boundary
// matching so substrings inside clean words are left alone.
type Softener struct {
	rules []softenRule
}

type softenRule struct {
	pattern *regexp.Regexp
	soft    string
}

// New compiles the softening rules.
func New() *Softener {
	s := &Softener{rules: make([]softenRule, 0, len(softenings))}
	for _, entry := range softenings {
		s.rules = append(s.rules, softenRule{
			pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(entry.word) + `\b`),
			soft:    entry.soft,
		})
	}
	return s
}

// Soften replaces each matched word with its stand-in, preserving the
// original word's casing.
func (s *Softener) Soften(text string) string {
	result := text
	for _, rule := range s.rules {
		result = rule.pattern.ReplaceAllStringFunc(result, func(match string) string {
			return preserveCase(match, rule.soft)
		})
	}
	return result
}

// Matches reports whether the text contains anything Soften would
// rewrite.
func (s *Softener) Matches(text string) bool {
	for _, rule := range s.rules {
		if rule.pattern.MatchString(text) {
			return true
		}
	}
	return false
}

// preserveCase carries the shape of the original word onto the
// replacement: all caps stay all caps, title case stays title case,
// anything else comes out lowercase.
func preserveCase(original, replacement string) string {
	if original == "" {
		return replacement
	}
	if strings.ToUpper(original) == original {
		return strings.ToUpper(replacement)
	}
	titleCaser := cases.Title(language.English)
	if titleCaser.String(strings.ToLower(original)) == original {
		return titleCaser.String(replacement)
	}
	return strings.ToLower(replacement)
}

// Active reports whether narrative text should be softened for the
// given content rating.
func Active(rating string) bool {
	return strings.TrimSpace(strings.ToLower(rating)) == adventure.RatingFamily
}
