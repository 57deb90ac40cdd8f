package directive

import (
	"regexp"
	"strconv"
	"strings"
)

// A rule pairs a directive's full pattern with the action taken on a
// match. The attempt pattern recognizes a line as a directive attempt
// even when the full pattern fails, so malformed directives are
// consumed and dropped rather than leaking into the narrative. Rules
// are evaluated in order per line, stopping at the first match.
type rule struct {
	attempt *regexp.Regexp
	full    *regexp.Regexp
	apply   func(r *Reply, m []string)
}

var rules = []rule{
	{
		attempt: regexp.MustCompile(`\[\s*INVENTORY_ADD\b`),
		full:    regexp.MustCompile(`\[\s*INVENTORY_ADD\s*:\s*([^\]]*?)\s*\]`),
		apply: func(r *Reply, m []string) {
			if m[1] != "" {
				r.ItemsAdded = append(r.ItemsAdded, m[1])
			}
		},
	},
	{
		attempt: regexp.MustCompile(`\[\s*INVENTORY_REMOVE\b`),
		full:    regexp.MustCompile(`\[\s*INVENTORY_REMOVE\s*:\s*([^\]]*?)\s*\]`),
		apply: func(r *Reply, m []string) {
			if m[1] != "" {
				r.ItemsRemoved = append(r.ItemsRemoved, m[1])
			}
		},
	},
	{
		attempt: regexp.MustCompile(`\[\s*IMAGE_PROMPT\b`),
		full:    regexp.MustCompile(`\[\s*IMAGE_PROMPT\s*:\s*([^\]]*?)\s*\]`),
		apply: func(r *Reply, m []string) {
			if m[1] != "" && r.ImagePrompt == "" {
				r.ImagePrompt = m[1]
			}
		},
	},
	{
		attempt: regexp.MustCompile(`\[\s*STAT_UPDATE\b`),
		full:    regexp.MustCompile(`\[\s*STAT_UPDATE\s*:\s*([^\]]*?)\s*\]`),
		apply: func(r *Reply, m []string) {
			for _, entry := range strings.Split(m[1], ",") {
				key, val, ok := strings.Cut(entry, "=")
				if !ok {
					continue
				}
				key = strings.TrimSpace(key)
				delta, err := strconv.Atoi(strings.TrimSpace(val))
				if key == "" || err != nil {
					continue
				}
				r.StatDeltas = append(r.StatDeltas, StatDelta{Key: key, Delta: delta})
			}
		},
	},
	{
		attempt: regexp.MustCompile(`\[\s*COMBAT_START\b`),
		full:    regexp.MustCompile(`\[\s*COMBAT_START\s*:\s*name\s*=\s*([^,\]]+?)\s*,\s*health\s*=\s*(\d+)\s*\]`),
		apply: func(r *Reply, m []string) {
			if r.CombatStart != nil {
				return
			}
			health, err := strconv.Atoi(m[2])
			if err != nil {
				return
			}
			r.CombatStart = &CombatStart{Name: m[1], Health: health}
		},
	},
	{
		attempt: regexp.MustCompile(`\[\s*COMBAT_END\b`),
		full:    regexp.MustCompile(`\[\s*COMBAT_END\s*\]`),
		apply: func(r *Reply, m []string) {
			r.CombatEnd = true
		},
	},
}

// Parse splits one raw reply into narrative prose and typed
// directives. Matching is line-oriented: a line containing a directive
// is consumed wholly, never mixed with narrative. Tags are
// case-sensitive. Parse is pure and deterministic; it performs no I/O.
func Parse(raw string) Reply {
	var r Reply
	var narrative []string

	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	for _, line := range strings.Split(raw, "\n") {
		if consumeDirective(&r, line) {
			continue
		}
		narrative = append(narrative, line)
	}

	r.Narrative = strings.TrimSpace(strings.Join(narrative, "\n"))
	return r
}

// consumeDirective reports whether the line belongs to a directive.
// A line whose bracketed tag is recognized but whose full form does
// not match is still consumed: malformed directives are dropped, not
// demoted to narrative.
func consumeDirective(r *Reply, line string) bool {
	for _, ru := range rules {
		if m := ru.full.FindStringSubmatch(line); m != nil {
			ru.apply(r, m)
			return true
		}
		if ru.attempt.MatchString(line) {
			return true
		}
	}
	return false
}
