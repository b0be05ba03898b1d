package engine

import (
	"regexp"
	"strings"
)

// synonyms maps domain terms to related vocabulary appended during query
// expansion. Keys are matched as whole words, case-insensitively.
var synonyms = map[string][]string{
	"commons":    {"common pool resources", "shared resources", "collective ownership"},
	"governance": {"management", "administration", "stewardship"},
	"knowledge":  {"information", "wisdom", "learning"},
	"community":  {"collective", "cooperative", "commons-based"},
	"volunteer":  {"contributor", "participant", "peer"},
}

var wordPattern = regexp.MustCompile(`[a-zA-Z][a-zA-Z-]*`)

// ExpandQuery appends synonyms of recognized terms to the query, preserving
// first-seen order and skipping words already present. Queries without
// recognized terms pass through unchanged.
func ExpandQuery(query string) string {
	seen := make(map[string]struct{})
	words := wordPattern.FindAllString(query, -1)
	for _, w := range words {
		seen[strings.ToLower(w)] = struct{}{}
	}

	var additions []string
	for _, w := range words {
		for _, syn := range synonyms[strings.ToLower(w)] {
			if _, ok := seen[syn]; ok {
				continue
			}
			seen[syn] = struct{}{}
			additions = append(additions, syn)
		}
	}

	if len(additions) == 0 {
		return query
	}
	return query + " " + strings.Join(additions, " ")
}
