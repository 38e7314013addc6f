// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package substitute replaces image placeholders with their descriptions.
package substitute

import (
	"sort"
	"strings"

	"github.com/pdiddy/doc2text/internal/placeholder"
)

// Apply replaces every occurrence of the placeholder token for each key in
// descriptions with the mapped text. Matching is literal and case-sensitive.
// Placeholders without an entry are left as they are; entries without a
// placeholder are ignored.
func Apply(text string, descriptions map[string]string) string {
	if len(descriptions) == 0 {
		return text
	}

	keys := make([]string, 0, len(descriptions))
	for k := range descriptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, placeholder.Token(k), descriptions[k])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// Leftovers returns the filenames of placeholders still present in text,
// deduplicated, in order of first appearance.
func Leftovers(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range placeholder.FindAll(text) {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
