package inventory

import (
	"strings"
	"unicode"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ParseIdentifiers splits a server identifier string on whitespace, commas and semicolons
// and returns the distinct non-empty tokens.
//
// The result is a set, it is sorted only to keep output deterministic.
func ParseIdentifiers(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';'
	})

	set := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			set[f] = struct{}{}
		}
	}

	tokens := maps.Keys(set)
	slices.Sort(tokens)

	return tokens
}
