// Package parser turns a free-text policy query into the plan the ranker
// scores against.
package parser

import (
	"strings"
	"unicode/utf8"
)

// minTermLength is the shortest query word kept as a search term.
const minTermLength = 3

// QueryPlan is a parsed query.
type QueryPlan struct {
	// RawQuery is the query exactly as the caller typed it. The domain
	// bonuses match against it case-sensitively.
	RawQuery string
	// Lower is the whole query lowercased, used for name and category
	// substring boosts.
	Lower string
	// Terms are the lowercased words of the query longer than two characters.
	Terms []string
	// Empty is true for blank or whitespace-only queries.
	Empty bool
}

// Parse lowercases query and splits it into search terms. Parse never fails;
// a blank query yields a plan with Empty set.
func Parse(query string) *QueryPlan {
	plan := &QueryPlan{
		RawQuery: query,
		Lower:    strings.ToLower(query),
		Terms:    make([]string, 0),
	}
	if strings.TrimSpace(query) == "" {
		plan.Empty = true
		return plan
	}
	for _, word := range strings.Fields(plan.Lower) {
		if utf8.RuneCountInString(word) < minTermLength {
			continue
		}
		plan.Terms = append(plan.Terms, word)
	}
	return plan
}
