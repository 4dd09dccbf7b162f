// Package suggest produces autocomplete strings for partially typed policy
// queries.
package suggest

import (
	"strings"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
)

// MaxSuggestions caps the number of suggestions returned.
const MaxSuggestions = 5

// minQueryLength is the shortest query, in characters, that gets matched
// suggestions.
const minQueryLength = 2

var popularSearches = []string{
	"PM SHRI Schools",
	"Samagra Shiksha",
	"Digital Education",
	"Scholarship Programs",
}

var commonTerms = []string{
	"budget analysis",
	"beneficiaries",
	"implementation status",
	"achievements",
	"challenges",
	"future goals",
}

// Generator suggests policy names, categories and common phrases.
type Generator struct {
	names      []string
	categories []string
}

// New captures the names and distinct categories of policies.
func New(policies []policy.Policy) *Generator {
	g := &Generator{names: make([]string, 0, len(policies))}
	seen := make(map[string]struct{})
	for _, p := range policies {
		g.names = append(g.names, p.Name)
		if _, ok := seen[p.Category]; !ok {
			seen[p.Category] = struct{}{}
			g.categories = append(g.categories, p.Category)
		}
	}
	return g
}

// PopularSearches returns the suggestions shown before the user has typed
// enough to match against.
func PopularSearches() []string {
	return append([]string(nil), popularSearches...)
}

// Suggest returns up to MaxSuggestions strings for query: matching policy
// names first, then matching categories, then matching common phrases.
// A string may appear more than once if it matches in several groups.
func (g *Generator) Suggest(query string) []string {
	if utf8.RuneCountInString(query) < minQueryLength {
		return PopularSearches()
	}
	q := strings.ToLower(query)
	out := make([]string, 0, MaxSuggestions)
	for _, name := range g.names {
		if strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	for _, category := range g.categories {
		if strings.Contains(strings.ToLower(category), q) {
			out = append(out, category)
		}
	}
	for _, term := range commonTerms {
		if strings.Contains(term, q) {
			out = append(out, term)
		}
	}
	if len(out) > MaxSuggestions {
		out = out[:MaxSuggestions]
	}
	return out
}
