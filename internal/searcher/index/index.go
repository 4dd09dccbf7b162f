// Package index builds the per-policy full-text blobs the ranker matches
// query terms against.
package index

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
)

// Index maps a policy id to its lowercase searchable text. It is built once
// per dataset and never updated.
type Index struct {
	texts map[int]string
}

// Build concatenates, in order, name, category, description, implementing
// agency, search keywords, achievements and challenges of every policy with
// single spaces and lowercases the result.
func Build(policies []policy.Policy) *Index {
	idx := &Index{texts: make(map[int]string, len(policies))}
	for _, p := range policies {
		idx.texts[p.ID] = searchableText(p)
	}
	return idx
}

func searchableText(p policy.Policy) string {
	fields := make([]string, 0, 4+len(p.SearchKeywords)+len(p.Achievements)+len(p.Challenges))
	fields = append(fields, p.Name, p.Category, p.Description, p.ImplementingAgency)
	fields = append(fields, p.SearchKeywords...)
	fields = append(fields, p.Achievements...)
	fields = append(fields, p.Challenges...)
	return strings.ToLower(strings.Join(fields, " "))
}

// Text returns the searchable text for id, or "" if the id was not indexed.
func (i *Index) Text(id int) string {
	return i.texts[id]
}

// Len returns the number of indexed policies.
func (i *Index) Len() int {
	return len(i.texts)
}
