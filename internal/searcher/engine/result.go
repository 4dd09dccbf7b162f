package engine

import (
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/ranker"
)

// SearchResult is the response body of a search, and the value cached for
// it.
type SearchResult struct {
	Query     string                `json:"query"`
	TotalHits int                   `json:"total_hits"`
	Results   []ranker.ScoredPolicy `json:"results"`
	Filters   filter.Filters        `json:"filters"`
}

// Execute runs Search and packages the first limit results. A limit of zero
// or less returns every result.
func (e *Engine) Execute(query string, f filter.Filters, limit int) *SearchResult {
	results := e.Search(query, f)
	total := len(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return &SearchResult{
		Query:     query,
		TotalHits: total,
		Results:   results,
		Filters:   f,
	}
}
