// Package engine answers policy queries over one immutable dataset. An
// Engine is built once by the composition root and shared by reference;
// all of its methods are safe for concurrent use.
package engine

import (
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/index"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/suggest"
)

// BudgetStats summarises the budgets of every policy, ignoring filters.
type BudgetStats struct {
	Total   float64 `json:"total"`
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
	Min     float64 `json:"min"`
}

// Engine answers search, filter and suggestion queries over one dataset.
// It is read-only after New and safe for concurrent use.
type Engine struct {
	dataset    *policy.Dataset
	policies   []policy.Policy
	index      *index.Index
	suggester  *suggest.Generator
	categories []string
	logger     *slog.Logger
}

// New indexes dataset.
func New(dataset *policy.Dataset) *Engine {
	policies := dataset.All()
	e := &Engine{
		dataset:   dataset,
		policies:  policies,
		index:     index.Build(policies),
		suggester: suggest.New(policies),
		logger:    slog.Default().With("component", "search-engine"),
	}
	seen := make(map[string]struct{})
	for _, p := range policies {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		e.categories = append(e.categories, p.Category)
	}
	e.logger.Info("search index built", "policies", e.index.Len(), "categories", len(e.categories))
	return e
}

// Search scores policies against query and applies f. A blank query skips
// scoring: every policy passes to the filters in dataset order with a score
// of zero.
func (e *Engine) Search(query string, f filter.Filters) []ranker.ScoredPolicy {
	plan := parser.Parse(query)
	var ranked []ranker.ScoredPolicy
	if plan.Empty {
		ranked = make([]ranker.ScoredPolicy, len(e.policies))
		for i, p := range e.policies {
			ranked[i] = ranker.ScoredPolicy{Policy: p}
		}
	} else {
		ranked = ranker.Rank(plan, e.policies, e.index)
	}
	results := filter.Apply(ranked, f)
	e.logger.Debug("query executed",
		"query", query,
		"terms", plan.Terms,
		"matched", len(ranked),
		"results", len(results),
	)
	return cloneResults(results)
}

// cloneResults detaches results from the engine's policy slice so callers
// may modify what they receive.
func cloneResults(results []ranker.ScoredPolicy) []ranker.ScoredPolicy {
	for i := range results {
		results[i].Policy = results[i].Policy.Clone()
	}
	return results
}
