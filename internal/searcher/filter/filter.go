// Package filter narrows and reorders ranked policies according to the
// caller's category, status, budget and sort choices.
package filter

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/ranker"
)

// All disables the category or status filter.
const All = "all"

// SortOrder selects how filtered results are ordered.
type SortOrder string

const (
	SortRelevance  SortOrder = "relevance"
	SortBudgetDesc SortOrder = "budget_desc"
	SortBudgetAsc  SortOrder = "budget_asc"
	SortName       SortOrder = "name"
)

// ParseSortOrder maps a request value onto a SortOrder. Unknown values sort
// by relevance.
func ParseSortOrder(s string) SortOrder {
	switch SortOrder(s) {
	case SortBudgetDesc, SortBudgetAsc, SortName:
		return SortOrder(s)
	default:
		return SortRelevance
	}
}

// BudgetRange is an inclusive budget window in crores.
type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether budget lies within the range, bounds included.
func (r BudgetRange) Contains(budget float64) bool {
	return budget >= r.Min && budget <= r.Max
}

// Filters are the constraints applied after scoring. The zero value keeps
// every result in relevance order.
type Filters struct {
	Category    string       `json:"category,omitempty"`
	Status      string       `json:"status,omitempty"`
	BudgetRange *BudgetRange `json:"budget_range,omitempty"`
	SortBy      SortOrder    `json:"sort_by,omitempty"`
}

// Default returns the filters used when the caller sets none.
func Default() Filters {
	return Filters{Category: All, Status: All, SortBy: SortRelevance}
}

// Apply returns the results that pass f, ordered by f.SortBy. The input
// slice is not modified.
func Apply(results []ranker.ScoredPolicy, f Filters) []ranker.ScoredPolicy {
	filtered := make([]ranker.ScoredPolicy, 0, len(results))
	for _, r := range results {
		if active(f.Category) && r.Policy.Category != f.Category {
			continue
		}
		if active(f.Status) && r.Policy.Status != f.Status {
			continue
		}
		if f.BudgetRange != nil && !f.BudgetRange.Contains(r.Policy.Budget) {
			continue
		}
		filtered = append(filtered, r)
	}

	switch ParseSortOrder(string(f.SortBy)) {
	case SortBudgetDesc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Policy.Budget > filtered[j].Policy.Budget
		})
	case SortBudgetAsc:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Policy.Budget < filtered[j].Policy.Budget
		})
	case SortName:
		// Collators keep internal buffers, so each sort gets its own.
		c := collate.New(language.English)
		sort.SliceStable(filtered, func(i, j int) bool {
			return c.CompareString(filtered[i].Policy.Name, filtered[j].Policy.Name) < 0
		})
	}
	return filtered
}

func active(v string) bool {
	return v != "" && v != All
}
