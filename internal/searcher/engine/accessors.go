package engine

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
)

// Suggest returns autocomplete strings for a partial query.
func (e *Engine) Suggest(query string) []string {
	return e.suggester.Suggest(query)
}

// PolicyByID looks a policy up by id. The boolean is false when the id is
// not in the dataset.
func (e *Engine) PolicyByID(id int) (policy.Policy, bool) {
	return e.dataset.ByID(id)
}

// Categories returns the distinct categories in order of first appearance.
func (e *Engine) Categories() []string {
	return append([]string(nil), e.categories...)
}

// Len returns the number of policies served.
func (e *Engine) Len() int {
	return len(e.policies)
}

// BudgetStats returns total, average, max and min budget over all policies.
func (e *Engine) BudgetStats() BudgetStats {
	var stats BudgetStats
	if len(e.policies) == 0 {
		return stats
	}
	stats.Min = e.policies[0].Budget
	stats.Max = e.policies[0].Budget
	for _, p := range e.policies {
		stats.Total += p.Budget
		if p.Budget > stats.Max {
			stats.Max = p.Budget
		}
		if p.Budget < stats.Min {
			stats.Min = p.Budget
		}
	}
	stats.Average = stats.Total / float64(len(e.policies))
	return stats
}

// Count is a label with the number of policies carrying it.
type Count struct {
	Label  string  `json:"label"`
	Count  int     `json:"count"`
	Budget float64 `json:"budget"`
}

// Dashboard is the overview shown on the analytics dashboard.
type Dashboard struct {
	TotalPolicies int              `json:"total_policies"`
	Budget        BudgetStats      `json:"budget"`
	ByCategory    []Count          `json:"by_category"`
	ByStatus      []Count          `json:"by_status"`
	TopByBudget   []policy.Policy `json:"top_by_budget"`
}

// topBudgetCount is how many of the largest schemes the dashboard lists.
const topBudgetCount = 5

// Dashboard aggregates the dataset by category and status and lists the
// largest schemes by budget.
func (e *Engine) Dashboard() Dashboard {
	d := Dashboard{
		TotalPolicies: len(e.policies),
		Budget:        e.BudgetStats(),
		ByCategory:    countBy(e.policies, func(p policy.Policy) string { return p.Category }),
		ByStatus:      countBy(e.policies, func(p policy.Policy) string { return p.Status }),
	}
	top := make([]policy.Policy, len(e.policies))
	for i, p := range e.policies {
		top[i] = p.Clone()
	}
	sort.SliceStable(top, func(i, j int) bool { return top[i].Budget > top[j].Budget })
	if len(top) > topBudgetCount {
		top = top[:topBudgetCount]
	}
	d.TopByBudget = top
	return d
}

// countBy groups policies by key in order of first appearance.
func countBy(policies []policy.Policy, key func(policy.Policy) string) []Count {
	counts := make([]Count, 0)
	pos := make(map[string]int)
	for _, p := range policies {
		k := key(p)
		i, ok := pos[k]
		if !ok {
			i = len(counts)
			pos[k] = i
			counts = append(counts, Count{Label: k})
		}
		counts[i].Count++
		counts[i].Budget += p.Budget
	}
	return counts
}
