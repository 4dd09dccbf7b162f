package filter

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/ranker"
)

func scored(specs ...policy.Policy) []ranker.ScoredPolicy {
	out := make([]ranker.ScoredPolicy, len(specs))
	for i, p := range specs {
		out[i] = ranker.ScoredPolicy{Policy: p, Score: 100 - i}
	}
	return out
}

func ids(results []ranker.ScoredPolicy) []int {
	out := make([]int, len(results))
	for i, r := range results {
		out[i] = r.Policy.ID
	}
	return out
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sample() []ranker.ScoredPolicy {
	return scored(
		policy.Policy{ID: 1, Name: "PM SHRI Schools", Category: "Infrastructure", Status: "Active", Budget: 27360},
		policy.Policy{ID: 2, Name: "Samagra Shiksha", Category: "Comprehensive Education", Status: "Active", Budget: 31050},
		policy.Policy{ID: 3, Name: "National Scholarship Portal", Category: "Financial Support", Status: "Completed", Budget: 5000},
		policy.Policy{ID: 4, Name: "atal Innovation Mission", Category: "Infrastructure", Status: "Active", Budget: 2000},
	)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name    string
		filters Filters
		want    []int
	}{
		{"defaults keep order", Default(), []int{1, 2, 3, 4}},
		{"zero value keeps order", Filters{}, []int{1, 2, 3, 4}},
		{"category", Filters{Category: "Infrastructure"}, []int{1, 4}},
		{"category all", Filters{Category: All}, []int{1, 2, 3, 4}},
		{"category is exact", Filters{Category: "infrastructure"}, []int{}},
		{"status", Filters{Status: "Completed"}, []int{3}},
		{"budget range inclusive", Filters{BudgetRange: &BudgetRange{Min: 5000, Max: 30000}}, []int{1, 3}},
		{"budget desc", Filters{SortBy: SortBudgetDesc}, []int{2, 1, 3, 4}},
		{"budget asc", Filters{SortBy: SortBudgetAsc}, []int{4, 3, 1, 2}},
		// locale-aware ordering ignores case: "atal" sorts before "National"
		{"name", Filters{SortBy: SortName}, []int{4, 3, 1, 2}},
		{"unknown sort is relevance", Filters{SortBy: "popularity"}, []int{1, 2, 3, 4}},
		{"combined", Filters{Category: "Infrastructure", Status: "Active", SortBy: SortBudgetAsc}, []int{4, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sample(), tt.filters))
			if !equalIDs(got, tt.want) {
				t.Errorf("Apply(%+v) = %v, want %v", tt.filters, got, tt.want)
			}
		})
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := sample()
	Apply(in, Filters{SortBy: SortBudgetAsc})
	if !equalIDs(ids(in), []int{1, 2, 3, 4}) {
		t.Errorf("input reordered: %v", ids(in))
	}
}

func TestApplyBudgetSortStable(t *testing.T) {
	in := scored(
		policy.Policy{ID: 1, Name: "A", Budget: 10},
		policy.Policy{ID: 2, Name: "B", Budget: 20},
		policy.Policy{ID: 3, Name: "C", Budget: 10},
	)
	got := ids(Apply(in, Filters{SortBy: SortBudgetDesc}))
	if !equalIDs(got, []int{2, 1, 3}) {
		t.Errorf("got %v, want [2 1 3]", got)
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := map[string]SortOrder{
		"budget_desc": SortBudgetDesc,
		"budget_asc":  SortBudgetAsc,
		"name":        SortName,
		"relevance":   SortRelevance,
		"":            SortRelevance,
		"NAME":        SortRelevance,
	}
	for in, want := range tests {
		if got := ParseSortOrder(in); got != want {
			t.Errorf("ParseSortOrder(%q) = %q, want %q", in, got, want)
		}
	}
}
