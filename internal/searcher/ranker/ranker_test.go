package ranker

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/index"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/parser"
)

func fixture() []policy.Policy {
	return []policy.Policy{
		{ID: 1, Name: "PM SHRI Schools", Category: "Infrastructure", Budget: 27360,
			SearchKeywords: []string{"pm shri", "infrastructure"}},
		{ID: 2, Name: "Samagra Shiksha Abhiyan", Category: "Comprehensive Education", Budget: 31050,
			Description: "Covers shri ram schools too", SearchKeywords: []string{"samagra"}},
		{ID: 3, Name: "National Scholarship Portal", Category: "Financial Support", Budget: 5000,
			SearchKeywords: []string{"scholarship", "student support"}},
		{ID: 4, Name: "Digital India e-Learning", Category: "Digital Education", Budget: 15000,
			SearchKeywords: []string{"digital education"}},
		{ID: 5, Name: "NIPUN Bharat Mission", Category: "Foundational Learning", Budget: 8000,
			SearchKeywords: []string{"numeracy"}},
		{ID: 6, Name: "Atal Innovation Mission", Category: "Innovation", Budget: 2000,
			SearchKeywords: []string{"innovation"}},
	}
}

func TestScoreComponents(t *testing.T) {
	policies := fixture()
	idx := index.Build(policies)
	tests := []struct {
		name  string
		query string
		id    int
		want  int
	}{
		// name 100 + terms: "shri" keyword 60 + text 20; "pm" is too short.
		{"name and keyword", "PM SHRI", 1, 100 + 60 + 20},
		// only the description mentions "shri"
		{"text only", "PM SHRI", 2, 20},
		// category 80 + keyword 60 + text 20
		{"category", "infrastructure", 1, 80 + 60 + 20},
		// name (contains "mission") and text, no keyword
		{"name without keyword", "mission", 5, 100 + 20},
		// flat budget bonus only: the term "budget" matches nothing
		{"budget bonus", "budget", 6, 30},
		{"crore bonus", "crore", 6, 30},
		// keyword "student support" + text + beneficiary bonus
		{"student bonus", "student", 3, 60 + 20 + 25},
		{"beneficiary bonus", "beneficiaries", 6, 25},
		// flat bonuses match the raw query case-sensitively
		{"capitalised budget", "Budget", 6, 0},
		{"no match", "railways", 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := parser.Parse(tt.query)
			p := policies[tt.id-1]
			if got := Score(plan, p, idx.Text(p.ID)); got != tt.want {
				t.Errorf("Score(%q, %d) = %d, want %d", tt.query, tt.id, got, tt.want)
			}
		})
	}
}

func TestRankOrdersByScore(t *testing.T) {
	policies := fixture()
	idx := index.Build(policies)

	ranked := Rank(parser.Parse("PM SHRI"), policies, idx)
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2: %+v", len(ranked), ranked)
	}
	if ranked[0].Policy.ID != 1 {
		t.Errorf("first result = %d, want 1", ranked[0].Policy.ID)
	}
	if ranked[1].Policy.ID != 2 || ranked[1].Score != 20 {
		t.Errorf("second result = %+v, want policy 2 with score 20", ranked[1])
	}
}

func TestRankStableTies(t *testing.T) {
	policies := fixture()
	idx := index.Build(policies)

	ranked := Rank(parser.Parse("budget"), policies, idx)
	if len(ranked) != len(policies) {
		t.Fatalf("got %d results, want every policy", len(ranked))
	}
	for i, r := range ranked {
		if r.Policy.ID != policies[i].ID {
			t.Errorf("position %d holds policy %d, want dataset order %d", i, r.Policy.ID, policies[i].ID)
		}
		if r.Score != 30 {
			t.Errorf("policy %d score = %d, want 30", r.Policy.ID, r.Score)
		}
	}
}

func TestRankDropsZeroScores(t *testing.T) {
	policies := fixture()
	ranked := Rank(parser.Parse("railways"), policies, index.Build(policies))
	if len(ranked) != 0 {
		t.Errorf("expected no results, got %+v", ranked)
	}
}

func TestRankNameAlwaysMatches(t *testing.T) {
	policies := fixture()
	idx := index.Build(policies)
	for _, p := range policies {
		found := false
		for _, r := range Rank(parser.Parse(p.Name), policies, idx) {
			if r.Policy.ID == p.ID {
				found = r.Score >= nameBoost
			}
		}
		if !found {
			t.Errorf("searching %q did not return policy %d with a name boost", p.Name, p.ID)
		}
	}
}
