package index

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
)

func TestBuildFieldOrder(t *testing.T) {
	p := policy.Policy{
		ID:                 1,
		Name:               "PM SHRI Schools",
		Category:           "Infrastructure",
		Description:        "Upgrade Schools",
		ImplementingAgency: "MoE",
		SearchKeywords:     []string{"pm shri", "Labs"},
		Achievements:       []string{"6,207 Selected"},
		Challenges:         []string{"Staffing"},
	}
	idx := Build([]policy.Policy{p})

	want := "pm shri schools infrastructure upgrade schools moe pm shri labs 6,207 selected staffing"
	if got := idx.Text(1); got != want {
		t.Errorf("Text(1) =\n  %q\nwant\n  %q", got, want)
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d, want 1", idx.Len())
	}
}

func TestBuildEmptyLists(t *testing.T) {
	idx := Build([]policy.Policy{{ID: 2, Name: "A", Category: "B"}})
	// Empty description and agency still contribute their separators.
	if got := idx.Text(2); got != "a b  " {
		t.Errorf("Text(2) = %q, want %q", got, "a b  ")
	}
}

func TestTextUnknownID(t *testing.T) {
	idx := Build(nil)
	if got := idx.Text(42); got != "" {
		t.Errorf("Text(42) = %q, want empty", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	ds, err := policy.Default()
	if err != nil {
		t.Fatal(err)
	}
	a, b := Build(ds.All()), Build(ds.All())
	for _, p := range ds.All() {
		if a.Text(p.ID) != b.Text(p.ID) {
			t.Errorf("index text differs for policy %d", p.ID)
		}
	}
}
