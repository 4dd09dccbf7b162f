// Package ranker scores policies against a parsed query with additive
// boost heuristics.
package ranker

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/index"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/parser"
)

const (
	nameBoost        = 100
	categoryBoost    = 80
	keywordBoost     = 60
	textBoost        = 20
	budgetBonus      = 30
	beneficiaryBonus = 25
)

// ScoredPolicy pairs a policy with the score it earned for one query.
type ScoredPolicy struct {
	Policy policy.Policy `json:"policy"`
	Score  int           `json:"score"`
}

// Score computes the relevance of p for plan. text is p's index blob.
//
// A term that appears in a search keyword and in the blob earns both the
// keyword and the text boost.
func Score(plan *parser.QueryPlan, p policy.Policy, text string) int {
	score := 0
	if strings.Contains(strings.ToLower(p.Name), plan.Lower) {
		score += nameBoost
	}
	if strings.Contains(strings.ToLower(p.Category), plan.Lower) {
		score += categoryBoost
	}
	for _, term := range plan.Terms {
		if anyContains(p.SearchKeywords, term) {
			score += keywordBoost
		}
		if strings.Contains(text, term) {
			score += textBoost
		}
	}
	if strings.Contains(plan.RawQuery, "budget") || strings.Contains(plan.RawQuery, "crore") {
		score += budgetBonus
	}
	if strings.Contains(plan.RawQuery, "student") || strings.Contains(plan.RawQuery, "beneficiar") {
		score += beneficiaryBonus
	}
	return score
}

// anyContains reports whether some keyword contains term. Keywords are
// compared as stored; the dataset keeps them lowercase.
func anyContains(keywords []string, term string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, term) {
			return true
		}
	}
	return false
}

// Rank scores every policy, drops those scoring zero and orders the rest by
// descending score. Ties keep dataset order.
func Rank(plan *parser.QueryPlan, policies []policy.Policy, idx *index.Index) []ScoredPolicy {
	result := make([]ScoredPolicy, 0, len(policies))
	for _, p := range policies {
		score := Score(plan, p, idx.Text(p.ID))
		if score > 0 {
			result = append(result, ScoredPolicy{Policy: p, Score: score})
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
