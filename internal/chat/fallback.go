package chat

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/engine"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/filter"
	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/searcher/ranker"
)

// FallbackModel is reported as the model of dataset-backed answers.
const FallbackModel = "nitisetu-dataset"

const (
	// minNameWord is the shortest policy-name word used to recognise a
	// scheme in a question.
	minNameWord         = 4
	largestCount        = 3
	maxListItems        = 3
	challengesPerScheme = 1
)

var (
	greetingWords   = []string{"hello", "hi", "hey", "namaste", "help"}
	greetingPhrases = []string{"good morning", "good afternoon"}
)

// Catalog is the read side of the search engine. *engine.Engine satisfies
// it.
type Catalog interface {
	Search(query string, f filter.Filters) []ranker.ScoredPolicy
	Dashboard() engine.Dashboard
	PolicyByID(id int) (policy.Policy, bool)
}

// FallbackCompleter answers questions from the policy dataset alone. It is
// used when the completion backend is missing or failing.
type FallbackCompleter struct {
	catalog   Catalog
	policies  []policy.Policy
	dashboard engine.Dashboard
	// nameWords maps a name word found in exactly one policy to that
	// policy's index.
	nameWords map[string]int
}

func NewFallbackCompleter(catalog Catalog) *FallbackCompleter {
	f := &FallbackCompleter{
		catalog:   catalog,
		dashboard: catalog.Dashboard(),
		nameWords: make(map[string]int),
	}
	for _, r := range catalog.Search("", filter.Filters{}) {
		f.policies = append(f.policies, r.Policy)
	}

	owners := make(map[string][]int)
	for i, p := range f.policies {
		for _, w := range words(p.Name) {
			if utf8.RuneCountInString(w) < minNameWord {
				continue
			}
			if o := owners[w]; len(o) == 0 || o[len(o)-1] != i {
				owners[w] = append(o, i)
			}
		}
	}
	for w, o := range owners {
		if len(o) == 1 {
			f.nameWords[w] = o[0]
		}
	}
	return f
}

// Complete answers the last user message of req. A request without prior
// assistant turns is treated as the start of a conversation.
func (f *FallbackCompleter) Complete(_ context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var query string
	firstTurn := true
	for _, m := range req.Messages {
		switch m.Role {
		case RoleUser:
			query = m.Content
		case RoleAssistant:
			firstTurn = false
		}
	}
	return &Response{
		ID:      "fallback-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   FallbackModel,
		Choices: []Choice{{
			Message:      Message{Role: RoleAssistant, Content: f.Answer(query, 0, firstTurn)},
			FinishReason: "stop",
		}},
	}, nil
}

// Answer routes query by keyword. policyID, when non-zero, names the policy
// the user is looking at and answers questions no other route matches.
func (f *FallbackCompleter) Answer(query string, policyID int, firstTurn bool) string {
	q := strings.ToLower(query)
	tokens := words(q)
	scheme, named := f.matchScheme(tokens)

	switch {
	case isGreeting(q, tokens):
		return f.greeting()
	case strings.Contains(q, "budget"):
		if named && !strings.Contains(q, "total") {
			return f.schemeBudget(scheme)
		}
		return f.totalBudget()
	case named:
		return f.schemeDetails(scheme)
	case containsAny(q, "largest", "biggest"):
		return f.largest()
	case strings.Contains(q, "beneficiar") && containsAny(q, "comparison", "compare"):
		return f.beneficiaries()
	case containsAny(q, "trend", "analysis"):
		return f.trends()
	case containsAny(q, "recommend", "suggest"):
		return f.recommendations()
	}
	if policyID != 0 {
		if p, ok := f.catalog.PolicyByID(policyID); ok {
			return f.schemeDetails(p)
		}
	}
	if firstTurn {
		return f.greeting()
	}
	return f.help()
}

// matchScheme picks the policy with the most distinctive name words in
// tokens. Ties go to the earlier policy.
func (f *FallbackCompleter) matchScheme(tokens []string) (policy.Policy, bool) {
	hits := make(map[int]int)
	for _, t := range tokens {
		i, ok := f.nameWords[t]
		if !ok {
			i, ok = f.nameWords[strings.TrimSuffix(t, "s")]
		}
		if ok {
			hits[i]++
		}
	}
	best, bestHits := -1, 0
	for i := range f.policies {
		if hits[i] > bestHits {
			best, bestHits = i, hits[i]
		}
	}
	if best < 0 {
		return policy.Policy{}, false
	}
	return f.policies[best], true
}

func (f *FallbackCompleter) greeting() string {
	return fmt.Sprintf("Namaste! I'm NitiSetu, your government policy assistant. "+
		"I can answer questions about %d education schemes with a combined budget of ₹%s crore. "+
		"Ask about budgets, beneficiaries, scheme details or comparisons.",
		f.dashboard.TotalPolicies, formatCrore(f.dashboard.Budget.Total))
}

func (f *FallbackCompleter) totalBudget() string {
	if len(f.policies) == 0 {
		return f.help()
	}
	largest, smallest := f.policies[0], f.policies[0]
	for _, p := range f.policies[1:] {
		if p.Budget > largest.Budget {
			largest = p
		}
		if p.Budget < smallest.Budget {
			smallest = p
		}
	}
	var b strings.Builder
	stats := f.dashboard.Budget
	fmt.Fprintf(&b, "Total education budget: ₹%s crore across %d schemes\n", formatCrore(stats.Total), f.dashboard.TotalPolicies)
	fmt.Fprintf(&b, "- Largest scheme: %s (₹%s crore)\n", largest.Name, formatCrore(largest.Budget))
	fmt.Fprintf(&b, "- Average allocation: ₹%s crore\n", formatCrore(stats.Average))
	fmt.Fprintf(&b, "- Smallest scheme: %s (₹%s crore)", smallest.Name, formatCrore(smallest.Budget))
	return b.String()
}

func (f *FallbackCompleter) schemeBudget(p policy.Policy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s budget: ₹%s crore", p.Name, formatCrore(p.Budget))
	if total := f.dashboard.Budget.Total; total > 0 {
		fmt.Fprintf(&b, " (%s of the ₹%s crore total)", percent(p.Budget, total), formatCrore(total))
	}
	fmt.Fprintf(&b, "\n- Category: %s", p.Category)
	if p.Beneficiaries != "" {
		fmt.Fprintf(&b, "\n- Beneficiaries: %s", p.Beneficiaries)
	}
	if p.ImplementingAgency != "" {
		fmt.Fprintf(&b, "\n- Implemented by: %s", p.ImplementingAgency)
	}
	return b.String()
}

func (f *FallbackCompleter) schemeDetails(p policy.Policy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s, %s)\n%s\n", p.Name, p.Category, p.Status, p.Description)
	fmt.Fprintf(&b, "- Budget: ₹%s crore\n", formatCrore(p.Budget))
	if p.Beneficiaries != "" {
		fmt.Fprintf(&b, "- Beneficiaries: %s\n", p.Beneficiaries)
	}
	if p.LaunchYear != 0 {
		fmt.Fprintf(&b, "- Launched: %d\n", p.LaunchYear)
	}
	if p.ImplementingAgency != "" {
		fmt.Fprintf(&b, "- Implemented by: %s\n", p.ImplementingAgency)
	}
	writeList(&b, "Key achievements:", p.Achievements, maxListItems)
	writeList(&b, "Challenges:", p.Challenges, maxListItems)
	return strings.TrimRight(b.String(), "\n")
}

func (f *FallbackCompleter) largest() string {
	top := f.dashboard.TopByBudget
	if len(top) > largestCount {
		top = top[:largestCount]
	}
	var (
		b   strings.Builder
		sum float64
	)
	b.WriteString("Largest schemes by budget:")
	for i, p := range top {
		fmt.Fprintf(&b, "\n%d. %s: ₹%s crore (%s)", i+1, p.Name, formatCrore(p.Budget), p.Category)
		sum += p.Budget
	}
	if total := f.dashboard.Budget.Total; total > 0 && len(top) > 0 {
		fmt.Fprintf(&b, "\nTogether they account for %s of the total budget.", percent(sum, total))
	}
	return b.String()
}

func (f *FallbackCompleter) beneficiaries() string {
	var b strings.Builder
	b.WriteString("Beneficiary reach by scheme:")
	for _, p := range f.policies {
		if p.Beneficiaries != "" {
			fmt.Fprintf(&b, "\n- %s: %s", p.Name, p.Beneficiaries)
		}
	}
	return b.String()
}

func (f *FallbackCompleter) trends() string {
	cats := slices.Clone(f.dashboard.ByCategory)
	sort.SliceStable(cats, func(i, j int) bool { return cats[i].Budget > cats[j].Budget })
	var b strings.Builder
	b.WriteString("Budget share by category:")
	for _, c := range cats {
		fmt.Fprintf(&b, "\n- %s: ₹%s crore (%s)", c.Label, formatCrore(c.Budget), percent(c.Budget, f.dashboard.Budget.Total))
	}
	return b.String()
}

func (f *FallbackCompleter) recommendations() string {
	var b strings.Builder
	b.WriteString("Open challenges to prioritise:")
	for _, p := range f.policies {
		for _, c := range p.Challenges[:min(len(p.Challenges), challengesPerScheme)] {
			fmt.Fprintf(&b, "\n- %s: %s", p.Name, c)
		}
	}
	return b.String()
}

func (f *FallbackCompleter) help() string {
	example := "a scheme name"
	if len(f.dashboard.TopByBudget) > 0 {
		example = fmt.Sprintf("%q", f.dashboard.TopByBudget[0].Name)
	}
	return "I can answer from the scheme data. Try \"total budget\", \"largest scheme\", " +
		"\"beneficiaries comparison\" or ask about " + example + "."
}

func writeList(b *strings.Builder, title string, items []string, limit int) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title)
	b.WriteByte('\n')
	for _, it := range items[:min(len(items), limit)] {
		fmt.Fprintf(b, "- %s\n", it)
	}
}

func isGreeting(q string, tokens []string) bool {
	for _, t := range tokens {
		if slices.Contains(greetingWords, t) {
			return true
		}
	}
	return containsAny(q, greetingPhrases...)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// words lowercases s and splits it on anything but letters, marks, digits
// and hyphens.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func percent(part, total float64) string {
	if total <= 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", part/total*100)
}
