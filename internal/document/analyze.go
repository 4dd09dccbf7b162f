// Package document extracts text from uploaded files and derives a quick
// structural analysis of policy documents.
package document

import (
	"regexp"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const maxSchemeNames = 5

var (
	numberPattern   = regexp.MustCompile(`\d+`)
	currencyPattern = regexp.MustCompile(`(?i)₹|rupees|crores?|lakhs?`)
	policyPattern   = regexp.MustCompile(`(?i)policy|scheme|program|initiative|mission`)
	budgetPattern   = regexp.MustCompile(`(?i)₹\s*[\d,]+(\.\d+)?\s*(crore|lakh|thousand)?`)

	schemePatterns = []*regexp.Regexp{
		regexp.MustCompile(`PM\s+[A-Z][A-Za-z\s]+`),
		regexp.MustCompile(`(?i)National\s+[A-Z][A-Za-z\s]+(?:Scheme|Program|Mission|Initiative)`),
		regexp.MustCompile(`(?i)(?:Scheme|Program|Mission|Initiative)\s+for\s+[A-Za-z\s]+`),
	}
)

// Document types, in detection precedence order.
const (
	TypePolicy     = "Policy Document"
	TypeBudget     = "Budget Report"
	TypeScheme     = "Scheme Details"
	TypeAnnual     = "Annual Report"
	TypeGovernment = "Government Document"
)

type Analysis struct {
	Summary       string        `json:"summary"`
	KeyInsights   []string      `json:"key_insights"`
	DocumentType  string        `json:"document_type"`
	ExtractedData ExtractedData `json:"extracted_data"`
}

type ExtractedData struct {
	WordCount        int      `json:"word_count"`
	BudgetMentions   int      `json:"budget_mentions"`
	SchemeNames      []string `json:"scheme_names"`
	HasFinancialData bool     `json:"has_financial_data"`
	HasPolicyContent bool     `json:"has_policy_content"`
	HasStatistics    bool     `json:"has_statistics"`
}

// Analyze inspects text for budget figures, scheme names and the kind of
// document it is.
func Analyze(fileName, text string) Analysis {
	words := WordCount(text)
	hasNumbers := numberPattern.MatchString(text)
	hasCurrency := currencyPattern.MatchString(text)
	hasPolicy := policyPattern.MatchString(text)
	budgetMentions := len(budgetPattern.FindAllString(text, -1))
	schemes := ExtractSchemes(text)

	p := message.NewPrinter(language.English)

	var contains []string
	if hasPolicy {
		contains = append(contains, "policy information")
	}
	if hasCurrency {
		contains = append(contains, "budget data")
	}
	summary := p.Sprintf("Document %q analyzed: %d words", fileName, words)
	if len(contains) > 0 {
		summary += " with " + strings.Join(contains, " and ")
	}
	summary += "."

	insights := []string{p.Sprintf("Document contains %d words", words)}
	if budgetMentions > 0 {
		insights = append(insights, p.Sprintf("Found %d budget references", budgetMentions))
	} else if hasCurrency {
		insights = append(insights, "Financial terms present without explicit amounts")
	} else {
		insights = append(insights, "No financial data detected")
	}
	if len(schemes) > 0 {
		insights = append(insights, p.Sprintf("Identified %d schemes or programs", len(schemes)))
	} else if hasPolicy {
		insights = append(insights, "Policy framework present")
	}
	if hasNumbers {
		insights = append(insights, "Contains statistical data and metrics")
	} else {
		insights = append(insights, "Qualitative policy information")
	}

	if len(schemes) > maxSchemeNames {
		schemes = schemes[:maxSchemeNames]
	}
	return Analysis{
		Summary:      summary,
		KeyInsights:  insights,
		DocumentType: DetectType(text),
		ExtractedData: ExtractedData{
			WordCount:        words,
			BudgetMentions:   budgetMentions,
			SchemeNames:      schemes,
			HasFinancialData: hasCurrency,
			HasPolicyContent: hasPolicy,
			HasStatistics:    hasNumbers,
		},
	}
}

// ExtractSchemes returns distinct scheme-like phrases in pattern order,
// then order of appearance.
func ExtractSchemes(text string) []string {
	seen := make(map[string]bool)
	schemes := []string{}
	for _, re := range schemePatterns {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if m == "" || seen[m] {
				continue
			}
			seen[m] = true
			schemes = append(schemes, m)
		}
	}
	return schemes
}

func DetectType(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "policy") || strings.Contains(lower, "guideline"):
		return TypePolicy
	case strings.Contains(lower, "budget") || strings.Contains(lower, "allocation"):
		return TypeBudget
	case strings.Contains(lower, "scheme") || strings.Contains(lower, "program"):
		return TypeScheme
	case strings.Contains(lower, "annual report"):
		return TypeAnnual
	default:
		return TypeGovernment
	}
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
