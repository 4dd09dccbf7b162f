package chat

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/NitiSetu/internal/policy"
)

// SystemPrompt describes the assistant and lists the schemes it can quote.
func SystemPrompt(policies []policy.Policy) string {
	var (
		b     strings.Builder
		total float64
	)
	b.WriteString("You are NitiSetu, an assistant for Ministry of Education policy questions in India.\n")
	b.WriteString("Answer from the scheme data below and from any uploaded documents. Cite scheme names and figures, and say so when the data does not cover a question.\n\nSchemes:\n")
	for i, p := range policies {
		fmt.Fprintf(&b, "%d. %s: Rs %s crore, %s, %s (%s)\n", i+1, p.Name, formatCrore(p.Budget), p.Category, p.Status, p.ImplementingAgency)
		total += p.Budget
	}
	fmt.Fprintf(&b, "\nTotal budget across schemes: Rs %s crore.\n", formatCrore(total))
	b.WriteString("Keep answers short and use bullet points for lists.")
	return b.String()
}

// formatCrore groups digits in thousands: 27360 -> 27,360.
func formatCrore(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	if v != float64(int64(v)) {
		s = fmt.Sprintf("%.2f", v)
	}
	intPart, frac, _ := strings.Cut(s, ".")
	var out []byte
	for i, c := range []byte(intPart) {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if frac != "" {
		return string(out) + "." + frac
	}
	return string(out)
}
