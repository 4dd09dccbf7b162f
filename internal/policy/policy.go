// Package policy defines the government scheme records served by the search
// engine and loads the static dataset they come from.
package policy

// Policy is one scheme record. Records are never mutated after the dataset
// is loaded.
type Policy struct {
	ID                 int      `json:"id"`
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Description        string   `json:"description"`
	ImplementingAgency string   `json:"implementingAgency"`
	Budget             float64  `json:"budget"`
	Status             string   `json:"status"`
	LaunchYear         int      `json:"launchYear,omitempty"`
	Beneficiaries      string   `json:"beneficiaries,omitempty"`
	Coverage           string   `json:"coverage,omitempty"`
	SearchKeywords     []string `json:"search_keywords"`
	Achievements       []string `json:"achievements"`
	Challenges         []string `json:"challenges"`
}

// Clone returns a copy whose slices do not alias p.
func (p Policy) Clone() Policy {
	p.SearchKeywords = append([]string(nil), p.SearchKeywords...)
	p.Achievements = append([]string(nil), p.Achievements...)
	p.Challenges = append([]string(nil), p.Challenges...)
	return p
}
