package policy

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError holds per-record validation failure messages, keyed by
// the record's position in the dataset.
type ValidationError struct {
	Records map[int]string
}

func (e *ValidationError) Error() string {
	positions := make([]int, 0, len(e.Records))
	for pos := range e.Records {
		positions = append(positions, pos)
	}
	sort.Ints(positions)
	parts := make([]string, 0, len(positions))
	for _, pos := range positions {
		parts = append(parts, fmt.Sprintf("record %d: %s", pos, e.Records[pos]))
	}
	return strings.Join(parts, "; ")
}

// validate checks the dataset invariants: at least one record, unique ids,
// a name and category on every record, and a non-negative budget.
func validate(policies []Policy) error {
	if len(policies) == 0 {
		return &ValidationError{Records: map[int]string{0: "dataset is empty"}}
	}
	errs := make(map[int]string)
	seen := make(map[int]int, len(policies))
	for i, p := range policies {
		var problems []string
		if first, dup := seen[p.ID]; dup {
			problems = append(problems, fmt.Sprintf("id %d duplicates record %d", p.ID, first))
		} else {
			seen[p.ID] = i
		}
		if strings.TrimSpace(p.Name) == "" {
			problems = append(problems, "name is required")
		}
		if strings.TrimSpace(p.Category) == "" {
			problems = append(problems, "category is required")
		}
		if p.Budget < 0 {
			problems = append(problems, "budget must not be negative")
		}
		if len(problems) > 0 {
			errs[i] = strings.Join(problems, ", ")
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Records: errs}
	}
	return nil
}
