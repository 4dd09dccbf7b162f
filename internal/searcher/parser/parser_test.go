package parser

import (
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		query string
		empty bool
		lower string
		terms []string
	}{
		{"blank", "", true, "", []string{}},
		{"whitespace", "  \t ", true, "  \t ", []string{}},
		{"single term", "Scholarship", false, "scholarship", []string{"scholarship"}},
		{"short words dropped", "PM SHRI of India", false, "pm shri of india", []string{"shri", "india"}},
		{"extra whitespace", "  digital   learning ", false, "  digital   learning ", []string{"digital", "learning"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Parse(tt.query)
			if plan.Empty != tt.empty {
				t.Errorf("Empty = %v, want %v", plan.Empty, tt.empty)
			}
			if plan.Lower != tt.lower {
				t.Errorf("Lower = %q, want %q", plan.Lower, tt.lower)
			}
			if plan.RawQuery != tt.query {
				t.Errorf("RawQuery = %q, want %q", plan.RawQuery, tt.query)
			}
			if !reflect.DeepEqual(plan.Terms, tt.terms) {
				t.Errorf("Terms = %v, want %v", plan.Terms, tt.terms)
			}
		})
	}
}
