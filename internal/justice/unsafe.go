package justice

import (
	"strings"

	"github.com/dusk-indust/auditor/internal/state"
)

// UnsafeMarkers builds the standard override predicate from rubric
// configuration: a finding trips the override when its category is in the
// trust/safety-relevant set and its content or rationale contains any of the
// unsafe-pattern markers (case-insensitive). The satisfied=false requirement
// is enforced by the synthesizer, not here.
func UnsafeMarkers(categories, markers []string) func(state.Finding) bool {
	catSet := make(map[string]bool, len(categories))
	for _, c := range categories {
		catSet[strings.ToLower(c)] = true
	}
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}

	return func(f state.Finding) bool {
		if len(catSet) > 0 && !catSet[strings.ToLower(f.Category)] {
			return false
		}
		haystack := strings.ToLower(f.Content + "\n" + f.Rationale)
		for _, m := range lowered {
			if m != "" && strings.Contains(haystack, m) {
				return true
			}
		}
		return false
	}
}
