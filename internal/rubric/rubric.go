// Package rubric loads the criterion set and synthesis policy for an audit
// run. A default rubric is embedded in the binary; callers may override it
// with a JSON file at startup.
package rubric

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dusk-indust/auditor/internal/state"
)

//go:embed rubric.json
var defaultRubric []byte

// SynthesisConfig is the rubric-supplied synthesis policy. Keeping the dissent
// threshold, security-sensitive set, and unsafe markers here means the policy
// ships with the rubric instead of being hard-coded to one criterion set.
type SynthesisConfig struct {
	JudgePriority     []string          `json:"judge_priority"`
	DissentThreshold  int               `json:"dissent_threshold"`
	SecurityCap       int               `json:"security_cap"`
	SecuritySensitive []string          `json:"security_sensitive"`
	UnsafeCategories  []string          `json:"unsafe_categories"`
	UnsafeMarkers     []string          `json:"unsafe_markers"`
	Remediation       map[string]string `json:"remediation"`
}

// Rubric is one complete criterion set plus its synthesis policy.
type Rubric struct {
	Name      string             `json:"name"`
	Items     []state.RubricItem `json:"items"`
	Synthesis SynthesisConfig    `json:"synthesis"`
}

// Default returns the embedded rubric.
func Default() (*Rubric, error) {
	return parse(defaultRubric, "embedded rubric")
}

// Load reads a rubric from a JSON file.
func Load(path string) (*Rubric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rubric: read %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, source string) (*Rubric, error) {
	var r Rubric
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("rubric: parse %s: %w", source, err)
	}
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("rubric: %s: %w", source, err)
	}
	return &r, nil
}

// Validate checks structural invariants: non-empty items, unique ids, known
// judge roles in the priority list, and security-sensitive ids that actually
// exist in the item set.
func (r *Rubric) Validate() error {
	if len(r.Items) == 0 {
		return fmt.Errorf("no rubric items")
	}

	ids := make(map[string]bool, len(r.Items))
	for _, item := range r.Items {
		if item.ID == "" {
			return fmt.Errorf("rubric item with empty id (name %q)", item.Name)
		}
		if ids[item.ID] {
			return fmt.Errorf("duplicate rubric item id %q", item.ID)
		}
		ids[item.ID] = true
	}

	for _, role := range r.Synthesis.JudgePriority {
		if !state.Role(role).Valid() {
			return fmt.Errorf("unknown judge role %q in priority list", role)
		}
	}

	for _, id := range r.Synthesis.SecuritySensitive {
		if !ids[id] {
			return fmt.Errorf("security-sensitive id %q does not match any rubric item", id)
		}
	}

	return nil
}

// Priority returns the configured judge priority as typed roles, or nil when
// the rubric does not override the default order.
func (r *Rubric) Priority() []state.Role {
	roles := make([]state.Role, 0, len(r.Synthesis.JudgePriority))
	for _, role := range r.Synthesis.JudgePriority {
		roles = append(roles, state.Role(role))
	}
	return roles
}
