package judge

import (
	"context"

	"github.com/dusk-indust/auditor/internal/state"
)

// Compile-time check.
var _ Judge = (*Placeholder)(nil)

// Placeholder is the judge used when no language-model backend is configured.
// Its output is fully deterministic: the persona's default score for every
// rubric item.
type Placeholder struct {
	p persona
}

// NewPlaceholder creates a placeholder judge for the given role.
func NewPlaceholder(role state.Role) (*Placeholder, error) {
	p, err := personaFor(role)
	if err != nil {
		return nil, err
	}
	return &Placeholder{p: p}, nil
}

// Role returns the judicial persona.
func (j *Placeholder) Role() state.Role { return j.p.role }

// Review emits one conservative placeholder opinion per rubric item.
func (j *Placeholder) Review(_ context.Context, rubric []state.RubricItem, _ map[string][]state.Finding) ([]state.Opinion, error) {
	return placeholderOpinions(j.p, rubric, "no language-model backend configured"), nil
}

// PlaceholderPanel returns a placeholder judge for every persona, in the
// standard role order.
func PlaceholderPanel() []Judge {
	panel := make([]Judge, 0, len(state.Roles))
	for _, role := range state.Roles {
		j, err := NewPlaceholder(role)
		if err != nil {
			continue // unreachable: state.Roles only holds known personas
		}
		panel = append(panel, j)
	}
	return panel
}
