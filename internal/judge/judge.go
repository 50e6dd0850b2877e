// Package judge implements the opinion providers: judicial personas that
// score every rubric item from the collected findings. The concrete set of
// judges is selected by explicit configuration at startup; "no language-model
// backend configured" is a first-class input state served by the placeholder
// panel, not an error path.
package judge

import (
	"context"
	"fmt"

	"github.com/dusk-indust/auditor/internal/state"
)

// Judge is an opinion provider for one judicial persona. Review receives the
// rubric and the findings accumulated so far and returns one opinion per
// rubric item. Internal failures (backend unavailable, malformed model
// output) must degrade into conservative placeholder opinions; the error
// return is reserved for unrecoverable faults.
type Judge interface {
	Role() state.Role
	Review(ctx context.Context, rubric []state.RubricItem, findings map[string][]state.Finding) ([]state.Opinion, error)
}

// persona holds the fixed character of one judge role.
type persona struct {
	role         state.Role
	displayName  string
	instructions string
	defaultScore int
}

// personas defines the closed set of judge roles. Default scores mirror each
// persona's disposition when no real assessment is possible: the prosecutor
// assumes unproven, the defense and tech lead stay neutral.
var personas = map[state.Role]persona{
	state.RoleProsecutor: {
		role:        state.RoleProsecutor,
		displayName: "Prosecutor",
		instructions: "You are the Prosecutor: a critical reviewer. Hunt for gaps between " +
			"what the rubric demands and what the evidence shows. Unsatisfied or missing " +
			"evidence weighs heavily against the artifact. Award high scores only when the " +
			"evidence is airtight.",
		defaultScore: 1,
	},
	state.RoleDefense: {
		role:        state.RoleDefense,
		displayName: "Defense",
		instructions: "You are the Defense: an optimistic reviewer. Recognize genuine effort " +
			"and partial progress, and give the artifact the benefit of the doubt where the " +
			"evidence is ambiguous. Do not invent evidence that is not there.",
		defaultScore: 3,
	},
	state.RoleTechLead: {
		role:        state.RoleTechLead,
		displayName: "Tech Lead",
		instructions: "You are the Tech Lead: a pragmatic reviewer. Judge operational " +
			"correctness: does the thing actually work the way the rubric requires? Ignore " +
			"both style points and rhetorical polish; weigh concrete evidence only.",
		defaultScore: 3,
	},
}

// personaFor returns the persona for a role.
func personaFor(role state.Role) (persona, error) {
	p, ok := personas[role]
	if !ok {
		return persona{}, fmt.Errorf("judge: unknown role %q", role)
	}
	return p, nil
}

// placeholderOpinions builds the conservative fallback panel output for one
// role: one deterministic opinion per rubric item with the persona's default
// score and no citations.
func placeholderOpinions(p persona, rubric []state.RubricItem, reason string) []state.Opinion {
	ops := make([]state.Opinion, 0, len(rubric))
	for _, item := range rubric {
		ops = append(ops, state.Opinion{
			Judge:       p.role,
			CriterionID: item.ID,
			Score:       p.defaultScore,
			Argument: fmt.Sprintf("[%s] Placeholder assessment for %q: %s.",
				p.displayName, item.Name, reason),
		})
	}
	return ops
}
