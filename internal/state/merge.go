package state

import "fmt"

// Delta is the partial update a stage returns instead of mutating shared
// state. Each field carries its own merge policy, applied by Apply at a
// fan-in barrier:
//
//   - Rubric:   replace-once (written by exactly one stage)
//   - Findings: union-of-lists-by-key (commutative across parallel stages)
//   - Opinions: append (commutative across parallel stages)
//   - Verdict:  replace-once (written by exactly one stage)
//
// Fields written concurrently are restricted to the additive policies, so the
// order deltas arrive at a barrier never affects the merged result.
type Delta struct {
	Rubric   []RubricItem
	Findings map[string][]Finding
	Opinions []Opinion
	Verdict  *Verdict
}

// Empty reports whether the delta carries no updates at all.
func (d Delta) Empty() bool {
	return len(d.Rubric) == 0 && len(d.Findings) == 0 && len(d.Opinions) == 0 && d.Verdict == nil
}

// Apply merges a delta into the state, validating every record against its
// shape contract. Validation failures and double writes to replace-once
// fields return an error and leave the state partially updated; the engine
// treats both as unrecoverable faults that abort the run.
func (s *State) Apply(d Delta) error {
	if len(d.Rubric) > 0 {
		if len(s.Rubric) > 0 {
			return fmt.Errorf("merge: rubric written twice (replace-once field)")
		}
		s.Rubric = append([]RubricItem(nil), d.Rubric...)
	}

	for key, bucket := range d.Findings {
		if key == "" {
			return &ContractError{Subject: "finding", Reason: "empty bucket key"}
		}
		for _, f := range bucket {
			if err := f.Validate(); err != nil {
				return fmt.Errorf("merge: bucket %q: %w", key, err)
			}
		}
		s.Findings[key] = append(s.Findings[key], bucket...)
	}

	for _, o := range d.Opinions {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("merge: %w", err)
		}
	}
	s.Opinions = append(s.Opinions, d.Opinions...)

	if d.Verdict != nil {
		if s.Verdict != nil {
			return fmt.Errorf("merge: verdict written twice (replace-once field)")
		}
		v := *d.Verdict
		s.Verdict = &v
	}

	return nil
}

// ContractError reports a provider returning data that violates the basic
// shape contract. This is a fault to surface, not input to coerce: silently
// clamping an out-of-range score would hide a provider bug.
type ContractError struct {
	Subject string // "finding" or "opinion"
	Reason  string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("contract violation in %s: %s", e.Subject, e.Reason)
}
