package state

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

// Role identifies a judicial persona.
type Role string

const (
	RoleProsecutor Role = "prosecutor"
	RoleDefense    Role = "defense"
	RoleTechLead   Role = "tech-lead"
)

// Roles lists every judicial persona in a deterministic order.
var Roles = []Role{RoleProsecutor, RoleDefense, RoleTechLead}

// Valid reports whether the role is one of the known personas.
func (r Role) Valid() bool {
	switch r {
	case RoleProsecutor, RoleDefense, RoleTechLead:
		return true
	}
	return false
}

// Finding is one atomic, falsifiable observation produced by a detective.
// Findings are immutable after creation.
type Finding struct {
	// ID uniquely identifies this finding so opinions can cite it.
	ID string `json:"id"`

	// Goal describes what the detective was trying to verify.
	Goal string `json:"goal"`

	// Satisfied reports whether the target artifact or condition was found.
	Satisfied bool `json:"satisfied"`

	// Content is an optional snippet or structured summary backing the finding.
	Content string `json:"content,omitempty"`

	// Location is a file path, commit hash, URL, or other locator. Never empty.
	Location string `json:"location"`

	// Rationale explains why this finding supports its conclusion.
	Rationale string `json:"rationale"`

	// Confidence is the detective's confidence in [0.0, 1.0].
	Confidence float64 `json:"confidence"`

	// Category tags the finding class (e.g. "tool-safety"). The security
	// override predicate keys off this tag.
	Category string `json:"category,omitempty"`
}

// NewFindingID returns a fresh unique finding identifier.
func NewFindingID() string {
	return ulid.Make().String()
}

// Validate checks the finding's shape contract. A violation is a provider bug,
// not a degraded input, so it is surfaced as a ContractError.
func (f Finding) Validate() error {
	if f.Location == "" {
		return &ContractError{Subject: "finding", Reason: "empty location"}
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return &ContractError{
			Subject: "finding",
			Reason:  fmt.Sprintf("confidence %.2f outside [0.0, 1.0]", f.Confidence),
		}
	}
	return nil
}

// Opinion is one judge's scored assessment of one rubric item.
type Opinion struct {
	// Judge is the persona that issued this opinion.
	Judge Role `json:"judge"`

	// CriterionID is the rubric item this opinion targets.
	CriterionID string `json:"criterion_id"`

	// Score is the discrete score on a 1-5 scale.
	Score int `json:"score"`

	// Argument is the reasoning behind the score.
	Argument string `json:"argument"`

	// CitedFindings lists finding IDs this opinion relies on. Unresolved
	// citations are a data-quality signal downstream, never re-validated here.
	CitedFindings []string `json:"cited_findings,omitempty"`
}

// Validate checks the opinion's shape contract.
func (o Opinion) Validate() error {
	if !o.Judge.Valid() {
		return &ContractError{
			Subject: "opinion",
			Reason:  fmt.Sprintf("unknown judge role %q", o.Judge),
		}
	}
	if o.CriterionID == "" {
		return &ContractError{Subject: "opinion", Reason: "empty criterion id"}
	}
	if o.Score < 1 || o.Score > 5 {
		return &ContractError{
			Subject: "opinion",
			Reason:  fmt.Sprintf("score %d outside [1, 5] for criterion %q", o.Score, o.CriterionID),
		}
	}
	return nil
}

// RubricItem is one criterion being evaluated. Loaded once per run and
// read-only afterwards.
type RubricItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	GradingNotes string `json:"grading_notes,omitempty"`
}

// CriterionResult is the per-rubric-item output of synthesis.
type CriterionResult struct {
	CriterionID string    `json:"criterion_id"`
	Name        string    `json:"name"`
	Score       int       `json:"score"`
	Opinions    []Opinion `json:"opinions,omitempty"`

	// Dissent is non-empty when judges materially disagreed and the
	// deterministic priority rule resolved the conflict.
	Dissent string `json:"dissent,omitempty"`

	// Remediation is deterministic guidance derived from the criterion id.
	Remediation string `json:"remediation"`
}

// Verdict is the run's terminal artifact, produced exactly once by synthesis.
type Verdict struct {
	OverallScore float64           `json:"overall_score"`
	Summary      string            `json:"summary"`
	Results      []CriterionResult `json:"results"`

	// Degraded is true when the run completed without any findings and the
	// judge fan-out was skipped.
	Degraded bool `json:"degraded"`

	// SecurityOverride is true when the hard score cap fired.
	SecurityOverride bool `json:"security_override"`
}

// State is the per-run accumulator threaded through the workflow. It is
// exclusively owned by the engine for the duration of one run; stages only
// ever see snapshots and return deltas.
type State struct {
	// Rubric is the criterion set, written once during setup.
	Rubric []RubricItem

	// Findings maps a criterion or finding-class id to the findings collected
	// for it. Keys are unique; insertion order within a bucket is preserved.
	Findings map[string][]Finding

	// Opinions accumulates judge outputs. Order is irrelevant for correctness
	// but preserved for audit.
	Opinions []Opinion

	// Verdict is the final output, written once by synthesis.
	Verdict *Verdict
}

// New returns a fresh, empty State for one run.
func New() *State {
	return &State{
		Findings: make(map[string][]Finding),
	}
}

// Snapshot is a read-only deep copy of a State handed to concurrent stages.
// Each stage receives the snapshot taken at the start of its fan-out group, so
// no stage ever observes another branch's in-flight writes.
type Snapshot struct {
	Rubric   []RubricItem
	Findings map[string][]Finding
	Opinions []Opinion
	Verdict  *Verdict
}

// Snapshot returns a deep copy of the current state.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Rubric:   append([]RubricItem(nil), s.Rubric...),
		Findings: make(map[string][]Finding, len(s.Findings)),
		Opinions: append([]Opinion(nil), s.Opinions...),
	}
	for key, bucket := range s.Findings {
		snap.Findings[key] = append([]Finding(nil), bucket...)
	}
	if s.Verdict != nil {
		v := *s.Verdict
		v.Results = append([]CriterionResult(nil), s.Verdict.Results...)
		snap.Verdict = &v
	}
	return snap
}

// HasFindings reports whether at least one bucket contains at least one
// finding. The engine's routing predicate after the evidence barrier.
func (s Snapshot) HasFindings() bool {
	for _, bucket := range s.Findings {
		if len(bucket) > 0 {
			return true
		}
	}
	return false
}

// FindingIDs returns the set of finding IDs visible in the snapshot.
func (s Snapshot) FindingIDs() map[string]bool {
	ids := make(map[string]bool)
	for _, bucket := range s.Findings {
		for _, f := range bucket {
			ids[f.ID] = true
		}
	}
	return ids
}
