// Package justice implements the deterministic synthesis of judge opinions
// and detective findings into a final verdict. Given the same frozen state it
// always produces an identical verdict: no randomness, no hidden state.
package justice

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dusk-indust/auditor/internal/state"
)

// GenericRemediation is attached to criteria with no specific hint.
const GenericRemediation = "Insufficient evidence collected for this criterion; revisit the artifact against the rubric's grading notes."

// Config holds the synthesis policy. The dissent threshold, security-sensitive
// id set, and remediation hints are rubric configuration, not literals.
type Config struct {
	// Priority is the judge order consulted for the base score, most
	// pragmatic persona first. Operational correctness evidence outranks tone
	// of optimism or skepticism when they disagree.
	Priority []state.Role

	// DissentThreshold is the score spread above which a dissent note is
	// attached (strictly greater-than).
	DissentThreshold int

	// SecuritySensitive lists the criterion ids subject to the hard cap.
	SecuritySensitive []string

	// SecurityCap is the ceiling applied when the override fires.
	SecurityCap int

	// Remediation maps criterion ids to fixed guidance text.
	Remediation map[string]string

	// Unsafe decides whether a finding triggers the security override. The
	// synthesizer is agnostic to what "unsafe" means; it only evaluates this
	// predicate per finding. Nil disables the override.
	Unsafe func(state.Finding) bool
}

// DefaultPriority is the base-score order when no rubric override is given:
// the pragmatic persona first, then the critical one, then the lenient one.
var DefaultPriority = []state.Role{state.RoleTechLead, state.RoleProsecutor, state.RoleDefense}

// Synthesizer reduces opinions and findings into a Verdict.
type Synthesizer struct {
	cfg Config
}

// New creates a Synthesizer, filling in defaults for zero-value policy fields.
func New(cfg Config) *Synthesizer {
	if len(cfg.Priority) == 0 {
		cfg.Priority = DefaultPriority
	}
	if cfg.DissentThreshold == 0 {
		cfg.DissentThreshold = 2
	}
	if cfg.SecurityCap == 0 {
		cfg.SecurityCap = 3
	}
	return &Synthesizer{cfg: cfg}
}

// Synthesize produces the verdict for a fully merged, frozen state. The
// degraded flag marks runs where the judge fan-out was skipped for lack of
// findings; every criterion then scores the conservative floor.
func (s *Synthesizer) Synthesize(snap state.Snapshot) (*state.Verdict, error) {
	if len(snap.Rubric) == 0 {
		return nil, fmt.Errorf("justice: cannot synthesize without rubric items")
	}

	override := s.overrideTriggered(snap)
	degraded := len(snap.Opinions) == 0 && !snap.HasFindings()

	sensitive := make(map[string]bool, len(s.cfg.SecuritySensitive))
	for _, id := range s.cfg.SecuritySensitive {
		sensitive[id] = true
	}

	results := make([]state.CriterionResult, 0, len(snap.Rubric))
	var total int
	for _, item := range snap.Rubric {
		res := s.synthesizeCriterion(item, opinionsFor(snap.Opinions, item.ID))
		if override && sensitive[item.ID] && res.Score > s.cfg.SecurityCap {
			res.Score = s.cfg.SecurityCap
			res.Dissent = appendNote(res.Dissent, fmt.Sprintf(
				"Security override: score capped at %d due to an unsatisfied trust/safety finding.",
				s.cfg.SecurityCap))
		}
		total += res.Score
		results = append(results, res)
	}

	overall := float64(total) / float64(len(results))
	if override && overall > float64(s.cfg.SecurityCap) {
		overall = float64(s.cfg.SecurityCap)
	}

	return &state.Verdict{
		OverallScore:     overall,
		Summary:          s.summary(overall, degraded, override),
		Results:          results,
		Degraded:         degraded,
		SecurityOverride: override,
	}, nil
}

// synthesizeCriterion applies base-score selection and dissent detection for
// one rubric item.
func (s *Synthesizer) synthesizeCriterion(item state.RubricItem, ops []state.Opinion) state.CriterionResult {
	res := state.CriterionResult{
		CriterionID: item.ID,
		Name:        item.Name,
		Opinions:    ops,
		Remediation: s.remediationFor(item.ID, len(ops) == 0),
	}

	// Base score: first persona in priority order that produced an opinion.
	// Absent all of them, score 1 is the conservative floor for unproven work.
	res.Score = 1
	for _, role := range s.cfg.Priority {
		if op, ok := opinionBy(ops, role); ok {
			res.Score = op.Score
			break
		}
	}

	// Dissent: spread over the opinions actually present. Undefined spread
	// (fewer than two opinions) is treated as zero.
	if spread(ops) > s.cfg.DissentThreshold {
		res.Dissent = fmt.Sprintf(
			"Judges materially disagreed on this criterion (scores %s). The deterministic priority rule, not an average, resolved the conflict in favor of the %s.",
			scoreList(ops), s.cfg.Priority[0])
	}

	return res
}

// overrideTriggered scans every finding bucket for an unsafe, unsatisfied
// finding. The cap applies run-wide once any finding trips the predicate.
func (s *Synthesizer) overrideTriggered(snap state.Snapshot) bool {
	if s.cfg.Unsafe == nil {
		return false
	}
	for _, key := range sortedKeys(snap.Findings) {
		for _, f := range snap.Findings[key] {
			if !f.Satisfied && s.cfg.Unsafe(f) {
				return true
			}
		}
	}
	return false
}

// remediationFor returns the fixed guidance for a criterion. Items with a
// specific hint keep it even when evidence was missing; everything else gets
// the generic message.
func (s *Synthesizer) remediationFor(criterionID string, noOpinions bool) string {
	if hint, ok := s.cfg.Remediation[criterionID]; ok && hint != "" {
		if noOpinions {
			return hint + " (No judge opinions were available for this criterion.)"
		}
		return hint
	}
	return GenericRemediation
}

// summary renders the templated executive summary.
func (s *Synthesizer) summary(overall float64, degraded, override bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Overall score %.1f/5.", overall)
	if degraded {
		b.WriteString(" This run is DEGRADED: no evidence could be collected, the judge panel was skipped, and every criterion received the conservative floor score.")
	}
	if override {
		fmt.Fprintf(&b, " The security override fired: an unsatisfied trust/safety finding capped security-sensitive criteria and the overall score at %d.", s.cfg.SecurityCap)
	}
	b.WriteString(" See the per-criterion breakdown for each judge's reasoning.")
	return b.String()
}

func opinionsFor(all []state.Opinion, criterionID string) []state.Opinion {
	var ops []state.Opinion
	for _, o := range all {
		if o.CriterionID == criterionID {
			ops = append(ops, o)
		}
	}
	return ops
}

func opinionBy(ops []state.Opinion, role state.Role) (state.Opinion, bool) {
	for _, o := range ops {
		if o.Judge == role {
			return o, true
		}
	}
	return state.Opinion{}, false
}

func spread(ops []state.Opinion) int {
	if len(ops) < 2 {
		return 0
	}
	min, max := ops[0].Score, ops[0].Score
	for _, o := range ops[1:] {
		if o.Score < min {
			min = o.Score
		}
		if o.Score > max {
			max = o.Score
		}
	}
	return max - min
}

func scoreList(ops []state.Opinion) string {
	parts := make([]string, 0, len(ops))
	for _, o := range ops {
		parts = append(parts, fmt.Sprintf("%s=%d", o.Judge, o.Score))
	}
	return strings.Join(parts, ", ")
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + " " + note
}

// sortedKeys returns bucket keys in lexical order so the override scan is
// deterministic regardless of map iteration order.
func sortedKeys(findings map[string][]state.Finding) []string {
	keys := make([]string, 0, len(findings))
	for k := range findings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
