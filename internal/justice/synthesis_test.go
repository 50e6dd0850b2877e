package justice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/auditor/internal/state"
)

func opinion(judge state.Role, criterion string, score int) state.Opinion {
	return state.Opinion{Judge: judge, CriterionID: criterion, Score: score, Argument: "because"}
}

func unsafeFinding(category, content string) state.Finding {
	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       "check subprocess hygiene",
		Satisfied:  false,
		Content:    content,
		Location:   "tools.py",
		Rationale:  "raw shell execution observed",
		Confidence: 0.9,
		Category:   category,
	}
}

func snapshot(rubric []state.RubricItem, findings map[string][]state.Finding, opinions []state.Opinion) state.Snapshot {
	if findings == nil {
		findings = map[string][]state.Finding{}
	}
	return state.Snapshot{Rubric: rubric, Findings: findings, Opinions: opinions}
}

var twoItems = []state.RubricItem{
	{ID: "tool_safety", Name: "Tool Safety"},
	{ID: "doc_theory", Name: "Theoretical Depth"},
}

func TestSynthesize_PriorityRule(t *testing.T) {
	syn := New(Config{})

	snap := snapshot(twoItems, map[string][]state.Finding{
		"doc_theory": {{ID: "f1", Satisfied: true, Location: "report.md", Rationale: "seen", Confidence: 0.8}},
	}, []state.Opinion{
		opinion(state.RoleProsecutor, "tool_safety", 1),
		opinion(state.RoleDefense, "tool_safety", 5),
		opinion(state.RoleTechLead, "tool_safety", 4),
		opinion(state.RoleProsecutor, "doc_theory", 2),
		opinion(state.RoleDefense, "doc_theory", 4),
	})

	v, err := syn.Synthesize(snap)
	require.NoError(t, err)

	// Tech lead present: their score wins regardless of the others.
	assert.Equal(t, 4, v.Results[0].Score)
	// Tech lead missing: next in priority is the prosecutor.
	assert.Equal(t, 2, v.Results[1].Score)
}

func TestSynthesize_NoOpinions_FloorScore(t *testing.T) {
	syn := New(Config{})

	snap := snapshot(twoItems, map[string][]state.Finding{
		"doc_theory": {{ID: "f1", Satisfied: true, Location: "report.md", Rationale: "seen", Confidence: 0.8}},
	}, nil)

	v, err := syn.Synthesize(snap)
	require.NoError(t, err)

	for _, res := range v.Results {
		assert.Equal(t, 1, res.Score)
	}
	assert.False(t, v.Degraded, "findings exist, so the run is not degraded")
}

func TestSynthesize_Degraded_AllFloorScores(t *testing.T) {
	syn := New(Config{})

	v, err := syn.Synthesize(snapshot(twoItems, nil, nil))
	require.NoError(t, err)

	assert.True(t, v.Degraded)
	assert.Equal(t, 1.0, v.OverallScore)
	assert.Contains(t, v.Summary, "DEGRADED")
	for _, res := range v.Results {
		assert.Equal(t, 1, res.Score)
	}
}

func TestSynthesize_DissentNote(t *testing.T) {
	syn := New(Config{})

	tests := []struct {
		name    string
		scores  map[state.Role]int
		dissent bool
	}{
		{"spread of four", map[state.Role]int{state.RoleProsecutor: 1, state.RoleDefense: 5}, true},
		{"spread of one", map[state.Role]int{state.RoleTechLead: 3, state.RoleDefense: 4}, false},
		{"spread of exactly two", map[state.Role]int{state.RoleProsecutor: 2, state.RoleDefense: 4}, false},
		{"single opinion", map[state.Role]int{state.RoleDefense: 5}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ops []state.Opinion
			for role, score := range tt.scores {
				ops = append(ops, opinion(role, "doc_theory", score))
			}
			snap := snapshot(twoItems, map[string][]state.Finding{
				"doc_theory": {{ID: "f1", Satisfied: true, Location: "x", Rationale: "r", Confidence: 0.5}},
			}, ops)

			v, err := syn.Synthesize(snap)
			require.NoError(t, err)
			if tt.dissent {
				assert.NotEmpty(t, v.Results[1].Dissent)
			} else {
				assert.Empty(t, v.Results[1].Dissent)
			}
		})
	}
}

func TestSynthesize_SecurityOverride(t *testing.T) {
	syn := New(Config{
		SecuritySensitive: []string{"tool_safety"},
		Unsafe:            UnsafeMarkers([]string{"tool-safety"}, []string{"os.system"}),
	})

	snap := snapshot(twoItems, map[string][]state.Finding{
		"tool_safety": {unsafeFinding("tool-safety", "os.system(cmd)")},
	}, []state.Opinion{
		opinion(state.RoleTechLead, "tool_safety", 5),
		opinion(state.RoleTechLead, "doc_theory", 4),
	})

	v, err := syn.Synthesize(snap)
	require.NoError(t, err)

	assert.True(t, v.SecurityOverride)
	assert.Equal(t, 3, v.Results[0].Score, "sensitive criterion capped at 3")
	assert.Equal(t, 4, v.Results[1].Score, "non-sensitive criterion untouched")
	assert.InDelta(t, 3.0, v.OverallScore, 0.001, "overall capped by the override")
	assert.Contains(t, v.Results[0].Dissent, "Security override")
}

func TestSynthesize_SatisfiedFinding_NoOverride(t *testing.T) {
	syn := New(Config{
		SecuritySensitive: []string{"tool_safety"},
		Unsafe:            UnsafeMarkers([]string{"tool-safety"}, []string{"os.system"}),
	})

	safe := unsafeFinding("tool-safety", "os.system not found; tempfile.TemporaryDirectory used")
	safe.Satisfied = true

	snap := snapshot(twoItems, map[string][]state.Finding{
		"tool_safety": {safe},
	}, []state.Opinion{opinion(state.RoleTechLead, "tool_safety", 5)})

	v, err := syn.Synthesize(snap)
	require.NoError(t, err)
	assert.False(t, v.SecurityOverride)
	assert.Equal(t, 5, v.Results[0].Score)
}

func TestSynthesize_Idempotent(t *testing.T) {
	syn := New(Config{
		SecuritySensitive: []string{"tool_safety"},
		Unsafe:            UnsafeMarkers([]string{"tool-safety"}, []string{"shell=true"}),
	})

	snap := snapshot(twoItems, map[string][]state.Finding{
		"tool_safety": {unsafeFinding("tool-safety", "subprocess.run(cmd, shell=True)")},
		"doc_theory":  {{ID: "f2", Satisfied: true, Location: "report.md", Rationale: "r", Confidence: 0.7}},
	}, []state.Opinion{
		opinion(state.RoleProsecutor, "tool_safety", 1),
		opinion(state.RoleDefense, "tool_safety", 5),
		opinion(state.RoleTechLead, "doc_theory", 4),
	})

	first, err := syn.Synthesize(snap)
	require.NoError(t, err)
	second, err := syn.Synthesize(snap)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSynthesize_OverrideWithPartialPanel(t *testing.T) {
	items := []state.RubricItem{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
	}
	syn := New(Config{
		SecuritySensitive: []string{"a"},
		Unsafe:            UnsafeMarkers(nil, []string{"unsafe"}),
	})

	trigger := state.Finding{
		ID:         state.NewFindingID(),
		Goal:       "check tool hygiene",
		Satisfied:  false,
		Location:   "tools.py",
		Rationale:  "unsafe shell interpolation of the clone URL",
		Confidence: 0.9,
	}
	snap := snapshot(items, map[string][]state.Finding{"a": {trigger}}, []state.Opinion{
		opinion(state.RoleTechLead, "a", 5),
		opinion(state.RoleTechLead, "b", 4),
	})

	v, err := syn.Synthesize(snap)
	require.NoError(t, err)

	assert.Equal(t, 3, v.Results[0].Score, "capped despite a 5 from the tech lead")
	assert.Equal(t, 4, v.Results[1].Score)
	assert.InDelta(t, 3.0, v.OverallScore, 0.001, "mean of 3 and 4 capped to 3")
}

func TestSynthesize_EmptyRubric_Error(t *testing.T) {
	syn := New(Config{})
	_, err := syn.Synthesize(snapshot(nil, nil, nil))
	require.Error(t, err)
}

func TestSynthesize_RemediationHints(t *testing.T) {
	syn := New(Config{
		Remediation: map[string]string{"tool_safety": "Use a managed temp directory."},
	})

	v, err := syn.Synthesize(snapshot(twoItems, nil, nil))
	require.NoError(t, err)

	assert.Contains(t, v.Results[0].Remediation, "managed temp directory")
	assert.Equal(t, GenericRemediation, v.Results[1].Remediation)
}

func TestUnsafeMarkers(t *testing.T) {
	unsafe := UnsafeMarkers([]string{"tool-safety"}, []string{"os.system", "shell=true"})

	assert.True(t, unsafe(unsafeFinding("tool-safety", "calls os.system(cmd)")))
	assert.True(t, unsafe(unsafeFinding("Tool-Safety", "Popen(..., SHELL=TRUE)")), "matching is case-insensitive")
	assert.False(t, unsafe(unsafeFinding("doc_theory", "os.system(cmd)")), "category outside the sensitive set")
	assert.False(t, unsafe(unsafeFinding("tool-safety", "uses tempfile only")))
}
