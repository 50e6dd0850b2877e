package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finding(id, location string) Finding {
	return Finding{
		ID:         id,
		Goal:       "verify " + id,
		Satisfied:  true,
		Location:   location,
		Rationale:  "seen at " + location,
		Confidence: 0.9,
	}
}

func TestApply_FindingsUnionByKey(t *testing.T) {
	s := New()

	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"git_forensics": {finding("f1", "a.go")},
	}}))
	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"git_forensics": {finding("f2", "b.go")},
		"doc_theory":    {finding("f3", "report.md")},
	}}))

	require.Len(t, s.Findings["git_forensics"], 2)
	assert.Equal(t, "f1", s.Findings["git_forensics"][0].ID)
	assert.Equal(t, "f2", s.Findings["git_forensics"][1].ID)
	require.Len(t, s.Findings["doc_theory"], 1)
}

func TestApply_OrderIndependent(t *testing.T) {
	deltas := []Delta{
		{Findings: map[string][]Finding{"a": {finding("f1", "x")}}},
		{Findings: map[string][]Finding{"b": {finding("f2", "y")}}},
		{Opinions: []Opinion{{Judge: RoleDefense, CriterionID: "a", Score: 3, Argument: "ok"}}},
	}

	// Every arrival order must produce the same merged buckets.
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}
	var states []*State
	for _, perm := range permutations {
		s := New()
		for _, i := range perm {
			require.NoError(t, s.Apply(deltas[i]))
		}
		states = append(states, s)
	}

	for _, s := range states[1:] {
		assert.Equal(t, states[0].Findings, s.Findings)
		assert.Equal(t, states[0].Opinions, s.Opinions)
	}
}

func TestApply_RubricReplaceOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{Rubric: []RubricItem{{ID: "a", Name: "A"}}}))

	err := s.Apply(Delta{Rubric: []RubricItem{{ID: "b", Name: "B"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rubric written twice")
}

func TestApply_VerdictReplaceOnce(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{Verdict: &Verdict{OverallScore: 3}}))

	err := s.Apply(Delta{Verdict: &Verdict{OverallScore: 4}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verdict written twice")
}

func TestApply_InvalidFinding_ContractError(t *testing.T) {
	s := New()

	bad := finding("f1", "")
	err := s.Apply(Delta{Findings: map[string][]Finding{"a": {bad}}})
	require.Error(t, err)

	var cerr *ContractError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "finding", cerr.Subject)
}

func TestApply_OutOfRangeConfidence_ContractError(t *testing.T) {
	s := New()

	bad := finding("f1", "a.go")
	bad.Confidence = 1.5
	err := s.Apply(Delta{Findings: map[string][]Finding{"a": {bad}}})

	var cerr *ContractError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Reason, "confidence")
}

func TestApply_InvalidOpinion_ContractError(t *testing.T) {
	s := New()

	tests := []struct {
		name    string
		opinion Opinion
	}{
		{"unknown role", Opinion{Judge: "bailiff", CriterionID: "a", Score: 3, Argument: "x"}},
		{"score too low", Opinion{Judge: RoleDefense, CriterionID: "a", Score: 0, Argument: "x"}},
		{"score too high", Opinion{Judge: RoleDefense, CriterionID: "a", Score: 6, Argument: "x"}},
		{"empty criterion", Opinion{Judge: RoleDefense, Score: 3, Argument: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Apply(Delta{Opinions: []Opinion{tt.opinion}})
			var cerr *ContractError
			require.ErrorAs(t, err, &cerr)
		})
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"a": {finding("f1", "x")},
	}}))

	snap := s.Snapshot()
	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"a": {finding("f2", "y")},
	}}))

	assert.Len(t, snap.Findings["a"], 1, "snapshot must not observe later writes")
	assert.Len(t, s.Findings["a"], 2)
}

func TestSnapshot_HasFindings(t *testing.T) {
	s := New()
	assert.False(t, s.Snapshot().HasFindings())

	s.Findings["empty"] = nil
	assert.False(t, s.Snapshot().HasFindings(), "empty bucket is not evidence")

	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"a": {finding("f1", "x")},
	}}))
	assert.True(t, s.Snapshot().HasFindings())
}

func TestSnapshot_FindingIDs(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(Delta{Findings: map[string][]Finding{
		"a": {finding("f1", "x")},
		"b": {finding("f2", "y")},
	}}))

	ids := s.Snapshot().FindingIDs()
	assert.True(t, ids["f1"])
	assert.True(t, ids["f2"])
	assert.False(t, ids["f3"])
}

func TestDelta_Empty(t *testing.T) {
	assert.True(t, Delta{}.Empty())
	assert.False(t, Delta{Opinions: []Opinion{{}}}.Empty())
	assert.False(t, Delta{Verdict: &Verdict{}}.Empty())
}
