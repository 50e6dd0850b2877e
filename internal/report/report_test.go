package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/auditor/internal/state"
)

func sampleVerdict() *state.Verdict {
	return &state.Verdict{
		OverallScore: 3.5,
		Summary:      "Overall score 3.5/5. See the per-criterion breakdown for each judge's reasoning.",
		Results: []state.CriterionResult{
			{
				CriterionID: "tool_safety",
				Name:        "Tool Safety",
				Score:       3,
				Opinions: []state.Opinion{
					{Judge: state.RoleTechLead, CriterionID: "tool_safety", Score: 3,
						Argument: "temp dirs used but no timeout", CitedFindings: []string{"f1", "f2"}},
				},
				Dissent:     "Judges materially disagreed on this criterion.",
				Remediation: "Wrap subprocess calls with managed temp directories.",
			},
			{
				CriterionID: "doc_theory",
				Name:        "Theoretical Depth",
				Score:       4,
				Remediation: "Deepen the architecture discussion.",
			},
		},
	}
}

func TestRender_SectionOrder(t *testing.T) {
	out := Render(sampleVerdict(), Meta{RepoURL: "https://example.com/repo.git", DocPath: "report.md"})

	sections := []string{
		"# Audit Report",
		"## Executive Summary",
		"## Overall Score",
		"## Criterion Breakdown",
		"## Remediation Plan",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(out, s)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}

	assert.Contains(t, out, "**3.5 / 5**")
	assert.Contains(t, out, "https://example.com/repo.git")
}

func TestRender_CriterionDetails(t *testing.T) {
	out := Render(sampleVerdict(), Meta{})

	assert.Contains(t, out, "### Tool Safety (`tool_safety`)")
	assert.Contains(t, out, "- Final score: **3/5**")
	assert.Contains(t, out, "- Dissent: Judges materially disagreed")
	assert.Contains(t, out, "(cites: f1, f2)")
	assert.Contains(t, out, "- Opinions: none (no judge output for this criterion)")
}

func TestRender_DegradedRun_AllSectionsPresent(t *testing.T) {
	v := &state.Verdict{
		OverallScore: 1.0,
		Summary:      "This run is DEGRADED.",
		Degraded:     true,
		Results: []state.CriterionResult{
			{CriterionID: "a", Name: "A", Score: 1, Remediation: "Collect evidence first."},
		},
	}

	out := Render(v, Meta{})
	assert.Contains(t, out, "## Executive Summary")
	assert.Contains(t, out, "## Criterion Breakdown")
	assert.Contains(t, out, "## Remediation Plan")
	assert.Contains(t, out, "- Opinions: none")
}

func TestRender_Pure(t *testing.T) {
	v := sampleVerdict()
	assert.Equal(t, Render(v, Meta{RepoURL: "x"}), Render(v, Meta{RepoURL: "x"}))
}

func TestWrite_CreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "audit.md")
	require.NoError(t, Write(path, "# Audit Report\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "# Audit Report\n", string(data))
}
