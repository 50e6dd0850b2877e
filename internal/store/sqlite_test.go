package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/auditor/internal/state"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "auditor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRun(id string, score float64) Run {
	return Run{
		ID:           id,
		RepoURL:      "https://example.com/repo.git",
		DocPath:      "reports/report.md",
		OverallScore: score,
		Report:       "# Audit Report\n",
		Verdict: &state.Verdict{
			OverallScore: score,
			Summary:      "fine",
			Results: []state.CriterionResult{
				{CriterionID: "tool_safety", Name: "Tool Safety", Score: 3, Remediation: "sandbox it"},
			},
		},
	}
}

func TestSaveRun_GetRun_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved := sampleRun("run-1", 3.5)
	require.NoError(t, s.SaveRun(ctx, saved))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, saved.RepoURL, got.RepoURL)
	assert.Equal(t, saved.DocPath, got.DocPath)
	assert.Equal(t, saved.OverallScore, got.OverallScore)
	assert.Equal(t, saved.Report, got.Report)
	require.NotNil(t, got.Verdict)
	assert.Equal(t, saved.Verdict.Results, got.Verdict.Results)
	assert.False(t, got.CreatedAt.IsZero(), "zero CreatedAt is filled on save")
}

func TestSaveRun_FillsID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("", 2.0)
	require.NoError(t, s.SaveRun(ctx, run))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.NotEmpty(t, runs[0].ID)
}

func TestGetRun_NotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(context.Background(), "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := sampleRun(id, float64(i))
		run.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.SaveRun(ctx, run))
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestListRuns_Empty(t *testing.T) {
	s := openTestStore(t)

	runs, err := s.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestSaveRun_DegradedFlag(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	run := sampleRun("run-degraded", 1.0)
	run.Degraded = true
	run.Verdict.Degraded = true
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-degraded")
	require.NoError(t, err)
	assert.True(t, got.Degraded)
	assert.True(t, got.Verdict.Degraded)
}
