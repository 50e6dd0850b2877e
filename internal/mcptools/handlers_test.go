package mcptools

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/auditor/internal/audit"
	"github.com/dusk-indust/auditor/internal/state"
	"github.com/dusk-indust/auditor/internal/store"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	runs []store.Run
}

func (m *memStore) SaveRun(_ context.Context, run store.Run) error {
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) GetRun(_ context.Context, id string) (*store.Run, error) {
	for i := range m.runs {
		if m.runs[i].ID == id {
			return &m.runs[i], nil
		}
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func (m *memStore) ListRuns(_ context.Context, limit int) ([]store.Run, error) {
	if limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]store.Run, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.runs[i])
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func stubAudit(score float64, degraded bool) AuditFunc {
	return func(_ context.Context, _, _ string) (*audit.Result, error) {
		return &audit.Result{
			Verdict: &state.Verdict{OverallScore: score, Degraded: degraded},
			Report:  "# Audit Report\n",
		}, nil
	}
}

func TestRunAudit_SavesAndReturnsResult(t *testing.T) {
	db := &memStore{}
	svc := NewService(stubAudit(3.5, false), db)

	_, out, err := svc.RunAudit(context.Background(), nil, RunAuditInput{
		RepoURL: "https://example.com/repo.git",
	})
	require.NoError(t, err)

	assert.Equal(t, 3.5, out.OverallScore)
	assert.False(t, out.Degraded)
	assert.NotEmpty(t, out.RunID)
	assert.Contains(t, out.Report, "Audit Report")

	require.Len(t, db.runs, 1)
	assert.Equal(t, out.RunID, db.runs[0].ID)
	assert.Equal(t, "https://example.com/repo.git", db.runs[0].RepoURL)
}

func TestRunAudit_NoInputs_Error(t *testing.T) {
	svc := NewService(stubAudit(3, false), &memStore{})

	_, _, err := svc.RunAudit(context.Background(), nil, RunAuditInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one of")
}

func TestRunAudit_AuditFault_Propagates(t *testing.T) {
	svc := NewService(func(_ context.Context, _, _ string) (*audit.Result, error) {
		return nil, errors.New("stage fault")
	}, &memStore{})

	_, _, err := svc.RunAudit(context.Background(), nil, RunAuditInput{DocPath: "report.md"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit failed")
}

func TestRunAudit_NilStore_SkipsPersistence(t *testing.T) {
	svc := NewService(stubAudit(2, true), nil)

	_, out, err := svc.RunAudit(context.Background(), nil, RunAuditInput{DocPath: "report.md"})
	require.NoError(t, err)
	assert.Empty(t, out.RunID)
	assert.True(t, out.Degraded)
}

func TestGetHistory_ListsRuns(t *testing.T) {
	db := &memStore{}
	for i := 0; i < 3; i++ {
		require.NoError(t, db.SaveRun(context.Background(), store.Run{
			ID:           fmt.Sprintf("run-%d", i),
			CreatedAt:    time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC),
			RepoURL:      "https://example.com/repo.git",
			OverallScore: float64(i),
		}))
	}

	svc := NewService(stubAudit(3, false), db)
	_, out, err := svc.GetHistory(context.Background(), nil, GetHistoryInput{Limit: 2})
	require.NoError(t, err)

	require.Len(t, out.Runs, 2)
	assert.Equal(t, "run-2", out.Runs[0].RunID, "newest first")
	assert.Equal(t, "2026-08-03 00:00:00", out.Runs[0].CreatedAt)
}

func TestGetHistory_NoStore_Error(t *testing.T) {
	svc := NewService(stubAudit(3, false), nil)

	_, _, err := svc.GetHistory(context.Background(), nil, GetHistoryInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no run store")
}
