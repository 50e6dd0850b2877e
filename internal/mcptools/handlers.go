package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/dusk-indust/auditor/internal/audit"
	"github.com/dusk-indust/auditor/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/oklog/ulid/v2"
)

const defaultHistoryLimit = 20

// AuditFunc runs one audit end to end and returns its result.
type AuditFunc func(ctx context.Context, repoURL, docPath string) (*audit.Result, error)

// Service handles MCP tool calls for the auditor server mode. It wraps the
// audit entry point and the run store.
type Service struct {
	run AuditFunc
	db  store.Store
}

// NewService creates a Service with the given audit function and store. The
// store may be nil, in which case runs are not persisted and get_history
// returns an error.
func NewService(run AuditFunc, db store.Store) *Service {
	return &Service{run: run, db: db}
}

// RunAudit executes a full audit against a repository and document.
func (s *Service) RunAudit(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunAuditInput,
) (*mcp.CallToolResult, RunAuditOutput, error) {
	repoURL := strings.TrimSpace(input.RepoURL)
	docPath := strings.TrimSpace(input.DocPath)
	if repoURL == "" && docPath == "" {
		return nil, RunAuditOutput{}, fmt.Errorf("at least one of repoUrl and docPath is required")
	}

	result, err := s.run(ctx, repoURL, docPath)
	if err != nil {
		return nil, RunAuditOutput{}, fmt.Errorf("audit failed: %w", err)
	}

	out := RunAuditOutput{
		OverallScore: result.Verdict.OverallScore,
		Degraded:     result.Verdict.Degraded,
		Report:       result.Report,
	}

	if s.db != nil {
		run := store.Run{
			ID:           ulid.Make().String(),
			RepoURL:      repoURL,
			DocPath:      docPath,
			OverallScore: result.Verdict.OverallScore,
			Degraded:     result.Verdict.Degraded,
			Report:       result.Report,
			Verdict:      result.Verdict,
		}
		if err := s.db.SaveRun(ctx, run); err != nil {
			return nil, RunAuditOutput{}, fmt.Errorf("audit completed but saving failed: %w", err)
		}
		out.RunID = run.ID
	}

	return nil, out, nil
}

// GetHistory lists past audit runs, most recent first.
func (s *Service) GetHistory(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetHistoryInput,
) (*mcp.CallToolResult, GetHistoryOutput, error) {
	if s.db == nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("no run store configured")
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	runs, err := s.db.ListRuns(ctx, limit)
	if err != nil {
		return nil, GetHistoryOutput{}, fmt.Errorf("listing runs: %w", err)
	}

	out := GetHistoryOutput{Runs: make([]HistoryEntry, 0, len(runs)), Total: len(runs)}
	for _, r := range runs {
		out.Runs = append(out.Runs, HistoryEntry{
			RunID:        r.ID,
			CreatedAt:    r.CreatedAt.Format("2006-01-02 15:04:05"),
			RepoURL:      r.RepoURL,
			OverallScore: r.OverallScore,
			Degraded:     r.Degraded,
		})
	}
	return nil, out, nil
}
