// Package mcptools exposes the auditor over the Model Context Protocol so
// that MCP clients can trigger audits and browse past runs.
package mcptools

import (
	"context"

	"github.com/dusk-indust/auditor/internal/store"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "0.1.0"

// NewServer creates an MCP server with the two auditor tools registered:
// run_audit and get_history.
func NewServer(run AuditFunc, db store.Store) *mcp.Server {
	svc := NewService(run, db)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "auditor",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_audit",
		Description: "Audit a repository and its accompanying report against the grading rubric. Returns the verdict and the rendered report.",
	}, svc.RunAudit)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_history",
		Description: "List past audit runs with their overall scores, most recent first.",
	}, svc.GetHistory)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
