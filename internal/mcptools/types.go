package mcptools

// --- MCP Tool Input Types ---
// These structs define the JSON schema for each MCP tool's input.
// The MCP Go SDK auto-generates JSON schemas from struct tags.

// RunAuditInput is the input for the run_audit MCP tool.
type RunAuditInput struct {
	RepoURL string `json:"repoUrl,omitempty" jsonschema:"URL of the git repository to audit"`
	DocPath string `json:"docPath,omitempty" jsonschema:"local path to the markdown report accompanying the repository"`
}

// RunAuditOutput is the result of the run_audit MCP tool.
type RunAuditOutput struct {
	RunID        string  `json:"runId"`
	OverallScore float64 `json:"overallScore"`
	Degraded     bool    `json:"degraded"`
	Report       string  `json:"report"`
}

// GetHistoryInput is the input for the get_history MCP tool.
type GetHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of past runs to return (default: 20)"`
}

// HistoryEntry summarizes one persisted audit run.
type HistoryEntry struct {
	RunID        string  `json:"runId"`
	CreatedAt    string  `json:"createdAt"`
	RepoURL      string  `json:"repoUrl"`
	OverallScore float64 `json:"overallScore"`
	Degraded     bool    `json:"degraded"`
}

// GetHistoryOutput is the result of the get_history MCP tool.
type GetHistoryOutput struct {
	Runs  []HistoryEntry `json:"runs"`
	Total int            `json:"total"`
}
