// Package detective implements the evidence providers: independent analyses
// that inspect the audited repository and document, producing findings keyed
// by rubric criterion. Providers never fail on ordinary "not found"
// conditions; they return degraded findings instead so downstream stages only
// ever observe empty or degraded buckets, never missing ones.
package detective

import (
	"context"

	"github.com/dusk-indust/auditor/internal/state"
)

// Bucket keys used by the built-in detectives. They match the default
// rubric's criterion ids except for the repository census, which is a
// finding-class of its own.
const (
	BucketGitForensics     = "git_forensics"
	BucketStateManagement  = "state_management"
	BucketGraph            = "graph_orchestration"
	BucketToolSafety       = "tool_safety"
	BucketStructuredOutput = "structured_output"
	BucketDocTheory        = "doc_theory"
	BucketDocAccuracy      = "doc_accuracy"
	BucketDiagrams         = "diagram_clarity"
	BucketCensus           = "repo_census"
)

// CategoryToolSafety tags findings relevant to the security override.
const CategoryToolSafety = "tool-safety"

// Target locates the artifact under audit. Either field may be empty; a
// provider that cannot work without it reports a degraded finding.
type Target struct {
	RepoURL string
	DocPath string
}

// Provider is an evidence provider: a callable taking a locator and returning
// findings tagged with a criterion or finding-class id. Implementations must
// convert their own failures (network, parse, timeout) into degraded findings
// and reserve the error return for unrecoverable faults.
type Provider interface {
	Name() string
	Collect(ctx context.Context, target Target) (map[string][]state.Finding, error)
}

// missing builds the standard degraded finding for an absent input.
func missing(goal, location, rationale string) state.Finding {
	return state.Finding{
		ID:         state.NewFindingID(),
		Goal:       goal,
		Satisfied:  false,
		Location:   location,
		Rationale:  rationale,
		Confidence: 0.2,
	}
}
