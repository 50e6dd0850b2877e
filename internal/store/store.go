// Package store persists completed audit runs for later inspection. Fatal
// runs are never persisted; only runs that produced a verdict reach the
// store.
package store

import (
	"context"
	"time"

	"github.com/dusk-indust/auditor/internal/state"
)

// Run is one persisted audit run.
type Run struct {
	ID           string
	CreatedAt    time.Time
	RepoURL      string
	DocPath      string
	OverallScore float64
	Degraded     bool
	Report       string
	Verdict      *state.Verdict
}

// Store is the persistence interface for audit runs.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
