// Package audit wires the workflow engine with the built-in detectives, a
// judge panel, and the synthesis policy from a rubric, exposing the single
// run-invocation boundary used by the CLI, the HTTP server, and the MCP
// server.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/auditor/internal/detective"
	"github.com/dusk-indust/auditor/internal/engine"
	"github.com/dusk-indust/auditor/internal/judge"
	"github.com/dusk-indust/auditor/internal/justice"
	"github.com/dusk-indust/auditor/internal/report"
	"github.com/dusk-indust/auditor/internal/rubric"
	"github.com/dusk-indust/auditor/internal/state"
)

// Options configures one audit run. Both locators are optional; with neither
// present the run completes on the degraded path.
type Options struct {
	RepoURL string
	DocPath string

	// Rubric is the criterion set and synthesis policy. Required.
	Rubric *rubric.Rubric

	// Judges is the opinion panel. Required (use judge.PlaceholderPanel when
	// no backend is configured).
	Judges []judge.Judge

	// Detectives overrides the built-in evidence providers; nil selects the
	// standard three (repo, document, diagrams).
	Detectives []detective.Provider

	// StageTimeout bounds each fan-out member. Zero disables the bound.
	StageTimeout time.Duration

	// Progress, when non-nil, receives engine progress events.
	Progress func(engine.ProgressEvent)
}

// Result is the outcome of a completed (possibly degraded) run.
type Result struct {
	State   *state.State
	Verdict *state.Verdict
	Report  string
}

// Run executes one audit to completion. An error means an unrecoverable
// engine fault, never ordinary missing input; callers must not render or
// persist anything from a failed run.
func (o Options) Run(ctx context.Context) (*Result, error) {
	if o.Rubric == nil {
		return nil, fmt.Errorf("audit: rubric is required")
	}
	if len(o.Judges) == 0 {
		return nil, fmt.Errorf("audit: judge panel is required")
	}

	detectives := o.Detectives
	if detectives == nil {
		git := detective.NewGitClient()
		detectives = []detective.Provider{
			detective.NewRepoInvestigator(git),
			detective.NewDocAnalyst(git),
			detective.NewVisionInspector(),
		}
	}

	eng := engine.New(engine.Config{
		Setup:        setupStage(o.Rubric),
		Detectives:   detectiveStages(detectives, detective.Target{RepoURL: o.RepoURL, DocPath: o.DocPath}),
		Judges:       judgeStages(o.Judges),
		Synthesis:    synthesisStage(o.Rubric),
		StageTimeout: o.StageTimeout,
	})
	var drained chan struct{}
	if o.Progress != nil {
		drained = make(chan struct{})
		go func() {
			defer close(drained)
			for ev := range eng.Progress() {
				o.Progress(ev)
			}
		}()
	}

	final, err := eng.Run(ctx, state.New())

	// Close the reporter and wait for the drain goroutine so no Progress
	// callback fires after Run returns.
	eng.Close()
	if drained != nil {
		<-drained
	}

	if err != nil {
		return nil, err
	}

	return &Result{
		State:   final,
		Verdict: final.Verdict,
		Report:  report.Render(final.Verdict, report.Meta{RepoURL: o.RepoURL, DocPath: o.DocPath}),
	}, nil
}

// setupStage loads the rubric items into the state (replace-once).
func setupStage(r *rubric.Rubric) engine.Stage {
	return engine.Stage{
		Name: "setup",
		Run: func(_ context.Context, _ state.Snapshot) (state.Delta, error) {
			return state.Delta{Rubric: r.Items}, nil
		},
	}
}

// detectiveStages adapts evidence providers into engine stages.
func detectiveStages(providers []detective.Provider, target detective.Target) []engine.Stage {
	stages := make([]engine.Stage, 0, len(providers))
	for _, p := range providers {
		stages = append(stages, engine.Stage{
			Name: p.Name(),
			Run: func(ctx context.Context, _ state.Snapshot) (state.Delta, error) {
				findings, err := p.Collect(ctx, target)
				if err != nil {
					return state.Delta{}, err
				}
				return state.Delta{Findings: findings}, nil
			},
		})
	}
	return stages
}

// judgeStages adapts the opinion panel into engine stages. Each judge reads
// the rubric and findings from its snapshot, so every member of the fan-out
// sees the identical fully-merged evidence.
func judgeStages(judges []judge.Judge) []engine.Stage {
	stages := make([]engine.Stage, 0, len(judges))
	for _, j := range judges {
		stages = append(stages, engine.Stage{
			Name: "judge-" + string(j.Role()),
			Run: func(ctx context.Context, snap state.Snapshot) (state.Delta, error) {
				opinions, err := j.Review(ctx, snap.Rubric, snap.Findings)
				if err != nil {
					return state.Delta{}, err
				}
				return state.Delta{Opinions: opinions}, nil
			},
		})
	}
	return stages
}

// synthesisStage builds the deterministic verdict from the merged state.
func synthesisStage(r *rubric.Rubric) engine.Stage {
	syn := justice.New(justice.Config{
		Priority:          r.Priority(),
		DissentThreshold:  r.Synthesis.DissentThreshold,
		SecuritySensitive: r.Synthesis.SecuritySensitive,
		SecurityCap:       r.Synthesis.SecurityCap,
		Remediation:       r.Synthesis.Remediation,
		Unsafe:            justice.UnsafeMarkers(r.Synthesis.UnsafeCategories, r.Synthesis.UnsafeMarkers),
	})

	return engine.Stage{
		Name: "synthesis",
		Run: func(_ context.Context, snap state.Snapshot) (state.Delta, error) {
			verdict, err := syn.Synthesize(snap)
			if err != nil {
				return state.Delta{}, err
			}
			return state.Delta{Verdict: verdict}, nil
		},
	}
}
