package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dusk-indust/auditor/internal/state"
)

// StageFunc is a pure function over the portion of shared state a stage is
// allowed to read. It returns a partial update and never mutates its input
// snapshot. Errors mean an unrecoverable fault; ordinary "my dependency is
// unavailable" conditions must instead be reported as degraded findings or
// conservative opinions inside the returned delta.
type StageFunc func(ctx context.Context, snap state.Snapshot) (state.Delta, error)

// Stage is a named unit of work in the audit workflow.
type Stage struct {
	Name string
	Run  StageFunc
}

// Route identifies which path the engine takes after the evidence barrier.
type Route string

const (
	// RouteJudges is the normal path: fan out to the judge panel.
	RouteJudges Route = "judges"

	// RouteDegraded skips the judges and goes straight to synthesis when no
	// findings exist after the evidence fan-in.
	RouteDegraded Route = "degraded"
)

// Config wires an Engine with its fixed stage topology.
type Config struct {
	// Setup runs first and sequentially; it loads the rubric into the state.
	Setup Stage

	// Detectives run concurrently after setup and feed the first fan-in.
	Detectives []Stage

	// Judges run concurrently after the routing decision and feed the second
	// fan-in. The group is skipped entirely on the degraded route.
	Judges []Stage

	// Synthesis runs last and sequentially; it writes the verdict.
	Synthesis Stage

	// StageTimeout bounds each fan-out member's context. Zero means no
	// engine-imposed deadline; stages still own timeouts on their external
	// calls and must convert expiry into degraded output.
	StageTimeout time.Duration
}

// Engine executes the fixed audit workflow over a per-run State:
//
//	setup -> {detectives} -> barrier -> route -> {judges} -> barrier -> synthesis
//
// The workflow definition is immutable and safe to share across runs; the
// State is constructed fresh per invocation and owned by the engine until Run
// returns.
type Engine struct {
	cfg      Config
	progress *ProgressReporter
}

// New creates an Engine with the given stage topology.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		progress: NewProgressReporter(),
	}
}

// Progress returns a channel emitting stage progress events.
func (e *Engine) Progress() <-chan ProgressEvent {
	return e.progress.Subscribe()
}

// Close shuts down the progress reporter.
func (e *Engine) Close() {
	e.progress.Close()
}

// Run executes the workflow to completion. On success the returned state
// carries a non-nil Verdict. Any stage fault or merge failure aborts the run;
// no report must be rendered from a state returned alongside an error.
func (e *Engine) Run(ctx context.Context, st *state.State) (*state.State, error) {
	if err := e.runSequential(ctx, st, e.cfg.Setup); err != nil {
		return st, err
	}

	if err := e.runGroup(ctx, st, e.cfg.Detectives); err != nil {
		return st, err
	}

	// The routing predicate runs strictly after the evidence barrier, so it
	// sees the fully merged state and never races with in-flight writes.
	route := e.route(st.Snapshot())
	e.progress.Emit(ProgressEvent{Stage: "route", Status: ProgressComplete, Message: string(route)})

	if route == RouteJudges {
		if err := e.runGroup(ctx, st, e.cfg.Judges); err != nil {
			return st, err
		}
	}

	if err := e.runSequential(ctx, st, e.cfg.Synthesis); err != nil {
		return st, err
	}

	if st.Verdict == nil {
		return st, fmt.Errorf("engine: synthesis stage %q completed without writing a verdict", e.cfg.Synthesis.Name)
	}

	return st, nil
}

// route decides the path after the evidence fan-in.
func (e *Engine) route(snap state.Snapshot) Route {
	if snap.HasFindings() {
		return RouteJudges
	}
	return RouteDegraded
}

// runSequential executes a single stage against the current state and merges
// its delta immediately.
func (e *Engine) runSequential(ctx context.Context, st *state.State, stage Stage) error {
	e.progress.Emit(ProgressEvent{Stage: stage.Name, Status: ProgressWorking})

	delta, err := e.invoke(ctx, st.Snapshot(), stage)
	if err != nil {
		e.progress.Emit(ProgressEvent{Stage: stage.Name, Status: ProgressFailed, Message: err.Error()})
		return err
	}
	if err := st.Apply(delta); err != nil {
		e.progress.Emit(ProgressEvent{Stage: stage.Name, Status: ProgressFailed, Message: err.Error()})
		return fmt.Errorf("engine: stage %q: %w", stage.Name, err)
	}

	e.progress.Emit(ProgressEvent{Stage: stage.Name, Status: ProgressComplete})
	return nil
}

// runGroup fans out a stage group against one shared snapshot, waits at the
// barrier, and merges the deltas in completion order. Every concurrently
// written field uses an additive merge policy, so completion order never
// affects the merged result.
func (e *Engine) runGroup(ctx context.Context, st *state.State, group []Stage) error {
	if len(group) == 0 {
		return nil
	}

	deltas, err := fanOut(ctx, st.Snapshot(), group, e.cfg.StageTimeout, e.progress.Emit)
	if err != nil {
		return err
	}

	for _, d := range deltas {
		if err := st.Apply(d.delta); err != nil {
			return fmt.Errorf("engine: stage %q: %w", d.stage, err)
		}
	}
	return nil
}

// invoke runs one stage with the configured timeout applied.
func (e *Engine) invoke(ctx context.Context, snap state.Snapshot, stage Stage) (state.Delta, error) {
	if e.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.StageTimeout)
		defer cancel()
	}

	delta, err := stage.Run(ctx, snap)
	if err != nil {
		return state.Delta{}, fmt.Errorf("engine: stage %q: %w", stage.Name, err)
	}
	return delta, nil
}
