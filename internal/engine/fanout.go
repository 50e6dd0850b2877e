package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/auditor/internal/state"
)

// stageDelta pairs a merged-pending delta with the stage that produced it.
type stageDelta struct {
	stage string
	delta state.Delta
}

// fanOut runs every stage in the group concurrently against the same
// read-only snapshot and collects their deltas in completion order. The
// barrier waits for every member to resolve; a stage that cannot do its job
// is expected to resolve with a degraded delta rather than an error, so a
// returned error always means an unrecoverable fault. The first fault cancels
// the derived context, abandoning remaining in-flight stages promptly.
func fanOut(
	ctx context.Context,
	snap state.Snapshot,
	group []Stage,
	timeout time.Duration,
	emit func(ProgressEvent),
) ([]stageDelta, error) {
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan stageDelta, len(group))

	for _, stage := range group {
		emit(ProgressEvent{Stage: stage.Name, Status: ProgressPending})

		g.Go(func() error {
			emit(ProgressEvent{Stage: stage.Name, Status: ProgressWorking})

			sctx := gctx
			if timeout > 0 {
				var cancel context.CancelFunc
				sctx, cancel = context.WithTimeout(gctx, timeout)
				defer cancel()
			}

			delta, err := stage.Run(sctx, snap)
			if err != nil {
				emit(ProgressEvent{Stage: stage.Name, Status: ProgressFailed, Message: err.Error()})
				return &StageError{Stage: stage.Name, Err: err}
			}

			done <- stageDelta{stage: stage.Name, delta: delta}
			emit(ProgressEvent{Stage: stage.Name, Status: ProgressComplete})
			return nil
		})
	}

	err := g.Wait()
	close(done)

	deltas := make([]stageDelta, 0, len(group))
	for d := range done {
		deltas = append(deltas, d)
	}
	if err != nil {
		return nil, err
	}
	return deltas, nil
}
