package worker

import (
	"context"

	"github.com/civica/civica/pkg/logger"
)

var workerLogger = logger.Get("Worker")

// Job is a single unit of work executed by a pool worker. The context
// provided is the pool's run context; jobs are expected to abandon
// their work promptly when it is cancelled.
type Job func(ctx context.Context)

// run is the main loop for a single pool worker. It drains the shared
// job queue until the queue is closed, or until the run context is
// cancelled - whichever comes first. Jobs already claimed when
// cancellation occurs are still executed (with the cancelled context)
// so they can record their own terminal state.
func run(ctx context.Context, label string, jobs <-chan Job) {
	workerLogger.Emit(logger.NEW, "Worker %s started\n", label)
	defer workerLogger.Emit(logger.STOP, "Worker %s stopped\n", label)

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}

			job(ctx)
		}
	}
}
