package download

import (
	"context"
	"fmt"

	"github.com/civica/civica/internal/task"
	"github.com/civica/civica/pkg/logger"
	"github.com/civica/civica/pkg/worker"
)

type (
	transport interface {
		Fetch(ctx context.Context, t *task.DownloadTask) Result
	}

	// Pool executes a filtered task list to completion with bounded
	// concurrency. Workers are independent; the only shared state is
	// the result channel, which acts as the single aggregation point
	// for terminal statuses.
	Pool struct {
		transport transport
		workers   int
	}
)

// NewPool builds a pool dispatching to the given transport across
// 'workers' concurrent workers.
func NewPool(transport transport, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	return &Pool{transport: transport, workers: workers}
}

// Execute dispatches every task and blocks until each has reached a
// terminal state. Per-task failures are captured in their Result and
// never abort the run, with one exception: a local I/O failure before
// any task has succeeded is systemic (unwritable output directory,
// full disk) and cancels the remaining dispatches rather than failing
// every task identically.
//
// Cancelling the provided context stops dispatch of new tasks
// promptly; tasks cancelled before dispatch are reported Failed with
// a cancellation cause.
func (p *Pool) Execute(ctx context.Context, tasks []*task.DownloadTask) []Result {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := worker.NewWorkerPool(p.workers)
	if err := pool.Start(runCtx); err != nil {
		// Only reachable through programmer error (started twice).
		panic(fmt.Sprintf("failed to start download worker pool: %s", err))
	}

	results := make(chan Result)
	collected := make([]Result, 0, len(tasks))
	aggregated := make(chan struct{})
	go func() {
		defer close(aggregated)
		successes := 0
		for result := range results {
			collected = append(collected, result)

			switch {
			case result.Status == task.Succeeded:
				successes++
			case result.Err != nil && result.Err.Kind == FailureLocal && successes == 0:
				log.Emit(logger.FATAL, "Local I/O failure before any successful transfer (%s) - aborting run\n", result.Err)
				cancel()
			}
		}
	}()

	log.Emit(logger.NEW, "Dispatching %d download tasks across %d workers\n", len(tasks), p.workers)
	for _, t := range tasks {
		t := t
		err := pool.Submit(runCtx, func(jobCtx context.Context) {
			t.Status = task.InProgress
			result := p.transport.Fetch(jobCtx, t)
			t.Status = result.Status
			t.Size = result.Bytes
			results <- result
		})

		if err != nil {
			t.Status = task.Failed
			results <- Result{
				Task:   t,
				Status: task.Failed,
				Err:    cancelledErr(fmt.Errorf("run stopped before dispatch: %w", err)),
			}
		}
	}

	pool.Close()
	close(results)
	<-aggregated

	return collected
}
