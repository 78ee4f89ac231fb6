package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// WorkerPool executes submitted jobs across a fixed number of
// concurrent workers. Jobs are drained from a shared, unbuffered
// queue, so submission order is preserved and a submit only completes
// once a worker has claimed the job.
type WorkerPool struct {
	size    int
	jobs    chan Job
	wg      sync.WaitGroup
	started bool
}

// NewWorkerPool creates a pool that will run at most 'size'
// jobs concurrently once started.
func NewWorkerPool(size int) *WorkerPool {
	return &WorkerPool{size: size, jobs: make(chan Job)}
}

// Start spawns the pool's workers. Each worker drains the shared job
// queue until Close is called, or until the provided context is
// cancelled.
//
// Start does NOT block; use Close to wait for the workers to finish.
func (pool *WorkerPool) Start(ctx context.Context) error {
	if pool.started {
		return errors.New("cannot start an already started worker pool")
	}
	if pool.size <= 0 {
		return fmt.Errorf("cannot start worker pool with %d workers", pool.size)
	}

	pool.started = true
	for i := 0; i < pool.size; i++ {
		label := fmt.Sprintf("pool-worker-%d", i)
		pool.wg.Add(1)
		go func(label string) {
			defer pool.wg.Done()
			run(ctx, label, pool.jobs)
		}(label)
	}

	return nil
}

// Submit hands a job to the pool, blocking until a worker claims it.
// Returns the context's error if the context is cancelled before any
// worker becomes available - in that case the job was never dispatched.
func (pool *WorkerPool) Submit(ctx context.Context, job Job) error {
	if !pool.started {
		return errors.New("cannot submit job to a worker pool that is not started")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case pool.jobs <- job:
		return nil
	}
}

// Close signals that no further jobs will be submitted and blocks
// until every worker has exited. The pool cannot be restarted.
func (pool *WorkerPool) Close() {
	if !pool.started {
		return
	}

	close(pool.jobs)
	pool.wg.Wait()
}
