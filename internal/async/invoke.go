package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var ErrTaskPanic = errors.New("task panicked")

// Result is the outcome of one task passed to InvokeAll.
type Result[R any] struct {
	Value R
	Err   error
}

// InvokeAll submits every task to ex and blocks until all submitted tasks are
// done. Results are returned in submission order; a panicking task yields an
// ErrTaskPanic result. If a submission is rejected, or ctx ends before all
// tasks are submitted, InvokeAll still waits for the tasks already submitted
// and then returns the error.
//
// While waiting, the caller runs any submitted task no worker has picked up
// yet, so InvokeAll cannot deadlock when it is itself called from a worker of
// ex.
func InvokeAll[R any](ctx context.Context, ex Executor, tasks []func() (R, error)) ([]Result[R], error) {
	results := make([]Result[R], len(tasks))
	claimed := make([]atomic.Bool, len(tasks))
	var wg sync.WaitGroup

	runner := func(i int) func() {
		return func() {
			if !claimed[i].CompareAndSwap(false, true) {
				return
			}
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result[R]{Err: fmt.Errorf("%w: %v", ErrTaskPanic, r)}
				}
			}()
			v, err := tasks[i]()
			results[i] = Result[R]{Value: v, Err: err}
		}
	}

	// help runs the first n tasks that are still unclaimed, then waits.
	help := func(n int) {
		for i := 0; i < n; i++ {
			runner(i)()
		}
		wg.Wait()
	}

	for i := range tasks {
		if err := ctx.Err(); err != nil {
			help(i)
			return nil, err
		}
		wg.Add(1)
		if err := ex.Submit(runner(i)); err != nil {
			claimed[i].Store(true)
			wg.Done()
			help(i)
			return nil, fmt.Errorf("submit task %d: %w", i, err)
		}
	}

	help(len(tasks))
	return results, nil
}
