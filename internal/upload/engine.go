package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/sheetload/internal/async"
)

func (s *Service[T]) run(ctx context.Context, jc *JobContext[T], chunks [][]T, mode Mode, ex async.Executor, logger *slog.Logger) error {
	if mode == Parallel {
		return s.runParallel(ctx, jc, chunks, ex, logger)
	}
	for i, chunk := range chunks {
		n, err := s.handle(ctx, jc, chunk)
		s.settle(ctx, jc, i, chunk, n, err, logger)
	}
	return nil
}

func (s *Service[T]) runParallel(ctx context.Context, jc *JobContext[T], chunks [][]T, ex async.Executor, logger *slog.Logger) error {
	tasks := make([]func() (int, error), len(chunks))
	for i, chunk := range chunks {
		tasks[i] = func() (int, error) { return s.handle(ctx, jc, chunk) }
	}
	results, err := async.InvokeAll(ctx, ex, tasks)
	if err != nil {
		return fmt.Errorf("parallel execution: %w", err)
	}
	for i, r := range results {
		s.settle(ctx, jc, i, chunks[i], r.Value, r.Err, logger)
	}
	return nil
}

// handle calls the handler, turning a panic into an error.
func (s *Service[T]) handle(ctx context.Context, jc *JobContext[T], chunk []T) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return s.spec.Handle(ctx, chunk, jc)
}

// settle accounts for one finished chunk. A failed chunk counts zero
// successes and its rows are reported as failures, except those the handler
// already reported itself.
func (s *Service[T]) settle(ctx context.Context, jc *JobContext[T], idx int, chunk []T, n int, err error, logger *slog.Logger) {
	num := idx + 1
	if err != nil {
		logger.Error("upload.chunk.failed", "chunk", num, "rows", len(chunk), "error", err)
		jc.addUnreported(chunk, fmt.Sprintf("chunk %d failed: %v", num, err))
		n = 0
	}
	n = max(0, min(n, len(chunk)))
	if err == nil {
		logger.Debug("upload.chunk.ok", "chunk", num, "rows", len(chunk), "success", n)
	}
	s.tracker.add(ctx, &jc.progress, len(chunk), n)
}
