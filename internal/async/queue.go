package async

import (
	"context"
	"errors"
)

var (
	ErrPoolClosed    = errors.New("worker pool is shut down")
	ErrPoolSaturated = errors.New("worker pool is saturated")
)

// Executor runs submitted tasks on background goroutines.
type Executor interface {
	// Submit schedules task or rejects it without blocking.
	Submit(task func()) error
	Shutdown(ctx context.Context)
}
