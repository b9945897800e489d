package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/sheetload/constants"
)

// Pool is a bounded worker pool. Tasks start a new worker while fewer than the
// core count are alive, otherwise they wait in the queue. When the queue is
// full an extra worker is started up to the max count; extra workers exit
// after sitting idle for the keep-alive period. Anything beyond that is
// rejected with ErrPoolSaturated.
type Pool struct {
	logger    *slog.Logger
	core      int
	max       int
	queueSize int
	keepAlive time.Duration

	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	workers int
	closed  bool
}

type Option func(*Pool)

func WithCoreWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.core = n
		}
	}
}

func WithMaxWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.max = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

func WithKeepAlive(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.keepAlive = d
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:    logger,
		core:      constants.DefaultPoolCoreWorkers,
		max:       constants.DefaultPoolMaxWorkers,
		queueSize: constants.DefaultPoolQueueSize,
		keepAlive: constants.DefaultPoolKeepAlive,
	}
	for _, o := range opts {
		o(p)
	}
	if p.max < p.core {
		p.max = p.core
	}
	p.tasks = make(chan func(), p.queueSize)
	return p
}

func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}

	if p.workers < p.core {
		p.spawn(task, true)
		return nil
	}

	select {
	case p.tasks <- task:
		return nil
	default:
	}

	if p.workers < p.max {
		p.spawn(task, false)
		return nil
	}

	p.logger.Warn("worker pool saturated", "workers", p.workers, "queue", len(p.tasks))
	return ErrPoolSaturated
}

// Workers reports the number of live workers.
func (p *Pool) Workers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers
}

// spawn must be called with p.mu held.
func (p *Pool) spawn(first func(), core bool) {
	p.workers++
	p.wg.Add(1)
	go p.worker(first, core)
}

func (p *Pool) worker(first func(), core bool) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		p.workers--
		p.mu.Unlock()
	}()

	p.run(first)

	if core {
		for task := range p.tasks {
			p.run(task)
		}
		return
	}

	idle := time.NewTimer(p.keepAlive)
	defer idle.Stop()
	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(task)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.keepAlive)
		case <-idle.C:
			p.logger.Debug("idle worker stopped")
			return
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "panic", r)
		}
	}()
	task()
}

// Shutdown stops accepting tasks and waits for queued ones to drain, or for
// ctx to end.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
	case <-done:
		p.logger.Info("pool drained, shutdown complete")
	}
}
