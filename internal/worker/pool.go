// Package worker runs homogeneous tasks on a fixed set of goroutines fed by
// a bounded queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/logfields"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.RuntimeError("worker pool closed").Build()

// Task is one unit of work. worker identifies the goroutine running it, so
// per-worker state indexed by it is only ever touched by one goroutine.
type Task func(ctx context.Context, worker int) error

// Pool is a fixed number of workers pulling from a bounded queue. Submit
// blocks while the queue is full.
type Pool struct {
	tasks   chan Task
	workers int
	group   Group

	mu     sync.RWMutex
	closed bool

	completed atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64

	onError func(worker int, err error)
}

// Option configures a Pool.
type Option func(*Pool)

// WithErrorHandler is called, from the worker goroutine, for every task that
// returns an error or panics.
func WithErrorHandler(fn func(worker int, err error)) Option {
	return func(p *Pool) {
		p.onError = fn
	}
}

// NewPool creates a pool of workers goroutines with a queue holding up to
// queueSize pending tasks. Non-positive values fall back to 1.
func NewPool(workers, queueSize int, opts ...Option) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	p := &Pool{
		tasks:   make(chan Task, queueSize),
		workers: workers,
		onError: func(worker int, err error) {
			slog.Error("Task failed", logfields.Worker(worker), logfields.Error(err))
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int { return p.workers }

// Start launches the workers. Each runs until Close has been called and the
// queue is drained.
func (p *Pool) Start(ctx context.Context) {
	slog.Debug("Starting worker pool", "workers", p.workers, "queue", cap(p.tasks))
	for i := range p.workers {
		p.group.Go(func() { p.run(ctx, i) })
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	for task := range p.tasks {
		if err := p.exec(ctx, id, task); err != nil {
			p.failed.Add(1)
			p.onError(id, err)
			continue
		}
		p.completed.Add(1)
	}
	slog.Debug("Worker stopped", logfields.Worker(id))
}

func (p *Pool) exec(ctx context.Context, id int, task Task) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.panicked.Add(1)
			err = errors.RuntimeError("task panicked").
				WithContext("panic", fmt.Sprint(rec)).
				WithContext("worker", id).
				WithContext("stack", string(debug.Stack())).
				Build()
		}
	}()
	return task(ctx, id)
}

// Submit queues task, blocking while the queue is full. It fails with
// ErrClosed after Close, or with the context error if ctx ends first.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals that no more tasks will be submitted. Queued tasks still run.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.tasks)
	}
}

// Wait closes the pool and joins every worker, bounded by ctx.
func (p *Pool) Wait(ctx context.Context) error {
	p.Close()
	return p.group.StopAndWait(ctx)
}

// Completed returns the number of tasks that returned nil.
func (p *Pool) Completed() uint64 { return p.completed.Load() }

// Failed returns the number of tasks that returned an error or panicked.
func (p *Pool) Failed() uint64 { return p.failed.Load() }

// Panicked returns the number of tasks that panicked.
func (p *Pool) Panicked() uint64 { return p.panicked.Load() }
