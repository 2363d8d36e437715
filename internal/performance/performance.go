// Package performance provides the worker pool and batching helpers used by
// batch valuation.
package performance

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrPoolStopped is returned when submitting to a pool that is not running.
var ErrPoolStopped = errors.New("worker pool is not running")

// WorkerPool manages a pool of workers for concurrent task execution.
type WorkerPool struct {
	workers    int
	taskQueue  chan func()
	wg         sync.WaitGroup
	mu         sync.RWMutex
	running    bool
	tasksTotal atomic.Uint64
	tasksDone  atomic.Uint64
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If workers is 0, it defaults to runtime.NumCPU().
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*4),
	}
}

// Start starts the worker pool.
func (p *WorkerPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker is the main worker loop. It drains the queue until Stop closes it.
func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for task := range p.taskQueue {
		task()
		p.tasksDone.Add(1)
	}
}

// Submit queues a task, blocking while the queue is full. It returns
// ctx.Err() if the context ends first and ErrPoolStopped after Stop.
func (p *WorkerPool) Submit(ctx context.Context, task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
		p.tasksTotal.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops accepting tasks and waits for queued tasks to finish.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.taskQueue)
	p.mu.Unlock()

	p.wg.Wait()
}

// Stats returns pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	p.mu.RLock()
	running := p.running
	p.mu.RUnlock()

	return PoolStats{
		Workers:    p.workers,
		Running:    running,
		TasksTotal: p.tasksTotal.Load(),
		TasksDone:  p.tasksDone.Load(),
		QueueLen:   len(p.taskQueue),
	}
}

// PoolStats contains worker pool statistics.
type PoolStats struct {
	Workers    int
	Running    bool
	TasksTotal uint64
	TasksDone  uint64
	QueueLen   int
}

// BatchProcessor processes items in batches for improved efficiency.
type BatchProcessor[T any] struct {
	batchSize int
	processor func([]T) error
	items     []T
	mu        sync.Mutex
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor[T any](batchSize int, processor func([]T) error) *BatchProcessor[T] {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &BatchProcessor[T]{
		batchSize: batchSize,
		processor: processor,
		items:     make([]T, 0, batchSize),
	}
}

// Add adds an item to the batch. If the batch is full, it's processed.
func (b *BatchProcessor[T]) Add(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items = append(b.items, item)
	if len(b.items) >= b.batchSize {
		return b.flush()
	}
	return nil
}

// Flush processes any remaining items in the batch.
func (b *BatchProcessor[T]) Flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flush()
}

func (b *BatchProcessor[T]) flush() error {
	if len(b.items) == 0 {
		return nil
	}

	// The processor gets its own copy; items is reused for the next batch.
	batch := append([]T(nil), b.items...)
	b.items = b.items[:0]
	return b.processor(batch)
}
