// Package worker runs queued tasks on a fixed number of goroutines.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/ourabridge/internal/adapters/mq/queue"
	"github.com/okian/ourabridge/pkg/logger"
)

// Default worker configuration constants.
const (
	defaultWorkerCount = 4
)

// InMemoryWorker executes in-process tasks taken from a queue.
type InMemoryWorker struct {
	queue queue.Queue
	name  string
	done  chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q queue.Queue, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:  q,
		name:   "worker",
		done:   make(chan struct{}),
		logger: logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)
	return w
}

// Run executes tasks until the queue is closed and drained. Tasks still
// receive ctx after it is cancelled so that every queued task reports back.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for task := range w.queue.Dequeue() {
		w.execute(ctx, task)
	}
}

func (w *InMemoryWorker) execute(ctx context.Context, task queue.Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "task panicked",
				logger.String("task", task.Name),
				logger.Any("panic", r),
			)
		}
	}()

	task.Run(ctx)

	w.logger.Debug(ctx, "task finished",
		logger.String("task", task.Name),
		logger.Duration("took", time.Since(start)),
	)
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
}

// NewPool creates a new worker pool. A count below one uses the default.
func NewPool(workerCount int, q queue.Queue, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{}, opts...)
		workerOpts = append(workerOpts, WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, workerOpts...)
	}

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Drain closes the queue and blocks until every queued task has run.
func (p *Pool) Drain() {
	_ = p.queue.Close()
	for _, w := range p.workers {
		<-w.done
	}
}

// RunAll runs tasks on at most concurrency workers and returns when all
// have finished. Each task is responsible for recording its own result.
func RunAll(ctx context.Context, concurrency int, tasks []queue.Task, opts ...Option) error {
	if len(tasks) == 0 {
		return nil
	}
	if concurrency > len(tasks) {
		concurrency = len(tasks)
	}

	q := queue.NewInMemoryQueue(queue.WithCapacity(len(tasks)))
	pool := NewPool(concurrency, q, opts...)

	// Enqueue before starting so a cancelled ctx cannot strand tasks.
	for _, t := range tasks {
		if err := q.Enqueue(context.Background(), t); err != nil {
			_ = q.Close()
			return fmt.Errorf("enqueue %s: %w", t.Name, err)
		}
	}
	pool.Start(ctx)
	pool.Drain()
	return nil
}
