package xlearn

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// pool.go implements the fixed-size worker pool that parallelises a
// gradient pass and metric accumulation across NThread goroutines (spec
// §5, §9 design note). Tasks are unsynchronised writes into shared model
// buffers — true Hogwild, no locks, no atomics — grounded on the
// semaphore-channel fan-out janpfeifer-hiveGo's trainer uses to rescore
// matches concurrently, plus golang.org/x/sync/errgroup for first-error
// capture from the per-chunk callbacks passed to Run.

// Pool runs a fixed number of rows of work split across n workers, each
// given a contiguous slice of [0, total) to own exclusively — this is
// what keeps Hogwild races confined to the shared model weights rather
// than to the row-partition bookkeeping itself.
type Pool struct {
	n int
}

// NewPool returns a Pool with n workers. n<=1 runs everything on the
// calling goroutine.
func NewPool(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{n: n}
}

// Run splits [0, total) into p.n contiguous chunks and calls fn(start,
// end) for each concurrently, blocking until every chunk completes (the
// sync(n) barrier of spec §5/§9). The first error returned by any fn
// call is returned once all chunks have finished.
func (p *Pool) Run(total int, fn func(start, end int) error) error {
	if p.n <= 1 || total <= 1 {
		return fn(0, total)
	}

	chunk := (total + p.n - 1) / p.n
	var g errgroup.Group
	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}
		start, end := start, end
		g.Go(func() error { return fn(start, end) })
	}
	return g.Wait()
}

// Enqueue/Sync offers the callback-task shape some callers prefer over
// Run's range-partition shape (spec §9 "enqueue/sync(n) completion
// barrier"). It is otherwise equivalent: tasks run across the n workers
// started by NewTaskQueue and Sync blocks until all previously enqueued tasks have completed.
type TaskQueue struct {
	tasks chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

// NewTaskQueue starts n worker goroutines draining a shared task
// channel.
func NewTaskQueue(n int) *TaskQueue {
	if n < 1 {
		n = 1
	}
	q := &TaskQueue{tasks: make(chan func(), n*4)}
	for i := 0; i < n; i++ {
		go q.worker()
	}
	return q
}

func (q *TaskQueue) worker() {
	for task := range q.tasks {
		task()
		q.wg.Done()
	}
}

// Enqueue schedules task to run on the pool.
func (q *TaskQueue) Enqueue(task func()) {
	q.wg.Add(1)
	q.tasks <- task
}

// Sync blocks until every task enqueued so far has completed.
func (q *TaskQueue) Sync() {
	q.wg.Wait()
}

// Close stops the worker goroutines. Sync must be called first if any
// tasks are still outstanding.
func (q *TaskQueue) Close() {
	q.once.Do(func() { close(q.tasks) })
}
