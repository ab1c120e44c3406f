package starlark

import (
	"sync"

	"go.starlark.net/starlark"
)

// Pool defaults.
const (
	DefaultPoolSize = 10
	// DefaultMaxSteps bounds the work of a single expression evaluation.
	DefaultMaxSteps = 100_000
)

// ThreadPool keeps idle Starlark threads so row evaluation does not
// allocate a thread per row. Safe for concurrent use.
type ThreadPool struct {
	mu       sync.Mutex
	threads  []*starlark.Thread
	maxSize  int
	maxSteps uint64
}

// NewThreadPool creates a pool holding at most maxSize idle threads, each
// allowed maxSteps execution steps per Get. Zero selects the defaults.
func NewThreadPool(maxSize int, maxSteps uint64) *ThreadPool {
	if maxSize <= 0 {
		maxSize = DefaultPoolSize
	}
	if maxSteps == 0 {
		maxSteps = DefaultMaxSteps
	}
	return &ThreadPool{
		threads:  make([]*starlark.Thread, 0, maxSize),
		maxSize:  maxSize,
		maxSteps: maxSteps,
	}
}

// Get retrieves a thread from the pool or creates a new one.
// The thread name is used for error reporting. Each Get grants the thread a
// fresh budget of execution steps.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	var thread *starlark.Thread
	if n := len(p.threads); n > 0 {
		thread = p.threads[n-1]
		p.threads = p.threads[:n-1]
	}
	p.mu.Unlock()

	if thread == nil {
		thread = &starlark.Thread{
			Print: func(_ *starlark.Thread, _ string) {},
		}
	}
	thread.Name = name
	thread.SetMaxExecutionSteps(thread.ExecutionSteps() + p.maxSteps)
	return thread
}

// Put returns a thread to the pool for reuse.
// If the pool is full, the thread is discarded. A thread whose evaluation
// failed must not be returned, since it may have been cancelled.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		thread.Name = ""
		p.threads = append(p.threads, thread)
	}
}

// Size returns the current number of threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
