package worker

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/baharkarakas/tpay-mfs/internal/metrics"
)

var (
	ErrQueueFull = errors.New("worker queue full")
	ErrStopped   = errors.New("worker pool stopped")
)

type task func()

type Pool struct {
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	jobs    chan task
}

func NewPool(n, queue int) *Pool {
	if n <= 0 { n = 1 }
	if queue <= 0 { queue = 1024 }
	p := &Pool{jobs: make(chan task, queue)}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Dec()
				run(job)
			}
		}()
	}
	return p
}

func run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("worker job panic", "err", rec)
		}
	}()
	job()
}

// Submit queues f without blocking the caller.
func (p *Pool) Submit(f task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped { return ErrStopped }
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Inc()
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued jobs and waits for them.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
