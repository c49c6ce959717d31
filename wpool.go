package parproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Pool runs submitted jobs on a fixed number of workers.
//
// Jobs wait in an unbounded FIFO ready queue until a worker is free.
// A failed job is handed to the retry path, which puts the same job
// back at the end of the queue.
type Pool[T any] struct {
	opts  Options
	log   *zap.Logger
	retry RetryPolicy

	mu      sync.Mutex
	cond    *sync.Cond
	queue   *fifoQueue[*task[T]]
	closed  bool
	abandon bool

	wg       sync.WaitGroup
	stopOnce sync.Once
	done     chan struct{}

	stats         AtomicMetrics
	activeWorkers atomic.Int32

	sampleMu  sync.Mutex
	samples   []time.Duration
	failures  []*ItemError
	startedAt time.Time
}

// NewPool starts opts.Workers workers and returns the pool.
func NewPool[T any](opts Options) *Pool[T] {
	requested := opts.Workers
	opts.FillDefaults()

	p := &Pool[T]{
		opts:      opts,
		log:       opts.Logger,
		retry:     opts.Retry,
		queue:     newFifoQueue[*task[T]](initialFifoCapacity),
		done:      make(chan struct{}),
		startedAt: time.Now(),
	}
	p.cond = sync.NewCond(&p.mu)

	if requested < 1 {
		p.log.Info("Number of workers will be set to number of available CPUs",
			zap.Int("requested", requested),
			zap.Int("workers", opts.Workers),
		)
	}

	for i := 0; i < opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	return p
}

// Submit enqueues job and returns immediately.
func (p *Pool[T]) Submit(job Job[T]) error {
	if job.Fn == nil {
		return ErrNilFunc
	}
	if job.Meta != nil && job.Meta.Ctx != nil {
		if err := job.Meta.Ctx.Err(); err != nil {
			return fmt.Errorf("parproc: submit: %w", err)
		}
	}

	t := &task[T]{job: job, nextDelay: p.retry.delayFunc()}
	if err := p.push(t); err != nil {
		return err
	}
	p.stats.IncSubmitted()
	p.opts.Metrics.IncSubmitted()
	p.log.Debug("Job submitted", zap.String("job", t.name()))
	return nil
}

func (p *Pool[T]) push(t *task[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.queue.Push(t)
	p.cond.Signal()
	return nil
}

// next blocks until a task is ready or the pool is closed and drained.
func (p *Pool[T]) next() (*task[T], bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.queue.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.abandon {
		return nil, false
	}
	return p.queue.Pop()
}

func (p *Pool[T]) worker(id int) {
	defer p.wg.Done()
	if p.opts.PinWorkers {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		cpu, err := workerCPU(id)
		if err == nil {
			err = PinToCPU(cpu)
		}
		if err != nil {
			p.reportInternalError(fmt.Sprintf("pin worker %d", id), err)
		}
	}
	for {
		t, ok := p.next()
		if !ok {
			return
		}
		p.runTask(t)
	}
}

// Shutdown stops accepting new jobs and waits for the workers to finish
// what is already queued. It returns ctx.Err() if ctx ends first; the
// workers keep running in that case and a later Shutdown can wait again.
//
// A job that fails after Shutdown cannot be requeued: it is dropped,
// reported through OnInternalError, and never counted as completed or
// failed, so Outstanding stays above zero. Run shuts down only once
// nothing is outstanding.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()
		go func() {
			p.wg.Wait()
			close(p.done)
		}()
	})
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop is the blocking form of Shutdown.
func (p *Pool[T]) Stop() { _ = p.Shutdown(context.Background()) }

// Abandon closes the pool and discards every job that has not started.
// Jobs already running are left alone; call Shutdown to wait for them.
// It returns the number of discarded jobs.
func (p *Pool[T]) Abandon() int {
	p.mu.Lock()
	p.closed = true
	p.abandon = true
	dropped := p.queue.Drain()
	p.cond.Broadcast()
	p.mu.Unlock()

	for _, t := range dropped {
		t.cleanup()
	}
	if len(dropped) > 0 {
		p.log.Warn("abandoned queued jobs", zap.Int("count", len(dropped)))
	}
	return len(dropped)
}

func (p *Pool[T]) Workers() int         { return p.opts.Workers }
func (p *Pool[T]) ActiveWorkers() int32 { return p.activeWorkers.Load() }
func (p *Pool[T]) Submitted() uint64    { return p.stats.Submitted() }
func (p *Pool[T]) Completed() uint64    { return p.stats.Completed() }
func (p *Pool[T]) Failed() uint64       { return p.stats.Failed() }
func (p *Pool[T]) Attempts() uint64     { return p.stats.Attempts() }
func (p *Pool[T]) Requeued() uint64     { return p.stats.Requeued() }
func (p *Pool[T]) Outstanding() uint64  { return p.stats.Outstanding() }
func (p *Pool[T]) StartedAt() time.Time { return p.startedAt }

// QueueLength returns the number of jobs waiting for a worker.
func (p *Pool[T]) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// DurationSamples returns a copy of the recorded attempt durations.
func (p *Pool[T]) DurationSamples() []time.Duration {
	p.sampleMu.Lock()
	defer p.sampleMu.Unlock()
	out := make([]time.Duration, len(p.samples))
	copy(out, p.samples)
	return out
}

// Failures returns the jobs given up on under a bounded RetryPolicy.
func (p *Pool[T]) Failures() []*ItemError {
	p.sampleMu.Lock()
	defer p.sampleMu.Unlock()
	out := make([]*ItemError, len(p.failures))
	copy(out, p.failures)
	return out
}
