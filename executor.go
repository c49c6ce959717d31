package parproc

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// runTask executes one attempt of t and routes the outcome.
func (p *Pool[T]) runTask(t *task[T]) {
	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)

	t.attempts++
	start := time.Now()
	err := p.invoke(t)
	elapsed := time.Since(start)

	p.stats.ObserveAttempt(elapsed, err == nil)
	p.opts.Metrics.ObserveAttempt(elapsed, err == nil)
	p.recordSample(elapsed)

	if err == nil {
		t.cleanup()
		p.stats.IncCompleted()
		p.opts.Metrics.IncCompleted()
		return
	}
	p.retryTask(t, err)
}

// invoke calls the job func, converting a panic into an error so the
// worker survives and the job goes through the retry path.
func (p *Pool[T]) invoke(t *task[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parproc: job panicked: %v", r)
		}
	}()
	return t.job.Fn(t.ctx(), t.job.Payload)
}

// retryTask is the retry coordinator: it logs the failure and puts the
// same task back into the ready queue, or gives up when a bounded
// RetryPolicy is exhausted.
func (p *Pool[T]) retryTask(t *task[T], err error) {
	name := t.name()
	logger := p.log.With(zap.String("job", name), zap.Int("attempt", t.attempts))
	logger.Error("Worker error", zap.Error(err))
	p.reportJobError(name, t.attempts, err)

	if p.retry.exhausted(t.attempts) {
		ierr := &ItemError{Item: name, Attempts: t.attempts, Err: err}
		p.sampleMu.Lock()
		p.failures = append(p.failures, ierr)
		p.sampleMu.Unlock()

		logger.Warn("giving up on job", zap.Int("max_attempts", p.retry.MaxAttempts))
		if p.opts.OnJobError != nil {
			p.opts.OnJobError(ierr)
		}
		t.cleanup()
		p.stats.IncFailed()
		p.opts.Metrics.IncFailed()
		return
	}

	if t.nextDelay == nil {
		logger.Info("requeue worker for " + name)
		p.requeue(t)
		return
	}

	delay := t.nextDelay()
	logger.Info("requeue worker for "+name, zap.Duration("backoff", delay))
	time.AfterFunc(delay, func() { p.requeue(t) })
}

func (p *Pool[T]) requeue(t *task[T]) {
	if err := p.push(t); err != nil {
		p.reportInternalError("requeue "+t.name(), err)
		t.cleanup()
		return
	}
	p.stats.IncRequeued()
	p.opts.Metrics.IncRequeued()
}

func (p *Pool[T]) recordSample(d time.Duration) {
	p.sampleMu.Lock()
	if len(p.samples) < p.opts.MaxDurationSamples {
		p.samples = append(p.samples, d)
	}
	p.sampleMu.Unlock()
}
