package parproc

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/cpu"
)

// cachePad is used to prevent false sharing between hot fields.
type cachePad = cpu.CacheLinePad

// MetricsPolicy defines hooks used by the worker pool to report
// submission, retry and completion activity.
//
// Implementations must be safe for concurrent use.
// All methods are expected to be lightweight and non-blocking.
type MetricsPolicy interface {
	// IncSubmitted is called once per caller submission.
	// Requeues do not count.
	IncSubmitted()

	// IncRequeued is called each time a failed job re-enters the queue.
	IncRequeued()

	// IncCompleted is called when a job returns without error.
	IncCompleted()

	// IncFailed is called when a job exhausts its retry policy.
	IncFailed()

	// ObserveAttempt is called after every execution attempt.
	ObserveAttempt(d time.Duration, ok bool)
}

// AtomicMetrics is a lock-free metrics implementation backed by atomics.
// The pool keeps one internally as the source of truth for its counters.
//
// Writes are optimized for hot paths.
// Reads are intended for cold-path observation.
type AtomicMetrics struct {
	submitted atomic.Uint64
	_         cachePad

	completed atomic.Uint64
	_         cachePad

	attempts atomic.Uint64
	requeued atomic.Uint64
	failed   atomic.Uint64
}

func (m *AtomicMetrics) IncSubmitted() { m.submitted.Add(1) }
func (m *AtomicMetrics) IncRequeued()  { m.requeued.Add(1) }
func (m *AtomicMetrics) IncCompleted() { m.completed.Add(1) }
func (m *AtomicMetrics) IncFailed()    { m.failed.Add(1) }

func (m *AtomicMetrics) ObserveAttempt(_ time.Duration, _ bool) {
	m.attempts.Add(1)
}

// Submitted returns the number of caller submissions.
func (m *AtomicMetrics) Submitted() uint64 { return m.submitted.Load() }

// Completed returns the number of jobs that finished without error.
func (m *AtomicMetrics) Completed() uint64 { return m.completed.Load() }

// Attempts returns the number of executions, retries included.
func (m *AtomicMetrics) Attempts() uint64 { return m.attempts.Load() }

// Requeued returns the number of resubmissions after a failure.
func (m *AtomicMetrics) Requeued() uint64 { return m.requeued.Load() }

// Failed returns the number of jobs given up on.
func (m *AtomicMetrics) Failed() uint64 { return m.failed.Load() }

// Outstanding returns submitted jobs that have neither completed nor
// failed. Counters are read one at a time, so the value is an
// eventually-consistent snapshot.
func (m *AtomicMetrics) Outstanding() uint64 {
	done := m.completed.Load() + m.failed.Load()
	sub := m.submitted.Load()
	if done >= sub {
		return 0
	}
	return sub - done
}

//------------- NoopMetrics ----------------------------------

// NoopMetrics is a MetricsPolicy implementation that discards
// all metric updates.
type NoopMetrics struct{}

func (NoopMetrics) IncSubmitted()                         {}
func (NoopMetrics) IncRequeued()                          {}
func (NoopMetrics) IncCompleted()                         {}
func (NoopMetrics) IncFailed()                            {}
func (NoopMetrics) ObserveAttempt(_ time.Duration, _ bool) {}
