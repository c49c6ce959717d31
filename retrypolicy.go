package parproc

import (
	"time"

	boff "github.com/Andrej220/go-utils/backoff"
)

// RetryPolicy describes how a failed job is resubmitted.
//
// The zero value retries forever with no delay: a failing job goes
// straight back to the end of the ready queue and competes with new
// work for a worker. A job that never succeeds therefore keeps a worker
// busy for the rest of the run.
type RetryPolicy struct {
	// MaxAttempts caps the number of executions per job.
	// Zero or negative means unbounded.
	MaxAttempts int

	// Initial is the first delay before a requeue. Zero disables delays.
	Initial time.Duration

	// Max caps the delay. Defaults to Initial when unset.
	Max time.Duration
}

// Unbounded reports whether jobs are retried without limit.
func (rp RetryPolicy) Unbounded() bool { return rp.MaxAttempts <= 0 }

// exhausted reports whether a job that has run attempts times must be
// given up on.
func (rp RetryPolicy) exhausted(attempts int) bool {
	return !rp.Unbounded() && attempts >= rp.MaxAttempts
}

// delayFunc returns the per-job delay generator, or nil when requeues
// are immediate.
func (rp RetryPolicy) delayFunc() func() time.Duration {
	if rp.Initial <= 0 {
		return nil
	}
	maxDelay := rp.Max
	if maxDelay < rp.Initial {
		maxDelay = rp.Initial
	}
	bo := boff.New(rp.Initial, maxDelay, time.Now().UnixNano())
	return bo.Next
}
