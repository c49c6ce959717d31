package parproc

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrPoolClosed is returned when a job is submitted after Shutdown
	// or Abandon.
	ErrPoolClosed = errors.New("parproc: pool closed")

	// ErrNilFunc is returned when a submitted Job has a nil Fn.
	ErrNilFunc = errors.New("parproc: job func is nil")

	// ErrItemFailed marks an item that exhausted RetryPolicy.MaxAttempts.
	ErrItemFailed = errors.New("parproc: item failed")
)

// JobFunc is the function executed by a worker for a given job payload.
type JobFunc[T any] func(context.Context, T) error

// Job represents a single unit of work submitted to the pool.
//
// Payload is passed to Fn when executed. The same Job is resubmitted
// unchanged when Fn fails, so Fn must tolerate running more than once
// for the same payload.
type Job[T any] struct {
	Payload T
	Fn      JobFunc[T]
	Meta    *JobMeta
}

// JobMeta carries optional per-job settings.
//
// Ctx is handed to Fn on every attempt; a job whose Ctx is already
// canceled is rejected at Submit time. CleanupFunc, if set, runs once
// when the job reaches a terminal state (completed, failed or dropped).
type JobMeta struct {
	Ctx         context.Context
	CleanupFunc func()
}

// ItemError reports an item that the pool gave up on.
type ItemError struct {
	Item     string
	Attempts int
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %s failed after %d attempts: %v", e.Item, e.Attempts, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

func (e *ItemError) Is(target error) bool { return target == ErrItemFailed }

// task is the pool-private wrapper around a submitted Job. It travels
// through the ready queue and back on every requeue, so it is only ever
// touched by the single worker currently executing it.
type task[T any] struct {
	job       Job[T]
	attempts  int
	nextDelay func() time.Duration
}

func (t *task[T]) ctx() context.Context {
	if t.job.Meta != nil && t.job.Meta.Ctx != nil {
		return t.job.Meta.Ctx
	}
	return context.Background()
}

func (t *task[T]) cleanup() {
	if t.job.Meta != nil && t.job.Meta.CleanupFunc != nil {
		t.job.Meta.CleanupFunc()
	}
}

func (t *task[T]) name() string {
	return fmt.Sprint(t.job.Payload)
}
