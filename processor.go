package parproc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/azargarov/parproc/internal/distribution"
)

// ErrWorkList wraps a failure to produce the work list. Nothing has been
// submitted when it is returned.
var ErrWorkList = errors.New("parproc: produce work list")

// durationBuckets is the bucket count of Summary.Durations.
const durationBuckets = 10

// Processor is a concrete processing job.
//
// WorkList is called exactly once per Run, before anything is submitted,
// and must return a finite list. Process handles one item; any error
// makes the item run again, so Process must tolerate repeated calls for
// the same item.
type Processor[E any] interface {
	WorkList(ctx context.Context) ([]E, error)
	Process(ctx context.Context, item E) error
}

// ProcessorFuncs adapts two functions to a Processor.
type ProcessorFuncs[E any] struct {
	List func(ctx context.Context) ([]E, error)
	Each func(ctx context.Context, item E) error
}

func (f ProcessorFuncs[E]) WorkList(ctx context.Context) ([]E, error) { return f.List(ctx) }

func (f ProcessorFuncs[E]) Process(ctx context.Context, item E) error { return f.Each(ctx, item) }

// Summary describes a finished run.
type Summary struct {
	// Final is the last progress snapshot taken.
	Final    Snapshot
	Workers  int
	Attempts uint64
	Requeued uint64

	// Failed lists items given up on under a bounded RetryPolicy.
	Failed []*ItemError

	// Durations is the distribution of attempt durations in seconds.
	// Nil when nothing ran.
	Durations *distribution.Bucketed
}

// Run processes every item of proc's work list on a pool configured by
// opts and blocks until all of them completed.
//
// Progress is reported on opts.Reporter every opts.ReportInterval. If
// ctx ends before the work is done, Run stops accepting work, discards
// items that have not started, waits for running ones (at most
// opts.ShutdownTimeout when set) and returns ErrMonitorInterrupted.
// Items never see ctx's cancellation: each attempt runs to completion.
//
// When opts.Logger is set, the contexts handed to proc carry it, so
// zlog.FromContext inside WorkList and Process logs through it.
func Run[E any](ctx context.Context, proc Processor[E], opts Options) (Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	} else {
		ctx = WithLogger(ctx, log)
	}
	start := time.Now()
	log.Info("Starting.")

	items, err := proc.WorkList(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrWorkList, err)
	}
	if len(items) == 0 {
		log.Info("Done.", zap.Int("items", 0))
		return Summary{Final: ComputeSnapshot(time.Now(), start, 0, 0)}, nil
	}

	pool := NewPool[E](opts)
	jobCtx := context.WithoutCancel(ctx)
	fn := func(c context.Context, item E) error { return proc.Process(c, item) }
	for _, item := range items {
		if err := pool.Submit(Job[E]{Payload: item, Fn: fn, Meta: &JobMeta{Ctx: jobCtx}}); err != nil {
			pool.Abandon()
			pool.Stop()
			return summarize(pool, Snapshot{}), fmt.Errorf("parproc: submit %v: %w", item, err)
		}
	}
	log.Info("Submitted work list", zap.Int("items", len(items)), zap.Int("workers", pool.Workers()))

	mon := NewMonitor(pool, start, pool.opts.ReportInterval, pool.opts.Reporter)
	last, err := mon.Watch(ctx)
	if err != nil {
		log.Error("Progress monitor interrupted; waiting for running items", zap.Error(err))
		pool.Abandon()
		if serr := shutdownWithin(pool, opts.ShutdownTimeout); serr != nil {
			log.Warn("Items still running after shutdown timeout", zap.Error(serr))
			err = multierr.Append(err, serr)
		}
		return summarize(pool, last), err
	}

	pool.Stop()
	sum := summarize(pool, last)
	log.Info("Done.",
		zap.Uint64("completed", sum.Final.Completed),
		zap.Uint64("attempts", sum.Attempts),
		zap.Uint64("requeued", sum.Requeued),
		zap.String("elapsed", FormatDuration(sum.Final.Elapsed)),
	)

	var failed error
	for _, f := range sum.Failed {
		failed = multierr.Append(failed, f)
	}
	return sum, failed
}

func shutdownWithin[T any](pool *Pool[T], timeout time.Duration) error {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Shutdown(ctx)
}

func summarize[T any](pool *Pool[T], last Snapshot) Summary {
	sum := Summary{
		Final:    last,
		Workers:  pool.Workers(),
		Attempts: pool.Attempts(),
		Requeued: pool.Requeued(),
		Failed:   pool.Failures(),
	}
	samples := pool.DurationSamples()
	if len(samples) == 0 {
		return sum
	}
	secs := make([]float64, len(samples))
	for i, d := range samples {
		secs[i] = d.Seconds()
	}
	if d, err := distribution.New(secs, durationBuckets); err == nil {
		sum.Durations = d
	}
	return sum
}
