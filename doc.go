// Package parproc runs a finite work list through a fixed pool of
// workers, retries items that fail and reports progress with an
// estimated time to completion.
//
// Overview
//
// A job is described by a Processor: WorkList produces the items once,
// Process handles one item. Run wires the pieces together:
//
//	sum, err := parproc.Run[string](ctx, parproc.ProcessorFuncs[string]{
//	    List: listKeys,
//	    Each: downloadKey,
//	}, parproc.Options{Workers: 8})
//
// Architecture overview
//
// The package is composed of four loosely coupled parts:
//
//   1. Worker pool (Pool)
//      A fixed number of workers take jobs from an unbounded FIFO ready
//      queue. Submit never blocks and never drops work.
//
//   2. Retry coordinator
//      A job whose func returns an error (or panics) is logged and put
//      back at the tail of the ready queue. RetryPolicy can cap the
//      attempts or delay requeues with exponential backoff; the zero
//      value retries forever without delay.
//
//   3. Progress monitor (Monitor)
//      Samples the pool's counters on a ticker and reports one Snapshot
//      per interval until nothing is outstanding:
//
//	2026-01-02T03:04:15Z Runtime: 00:00:10.000 --> Total: 10, Done: 4, 00:00:02.500 / item, Finished in: 00:00:15.000
//
//   4. Runner (Run)
//      Calls WorkList once, submits every item in order, monitors the
//      pool and shuts it down.
//
// Counters
//
// Submitted counts caller submissions only; requeues are counted in
// Requeued. Completed counts items whose func returned nil, so at the
// end of a successful run Completed equals Submitted no matter how many
// Attempts it took.
//
// Interruption
//
// When Run's context ends before the work is done, the pool stops
// accepting work, items still waiting in the queue are discarded and
// running items are awaited. Items never observe the cancellation
// themselves: they receive a context that carries the caller's values
// but not its deadline.
//
// Error handling
//
// The pool distinguishes between two classes of errors:
//
//   - Job errors: returned by job functions or produced by panic recovery
//   - Internal errors: unexpected failures inside the pool itself
//
// Both are logged and passed to the optional Options hooks. Neither
// stops a worker.
//
// CPU pinning
//
// On Linux, workers may optionally be pinned to specific CPUs.
// When enabled, workers are locked to OS threads and restricted
// to run on a single CPU core.
package parproc
