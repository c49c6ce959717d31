package parproc

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultReportInterval is how often the monitor samples progress.
	DefaultReportInterval = 10 * time.Second

	// DefaultMaxDurationSamples bounds the per-attempt durations kept
	// for the run summary.
	DefaultMaxDurationSamples = 10000
)

// Options configure a Pool and a Run.
//
// All zero values are replaced with defaults in FillDefaults.
type Options struct {
	// Workers is the number of concurrent workers. Values below 1 mean
	// one worker per available CPU.
	Workers int

	// PinWorkers locks each worker to an OS thread pinned to one CPU.
	// Only effective on Linux.
	PinWorkers bool

	// ReportInterval is the progress sampling period.
	ReportInterval time.Duration

	// ShutdownTimeout bounds how long an interrupted run waits for
	// in-flight jobs. Zero waits for as long as they take.
	ShutdownTimeout time.Duration

	Retry RetryPolicy

	// Logger receives pool, retry and progress logs. Nil discards them.
	Logger *zap.Logger

	// Metrics is notified of every counter update in addition to the
	// pool's own counters.
	Metrics MetricsPolicy

	// Reporter receives progress snapshots. Defaults to a LogReporter
	// on Logger.
	Reporter Reporter

	// OnJobError is called for every failed attempt and for every job
	// given up on.
	OnJobError func(error)

	// OnInternalError is called for failures inside the pool itself,
	// such as a rejected requeue or a failed CPU pin.
	OnInternalError func(error)

	MaxDurationSamples int
}

// FillDefaults replaces zero values with defaults.
func (o *Options) FillDefaults() {
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	if o.ReportInterval <= 0 {
		o.ReportInterval = DefaultReportInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Reporter == nil {
		o.Reporter = NewLogReporter(o.Logger)
	}
	if o.MaxDurationSamples <= 0 {
		o.MaxDurationSamples = DefaultMaxDurationSamples
	}
}
