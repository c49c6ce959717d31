package parproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrMonitorInterrupted is returned when the progress loop is stopped
// before every item finished.
var ErrMonitorInterrupted = errors.New("parproc: progress monitor interrupted")

// Reporter receives progress snapshots.
type Reporter interface {
	Report(Snapshot)
}

// Counters is the read-only view of a pool the monitor samples.
type Counters interface {
	Submitted() uint64
	Completed() uint64
	Outstanding() uint64
}

// Monitor periodically samples a pool's counters and reports progress
// until no work is outstanding.
type Monitor struct {
	src      Counters
	start    time.Time
	interval time.Duration
	reporter Reporter
	now      func() time.Time
}

// NewMonitor returns a monitor measuring elapsed time from start.
func NewMonitor(src Counters, start time.Time, interval time.Duration, r Reporter) *Monitor {
	if interval <= 0 {
		interval = DefaultReportInterval
	}
	if r == nil {
		r = NewLogReporter(nil)
	}
	return &Monitor{
		src:      src,
		start:    start,
		interval: interval,
		reporter: r,
		now:      time.Now,
	}
}

// Sample computes a snapshot from the current counters.
func (m *Monitor) Sample() Snapshot {
	// completed first: submitted only grows, so the pair never shows
	// more completed than submitted
	completed := m.src.Completed()
	submitted := m.src.Submitted()
	return ComputeSnapshot(m.now(), m.start, submitted, completed)
}

// Watch reports once, then once per interval until nothing is
// outstanding. It returns the last snapshot. If ctx ends first it
// returns ErrMonitorInterrupted wrapping ctx.Err().
func (m *Monitor) Watch(ctx context.Context) (Snapshot, error) {
	s, done := m.sampleAndReport()
	if done {
		return s, nil
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return s, fmt.Errorf("%w: %w", ErrMonitorInterrupted, ctx.Err())
		case <-ticker.C:
			if s, done = m.sampleAndReport(); done {
				return s, nil
			}
		}
	}
}

// sampleAndReport checks for outstanding work before sampling, so the
// snapshot taken when done already shows every completion.
func (m *Monitor) sampleAndReport() (Snapshot, bool) {
	done := m.src.Outstanding() == 0
	s := m.Sample()
	m.reporter.Report(s)
	return s, done
}

// LogReporter writes each snapshot as an info log line.
type LogReporter struct {
	log *zap.Logger
}

// NewLogReporter returns a reporter on l. A nil logger discards output.
func NewLogReporter(l *zap.Logger) *LogReporter {
	if l == nil {
		l = zap.NewNop()
	}
	return &LogReporter{log: l}
}

func (r *LogReporter) Report(s Snapshot) {
	fields := []zap.Field{
		zap.String("elapsed", FormatDuration(s.Elapsed)),
		zap.Uint64("submitted", s.Submitted),
		zap.Uint64("completed", s.Completed),
	}
	if s.Known {
		fields = append(fields,
			zap.String("per_item", FormatDuration(s.PerItem)),
			zap.String("remaining", FormatDuration(s.Remaining)),
		)
	}
	r.log.Info(s.String(), fields...)
}

// WriterReporter prints each snapshot as one line to an io.Writer.
type WriterReporter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{out: w}
}

func (r *WriterReporter) Report(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, s.String())
}

// MultiReporter fans a snapshot out to several reporters.
type MultiReporter []Reporter

func (m MultiReporter) Report(s Snapshot) {
	for _, r := range m {
		r.Report(s)
	}
}
