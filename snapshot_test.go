package parproc_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	pp "github.com/azargarov/parproc"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{1500 * time.Millisecond, "00:00:01.500"},
		{time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, "01:02:03.004"},
		{26 * time.Hour, "26:00:00.000"},
		{999 * time.Microsecond, "00:00:00.000"},
		{-time.Second, "00:00:00.000"},
	}
	for _, tt := range tests {
		if got := pp.FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestComputeSnapshotZeroCompleted(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := pp.ComputeSnapshot(start.Add(7*time.Second), start, 12, 0)

	if s.Known {
		t.Fatal("rate must be unknown with nothing completed")
	}
	line := s.String()
	for _, want := range []string{
		"Runtime: 00:00:07.000",
		"Total: 12, Done: 0",
		"... / item",
		"Finished in: ...",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
}

func TestComputeSnapshotETA(t *testing.T) {
	start := time.Unix(0, 0)
	tests := []struct {
		elapsed              time.Duration
		submitted, completed uint64
		perItem, remaining   time.Duration
	}{
		{10 * time.Second, 10, 4, 2500 * time.Millisecond, 15 * time.Second},
		{9 * time.Second, 3, 3, 3 * time.Second, 0},
		{time.Minute, 100, 1, time.Minute, 99 * time.Minute},
	}
	for _, tt := range tests {
		s := pp.ComputeSnapshot(start.Add(tt.elapsed), start, tt.submitted, tt.completed)
		if !s.Known {
			t.Fatalf("%+v: rate unknown", tt)
		}
		if s.PerItem != tt.perItem || s.Remaining != tt.remaining {
			t.Errorf("E=%v S=%d C=%d: perItem=%v remaining=%v; want %v / %v",
				tt.elapsed, tt.submitted, tt.completed, s.PerItem, s.Remaining, tt.perItem, tt.remaining)
		}
		// (E / C) * (S - C)
		want := tt.elapsed / time.Duration(tt.completed) * time.Duration(tt.submitted-tt.completed)
		if s.Remaining != want {
			t.Errorf("remaining = %v; want %v", s.Remaining, want)
		}
	}
}

func TestSnapshotString(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s := pp.ComputeSnapshot(start.Add(10*time.Second), start, 10, 4)

	want := "2026-01-02T03:04:15Z Runtime: 00:00:10.000 --> Total: 10, Done: 4, 00:00:02.500 / item, Finished in: 00:00:15.000"
	if got := s.String(); got != want {
		t.Fatalf("String() =\n%q\nwant\n%q", got, want)
	}
}

// fakeCounters completes one item per Completed call until done.
type fakeCounters struct {
	submitted uint64
	completed atomic.Uint64
	step      bool
}

func (f *fakeCounters) Submitted() uint64 { return f.submitted }

func (f *fakeCounters) Completed() uint64 {
	if f.step && f.completed.Load() < f.submitted {
		return f.completed.Add(1) - 1
	}
	return f.completed.Load()
}

func (f *fakeCounters) Outstanding() uint64 { return f.submitted - f.completed.Load() }

type collectReporter struct {
	snaps chan pp.Snapshot
}

func (c *collectReporter) Report(s pp.Snapshot) { c.snaps <- s }

func TestMonitorWatchUntilDone(t *testing.T) {
	src := &fakeCounters{submitted: 3, step: true}
	rep := &collectReporter{snaps: make(chan pp.Snapshot, 16)}
	m := pp.NewMonitor(src, time.Now(), time.Millisecond, rep)

	last, err := m.Watch(context.Background())
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	close(rep.snaps)

	var n int
	for range rep.snaps {
		n++
	}
	// samples report 0, 1, 2 completed; the final one sees nothing
	// outstanding and reports all 3
	if n != 4 {
		t.Fatalf("reports = %d; want 4", n)
	}
	if last.Submitted != 3 || last.Completed != 3 {
		t.Fatalf("last snapshot = %+v", last)
	}
}

func TestMonitorWatchNothingOutstanding(t *testing.T) {
	src := &fakeCounters{}
	rep := &collectReporter{snaps: make(chan pp.Snapshot, 4)}
	m := pp.NewMonitor(src, time.Now(), time.Hour, rep)

	if _, err := m.Watch(context.Background()); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if len(rep.snaps) != 1 {
		t.Fatalf("reports = %d; want 1", len(rep.snaps))
	}
}

func TestMonitorWatchInterrupted(t *testing.T) {
	src := &fakeCounters{submitted: 5}
	rep := &collectReporter{snaps: make(chan pp.Snapshot, 64)}
	m := pp.NewMonitor(src, time.Now(), time.Hour, rep)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := m.Watch(ctx)
	if !errors.Is(err, pp.ErrMonitorInterrupted) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Watch err = %v; want ErrMonitorInterrupted wrapping context.Canceled", err)
	}
}

func TestWriterReporter(t *testing.T) {
	var buf syncBuffer
	r := pp.MultiReporter{pp.NewWriterReporter(&buf), pp.NewLogReporter(nil)}

	start := time.Unix(0, 0)
	r.Report(pp.ComputeSnapshot(start.Add(time.Second), start, 2, 1))
	r.Report(pp.ComputeSnapshot(start.Add(2*time.Second), start, 2, 2))

	lines := buf.Lines()
	if len(lines) != 2 {
		t.Fatalf("lines = %d; want 2", len(lines))
	}
	if !strings.Contains(lines[1], "Done: 2") {
		t.Fatalf("second line %q", lines[1])
	}
}
