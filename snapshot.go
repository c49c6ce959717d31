package parproc

import (
	"fmt"
	"time"
)

// UnknownValue is printed in place of a rate or ETA that cannot be
// computed yet.
const UnknownValue = "..."

// Snapshot is a point-in-time view of a run's progress.
type Snapshot struct {
	Time      time.Time
	Elapsed   time.Duration
	Submitted uint64
	Completed uint64

	// PerItem and Remaining are only meaningful when Known is true.
	PerItem   time.Duration
	Remaining time.Duration
	Known     bool
}

// Outstanding returns the number of submitted items not yet completed.
func (s Snapshot) Outstanding() uint64 {
	if s.Completed >= s.Submitted {
		return 0
	}
	return s.Submitted - s.Completed
}

// ComputeSnapshot derives the per-item average and the remaining-time
// estimate from the raw counters. With nothing completed yet the rate
// is unknown and Known is false.
func ComputeSnapshot(now, start time.Time, submitted, completed uint64) Snapshot {
	s := Snapshot{
		Time:      now,
		Elapsed:   now.Sub(start),
		Submitted: submitted,
		Completed: completed,
	}
	if completed == 0 {
		return s
	}
	s.PerItem = s.Elapsed / time.Duration(completed)
	s.Remaining = s.PerItem * time.Duration(s.Outstanding())
	s.Known = true
	return s
}

// String renders the snapshot as a single progress line.
func (s Snapshot) String() string {
	perItem, remaining := UnknownValue, UnknownValue
	if s.Known {
		perItem = FormatDuration(s.PerItem)
		remaining = FormatDuration(s.Remaining)
	}
	return fmt.Sprintf("%s Runtime: %s --> Total: %d, Done: %d, %s / item, Finished in: %s",
		s.Time.Format(time.RFC3339),
		FormatDuration(s.Elapsed),
		s.Submitted,
		s.Completed,
		perItem,
		remaining,
	)
}

// FormatDuration formats d as HH:mm:ss.mmm. Hours are not wrapped at 24.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / int64(time.Hour/time.Millisecond)
	ms -= h * int64(time.Hour/time.Millisecond)
	m := ms / int64(time.Minute/time.Millisecond)
	ms -= m * int64(time.Minute/time.Millisecond)
	sec := ms / 1000
	ms -= sec * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, ms)
}
