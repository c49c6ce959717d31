package parproc_test

import (
	"bytes"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	pp "github.com/azargarov/parproc"
)

func newTestOptions(t *testing.T, workers int) pp.Options {
	t.Helper()
	return pp.Options{
		Workers:        workers,
		ReportInterval: 10 * time.Millisecond,
		Logger:         zaptest.NewLogger(t),
	}
}

func newTestPool[T any](t *testing.T, workers int) *pp.Pool[T] {
	t.Helper()
	return pp.NewPool[T](newTestOptions(t, workers))
}

// observedOptions returns options whose logger records entries for
// assertions.
func observedOptions(t *testing.T, workers int) (pp.Options, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	opts := newTestOptions(t, workers)
	opts.Logger = zap.New(core)
	return opts, logs
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not satisfied before timeout")
}

// syncBuffer is a bytes.Buffer safe for the monitor goroutine and the
// test to share.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := strings.TrimSpace(b.buf.String())
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// attemptLog records every processed item in order.
type attemptLog struct {
	mu    sync.Mutex
	order []string
	count map[string]int
}

func newAttemptLog() *attemptLog {
	return &attemptLog{count: make(map[string]int)}
}

func (a *attemptLog) record(item string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.order = append(a.order, item)
	a.count[item]++
	return a.count[item]
}

func (a *attemptLog) Order() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

func (a *attemptLog) Count(item string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count[item]
}
