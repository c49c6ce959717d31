package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/azargarov/parproc"
)

func TestPrometheusCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	m.IncSubmitted()
	m.IncSubmitted()
	m.IncRequeued()
	m.IncCompleted()
	m.IncFailed()
	m.ObserveAttempt(10*time.Millisecond, false)
	m.ObserveAttempt(20*time.Millisecond, true)

	if got := testutil.ToFloat64(m.submitted); got != 2 {
		t.Errorf("submitted = %v; want 2", got)
	}
	if got := testutil.ToFloat64(m.requeued); got != 1 {
		t.Errorf("requeued = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.completed); got != 1 {
		t.Errorf("completed = %v; want 1", got)
	}
	if got := testutil.ToFloat64(m.failed); got != 1 {
		t.Errorf("failed = %v; want 1", got)
	}
	if got := testutil.CollectAndCount(m.attempts); got != 2 {
		t.Errorf("attempt series = %d; want 2 (ok and error)", got)
	}
}

func TestNewDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg, "dup"); err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err := New(reg, "dup")
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		t.Fatalf("second New err = %v; want AlreadyRegisteredError", err)
	}
}

func TestPrometheusWithRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg, "run")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var calls int
	proc := parproc.ProcessorFuncs[int]{
		List: func(context.Context) ([]int, error) { return []int{1, 2, 3}, nil },
		Each: func(_ context.Context, item int) error {
			// single worker, so no synchronization needed
			calls++
			if item == 2 && calls == 2 {
				return errors.New("first try fails")
			}
			return nil
		},
	}
	opts := parproc.Options{Workers: 1, ReportInterval: 5 * time.Millisecond, Metrics: m}
	if _, err := parproc.Run[int](context.Background(), proc, opts); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := testutil.ToFloat64(m.submitted); got != 3 {
		t.Errorf("submitted = %v; want 3", got)
	}
	if got := testutil.ToFloat64(m.completed); got != 3 {
		t.Errorf("completed = %v; want 3", got)
	}
	if got := testutil.ToFloat64(m.requeued); got != 1 {
		t.Errorf("requeued = %v; want 1", got)
	}

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if body := rec.Body.String(); !strings.Contains(body, "run_pool_jobs_completed_total 3") {
		t.Fatalf("exposition missing completed counter:\n%s", body)
	}
}
