package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/azargarov/parproc"
)

// Prometheus is a parproc.MetricsPolicy backed by Prometheus collectors.
type Prometheus struct {
	submitted prometheus.Counter
	requeued  prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	attempts  *prometheus.HistogramVec
}

var _ parproc.MetricsPolicy = (*Prometheus)(nil)

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Prometheus, error) {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      name,
			Help:      help,
		})
	}
	m := &Prometheus{
		submitted: counter("jobs_submitted_total", "Total number of items submitted to the pool"),
		requeued:  counter("jobs_requeued_total", "Total number of failed attempts put back into the queue"),
		completed: counter("jobs_completed_total", "Total number of items processed successfully"),
		failed:    counter("jobs_failed_total", "Total number of items given up on"),
		attempts: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "attempt_duration_seconds",
			Help:      "Histogram of processing attempt durations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.submitted, m.requeued, m.completed, m.failed, m.attempts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Prometheus) IncSubmitted() { m.submitted.Inc() }
func (m *Prometheus) IncRequeued()  { m.requeued.Inc() }
func (m *Prometheus) IncCompleted() { m.completed.Inc() }
func (m *Prometheus) IncFailed()    { m.failed.Inc() }

func (m *Prometheus) ObserveAttempt(d time.Duration, ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	m.attempts.WithLabelValues(result).Observe(d.Seconds())
}

// Handler serves the metrics gathered by g in the exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
