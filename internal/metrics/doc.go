// Package metrics exports worker pool counters to Prometheus.
package metrics
