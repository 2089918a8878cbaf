// Package metrics exposes the dispatch loop's per-request counters and
// latency histogram as Prometheus counters and a histogram (SPEC_FULL.md DOMAIN
// STACK), wired into internal/dispatch next to its logging calls. This
// is observability scaffolding around the core, not part of the hard
// core itself (spec §1 explicitly excludes logging/metrics collaborators
// from the core's scope).
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch collects the counters and histogram a dispatch.Observer reports
// into, registered against their own prometheus.Registry so a node's
// metrics endpoint carries only this core's series.
type Dispatch struct {
	registry      *prometheus.Registry
	requestsTotal *prometheus.CounterVec
	retriesTotal  *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// NewDispatch builds and registers the dispatch-loop metric set.
func NewDispatch() *Dispatch {
	reg := prometheus.NewRegistry()

	d := &Dispatch{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requestcore_requests_total",
			Help: "Total requests handled, labeled by category, method, and response code.",
		}, []string{"category", "method", "code"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "requestcore_retry_later_total",
			Help: "Total requests that produced a retry_later response after a synchronization conflict.",
		}, []string{"category", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "requestcore_handler_duration_seconds",
			Help:    "Wall-clock time spent inside a worker's dispatch.Handle call.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category", "method"}),
	}

	reg.MustRegister(d.requestsTotal, d.retriesTotal, d.latency)
	return d
}

// Handler returns an http.Handler serving this Dispatch's metrics in the
// Prometheus exposition format, for mounting under a node's metrics
// address.
func (d *Dispatch) Handler() http.Handler {
	return promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{})
}

// Observe wraps the given category/method pair into a func that records
// how long the caller's handler invocation took; call the returned func
// when it completes.
func (d *Dispatch) Observe(category, method uint8) func() {
	start := time.Now()
	c, m := label(category), labelMethod(method)
	return func() {
		d.latency.WithLabelValues(c, m).Observe(time.Since(start).Seconds())
	}
}

// RequestHandled implements dispatch.Observer, incrementing the
// requests-by-response-code counter.
func (d *Dispatch) RequestHandled(category, method uint8, code uint16) {
	d.requestsTotal.WithLabelValues(label(category), labelMethod(method), labelCode(code)).Inc()
}

// RetryLater implements dispatch.Observer, incrementing the retry counter.
func (d *Dispatch) RetryLater(category, method uint8) {
	d.retriesTotal.WithLabelValues(label(category), labelMethod(method)).Inc()
}

func label(category uint8) string     { return strconv.Itoa(int(category)) }
func labelMethod(method uint8) string { return strconv.Itoa(int(method)) }
func labelCode(code uint16) string    { return strconv.Itoa(int(code)) }
