// Package metrics has the Prometheus instrumentation of the router.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/slok/execgate/internal/model"
)

const namespace = "execgate"

// Recorder records the router metrics on a Prometheus registry.
type Recorder struct {
	registry         *prometheus.Registry
	requests         *prometheus.CounterVec
	instanceSelected *prometheus.CounterVec
	forwards         *prometheus.CounterVec
	forwardDuration  *prometheus.HistogramVec
}

// NewRecorder returns a new recorder with its own registry, including the Go and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "requests_total",
				Help:      "Total router requests by route.",
			},
			[]string{"route"},
		),
		instanceSelected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "instance_selected_total",
				Help:      "Times an instance has been selected.",
			},
			[]string{"pool", "instance"},
		),
		forwards: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "forwards_total",
				Help:      "Forwarded requests to instances.",
			},
			[]string{"pool", "instance", "status", "success"},
		),
		forwardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "proxy",
				Name:      "forward_duration_seconds",
				Help:      "Forward to instance duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool", "success"},
		),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requests,
		r.instanceSelected,
		r.forwards,
		r.forwardDuration,
	)

	return r
}

// Handler returns the Prometheus exposition handler.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) RequestStarted(_ context.Context, route string) {
	r.requests.WithLabelValues(route).Inc()
}

func (r *Recorder) InstanceSelected(_ context.Context, pool string, id model.InstanceID) {
	r.instanceSelected.WithLabelValues(pool, strconv.Itoa(int(id))).Inc()
}

func (r *Recorder) ForwardResult(_ context.Context, pool string, id model.InstanceID, status int, err error, duration time.Duration) {
	success := strconv.FormatBool(err == nil)
	r.forwards.WithLabelValues(pool, strconv.Itoa(int(id)), strconv.Itoa(status), success).Inc()
	r.forwardDuration.WithLabelValues(pool, success).Observe(duration.Seconds())
}
