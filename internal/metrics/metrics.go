// Package metrics instruments the decode pipeline and throttle
// controller for an optional /metrics HTTP endpoint. Nothing in the
// core session depends on this package being wired up; every recorder
// method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every gauge/counter the session records into. A zero
// *Metrics (nil) is valid and every method becomes a no-op, so callers
// that don't want instrumentation can simply not construct one.
type Metrics struct {
	reg *prometheus.Registry

	queueDepth    *prometheus.GaugeVec
	framesTotal   prometheus.Counter
	bytesDecoded  *prometheus.CounterVec
	throttleSleep prometheus.Histogram
}

// New registers and returns a fresh metric set on its own registry
// (never the global default, so multiple sessions in one process don't
// collide on metric registration).
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "flashvnc",
			Name:      "decode_queue_depth",
			Help:      "Pending decode jobs per worker pool.",
		}, []string{"pool"}),
		framesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "flashvnc",
			Name:      "frames_total",
			Help:      "Framebuffer updates delivered to the view.",
		}),
		bytesDecoded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flashvnc",
			Name:      "bytes_decoded_total",
			Help:      "Raw wire bytes decoded, by encoding.",
		}, []string{"encoding"}),
		throttleSleep: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "flashvnc",
			Name:      "throttle_sleep_seconds",
			Help:      "Sleep duration the throttle controller chose per frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}
}

// Handler serves the registry's families in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) SetQueueDepth(pool string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(pool).Set(float64(depth))
}

func (m *Metrics) IncFrame() {
	if m == nil {
		return
	}
	m.framesTotal.Inc()
}

func (m *Metrics) AddBytesDecoded(encoding string, n int) {
	if m == nil {
		return
	}
	m.bytesDecoded.WithLabelValues(encoding).Add(float64(n))
}

func (m *Metrics) ObserveThrottleSleep(seconds float64) {
	if m == nil {
		return
	}
	m.throttleSleep.Observe(seconds)
}
