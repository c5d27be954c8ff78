package probe

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "bucket_probe"

type metrics struct {
	iterations   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	listed       prometheus.Gauge
}

// newMetrics builds the prober's collectors and registers them with reg. A
// nil reg leaves them unregistered, which keeps tests isolated from one
// another.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Number of upload iterations by result.",
		}, []string{"result"}),
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of each iteration step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		listed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "listed_objects",
			Help:      "Number of objects returned by the most recent bucket listing.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.iterations, m.callDuration, m.listed)
	}
	return m
}

func (m *metrics) observeCall(step Step, d time.Duration) {
	m.callDuration.WithLabelValues(string(step)).Observe(d.Seconds())
}

func (m *metrics) observeIteration(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.iterations.WithLabelValues(result).Inc()
}
