package govern

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments governed calls. A nil *Metrics is valid and records
// nothing, so instrumentation stays optional for CLI one-shots.
type Metrics struct {
	calls           *prometheus.CounterVec
	rateLimited     prometheus.Counter
	throttleSeconds prometheus.Histogram
}

// NewMetrics creates the governor's collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "onboard",
			Subsystem: "govern",
			Name:      "calls_total",
			Help:      "Governed upstream calls by HTTP status code.",
		}, []string{"code"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "onboard",
			Subsystem: "govern",
			Name:      "rate_limited_total",
			Help:      "Upstream 429 responses received.",
		}),
		throttleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "onboard",
			Subsystem: "govern",
			Name:      "throttle_wait_seconds",
			Help:      "Time spent waiting for the rate window to reset.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}
	reg.MustRegister(m.calls, m.rateLimited, m.throttleSeconds)
	return m
}

func (m *Metrics) observeCall(statusCode int) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) observeRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func (m *Metrics) observeThrottle(wait time.Duration) {
	if m == nil {
		return
	}
	m.throttleSeconds.Observe(wait.Seconds())
}
