package completion

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeSuccess = "success"

type Metrics struct {
	latency  *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// NewMetrics registers the completion collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "completion_latency_seconds",
			Help:    "Latency of completion API calls.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"outcome"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_requests_total",
			Help: "Completion API calls by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(outcome).Observe(d.Seconds())
	m.requests.WithLabelValues(outcome).Inc()
}
