package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service-wide Prometheus metrics. Module-specific metrics
// live in their own packages; these cover the shared request path.
type Metrics struct {
	CredentialsStored prometheus.Counter
	UsersCreated      prometheus.Counter
	Verifications     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all shared Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		CredentialsStored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dhruva_credentials_stored_total",
			Help: "Total number of credential records stored off-chain",
		}),
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dhruva_users_created_total",
			Help: "Total number of users created in the system",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dhruva_verifications_total",
			Help: "Total number of verification verdicts by outcome",
		}, []string{"verdict"}),
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dhruva_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by route and status",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// ObserveRequest records one handled HTTP request.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}

// RecordVerdict counts one verification outcome.
func (m *Metrics) RecordVerdict(verdict string) {
	m.Verifications.WithLabelValues(verdict).Inc()
}
