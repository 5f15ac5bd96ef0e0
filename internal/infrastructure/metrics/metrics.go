// Package metrics exposes extraction counters over Prometheus.
package metrics

import (
	"net/http"
	"time"

	"comment-extractor/internal/application/port/output"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "comment_extractor"

var _ output.MetricsPort = (*Metrics)(nil)

type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RecordsTotal       *prometheus.CounterVec
	RunDurationSeconds *prometheus.HistogramVec
	OracleCallsTotal   *prometheus.CounterVec
	OracleTokensTotal  *prometheus.CounterVec
}

// New registers all collectors on reg, or on the default registerer if nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Strategy runs by strategy and outcome",
		}, []string{"strategy", "outcome"}),
		RecordsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Records returned by strategy",
		}, []string{"strategy"}),
		RunDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Strategy run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"strategy"}),
		OracleCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Oracle round trips by request kind and status",
		}, []string{"kind", "status"}),
		OracleTokensTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_tokens_total",
			Help:      "Tokens reported by the oracle per request kind",
		}, []string{"kind"}),
	}
}

func (m *Metrics) RunFinished(strategy, outcome string, records int, duration time.Duration) {
	m.RunsTotal.WithLabelValues(strategy, outcome).Inc()
	m.RecordsTotal.WithLabelValues(strategy).Add(float64(records))
	m.RunDurationSeconds.WithLabelValues(strategy).Observe(duration.Seconds())
}

func (m *Metrics) OracleCall(kind string, tokens int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.OracleCallsTotal.WithLabelValues(kind, status).Inc()
	if tokens > 0 {
		m.OracleTokensTotal.WithLabelValues(kind).Add(float64(tokens))
	}
}

// Handler serves the /metrics endpoint for g, or the default gatherer if nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
