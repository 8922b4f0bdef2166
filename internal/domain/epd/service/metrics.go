package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/FACorreiaa/epd-parser/internal/domain/epd"
)

// Parse outcomes used as metric labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics are the Prometheus collectors of the import service.
type Metrics struct {
	parses   *prometheus.CounterVec
	duration *prometheus.HistogramVec
	warnings *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		parses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epd_parse_total",
			Help: "EPD parse attempts by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epd_parse_duration_seconds",
			Help:    "Time spent in one parse strategy.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"strategy"}),
		warnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "epd_parse_warnings_total",
			Help: "Recovered row and cell problems by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(strategy string, elapsed time.Duration, doc *epd.Document, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.parses.WithLabelValues(strategy, outcome).Inc()
	m.duration.WithLabelValues(strategy).Observe(elapsed.Seconds())

	if doc != nil {
		for _, w := range doc.Warnings {
			m.warnings.WithLabelValues(w.Kind).Inc()
		}
	}
}
