package train

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricNamespace = "mergetrain"

const (
	passesMetricName       = "passes_total"
	passDurationMetricName = "pass_duration_seconds"
	candidatesMetricName   = "candidates"
	actionsMetricName      = "actions_total"
)

const (
	resultLabel = "result"
	actionLabel = "action"
)

type resultLabelVal string

const (
	resultLabelSuccessVal resultLabelVal = "success"
	resultLabelFailureVal resultLabelVal = "failure"
	// resultLabelPartialVal is used for passes where dispatching at least
	// one action failed.
	resultLabelPartialVal resultLabelVal = "partial"
)

type metricCollector struct {
	passes       *prometheus.CounterVec
	passDuration prometheus.Histogram
	candidates   prometheus.Gauge
	actions      *prometheus.CounterVec
}

var metrics = newMetricCollector()

func newMetricCollector() *metricCollector {
	return &metricCollector{
		passes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      passesMetricName,
				Help:      "count of finished passes",
			},
			[]string{resultLabel},
		),
		passDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricNamespace,
				Name:      passDurationMetricName,
				Help:      "duration of passes",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		candidates: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricNamespace,
				Name:      candidatesMetricName,
				Help:      "number of eligible merge requests in the last pass",
			},
		),
		actions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricNamespace,
				Name:      actionsMetricName,
				Help:      "count of dispatched actions",
			},
			[]string{actionLabel, resultLabel},
		),
	}
}

func (m *metricCollector) PassFinished(result resultLabelVal, duration time.Duration) {
	m.passes.WithLabelValues(string(result)).Inc()
	m.passDuration.Observe(duration.Seconds())
}

func (m *metricCollector) SetCandidates(cnt int) {
	m.candidates.Set(float64(cnt))
}

func (m *metricCollector) ActionDispatched(action string, err error) {
	result := resultLabelSuccessVal
	if err != nil {
		result = resultLabelFailureVal
	}

	m.actions.WithLabelValues(action, string(result)).Inc()
}
