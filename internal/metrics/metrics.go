package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP Metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameHTTPRequestsTotal,
			Help: HelpTextHTTPRequestsTotal,
		},
		[]string{LabelMethod, LabelPath, LabelStatus},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameHTTPRequestDuration,
			Help:    HelpTextHTTPRequestDuration,
			Buckets: HTTPLatencyBuckets,
		},
		[]string{LabelMethod, LabelPath},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: MetricNameHTTPRequestsInFlight,
			Help: HelpTextHTTPRequestsInFlight,
		},
	)
)

// Forecast Metrics
var (
	ForecastRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameForecastRuns,
			Help: HelpTextForecastRuns,
		},
		[]string{LabelOutcome, LabelDays},
	)

	ForecastDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    MetricNameForecastDuration,
			Help:    HelpTextForecastDuration,
			Buckets: ForecastLatencyBuckets,
		},
		[]string{LabelDays},
	)

	ForecastCacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameForecastCacheErrors,
			Help: HelpTextForecastCacheErrors,
		},
		[]string{LabelOperation},
	)

	SalesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: MetricNameSalesRecorded,
			Help: HelpTextSalesRecorded,
		},
		[]string{LabelSource},
	)
)
