package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "stockcast_http_requests_total"
	MetricNameHTTPRequestDuration  = "stockcast_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "stockcast_http_requests_in_flight"

	MetricNameForecastRuns        = "stockcast_forecast_runs_total"
	MetricNameForecastDuration    = "stockcast_forecast_duration_seconds"
	MetricNameForecastCacheErrors = "stockcast_forecast_cache_errors_total"
	MetricNameSalesRecorded       = "stockcast_sales_recorded_total"
)

// Help text
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds"
	HelpTextHTTPRequestsInFlight = "Current number of HTTP requests being served"

	HelpTextForecastRuns        = "Forecast requests by outcome"
	HelpTextForecastDuration    = "Time to load inputs and compute a forecast, in seconds"
	HelpTextForecastCacheErrors = "Forecast cache operations that failed"
	HelpTextSalesRecorded       = "Sales recorded through the API"
)

// Label names
const (
	LabelMethod    = "method"
	LabelPath      = "path"
	LabelStatus    = "status"
	LabelOutcome   = "outcome"
	LabelDays      = "days"
	LabelOperation = "operation"
	LabelSource    = "source"
)

// Forecast outcomes
const (
	OutcomeComputed = "computed"
	OutcomeCacheHit = "cache_hit"
	OutcomeError    = "error"
)

// HTTPLatencyBuckets defines the histogram buckets for HTTP request duration
var HTTPLatencyBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}

// ForecastLatencyBuckets skews low; the engine itself runs in microseconds
// and most of the time is spent loading inputs.
var ForecastLatencyBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
