package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// OpenWeather API calls by endpoint (current, forecast) and status.
	WeatherAPICallsTotal *prometheus.CounterVec

	// OpenWeather API latency. Watch for: p95 approaching the client timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Retry attempts by endpoint. Watch for: high retries = unstable upstream.
	WeatherAPIRetriesTotal *prometheus.CounterVec

	// Upstream errors by stable category (see client.CategorizeError).
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Circuit breaker state per component: 0 closed, 1 open, 2 half_open.
	CircuitBreakerState *prometheus.GaugeVec

	// Circuit breaker transitions. Watch for: flapping.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec

	// Report cache hits and misses.
	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	// Cache backend errors by operation (get, set, get_stale).
	CacheErrorsTotal *prometheus.CounterVec

	// Stale reports served because the upstream failed.
	StaleCacheServesTotal prometheus.Counter

	// Concurrent misses on the same key observed before coalescing.
	CacheStampedeDetectedTotal prometheus.Counter

	// Requests that waited on another caller's upstream fetch.
	RequestCoalescingHitsTotal prometheus.Counter

	// History-driven warming runs and failures.
	CacheWarmingTotal           prometheus.Counter
	CacheWarmingErrorsTotal     prometheus.Counter
	CacheWarmingDurationSeconds prometheus.Histogram

	// Weather report lookups by units.
	WeatherQueriesTotal *prometheus.CounterVec

	// Current number of cities in the search history.
	SearchHistorySize prometheus.Gauge

	// Failed writes of the search history file.
	SearchHistoryWriteErrorsTotal prometheus.Counter

	// Login attempts by result (success, invalid, missing, error).
	LoginAttemptsTotal *prometheus.CounterVec

	// Contact book operations by operation and result.
	ContactOperationsTotal *prometheus.CounterVec

	// SQL statement latency by operation.
	DBQueryDuration *prometheus.HistogramVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "httpRequestsTotal", Help: "Total number of HTTP requests"},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "httpRequestsInFlight", Help: "Number of HTTP requests currently being served"},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "weatherApiCallsTotal", Help: "Total number of OpenWeather API calls"},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "OpenWeather API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "weatherApiRetriesTotal", Help: "Total number of retry attempts for OpenWeather API calls"},
		[]string{"endpoint"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "weatherApiErrorsTotal", Help: "OpenWeather API errors by category"},
		[]string{"category"},
	)
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "circuitBreakerState", Help: "Circuit breaker state (0 closed, 1 open, 2 half_open)"},
		[]string{"component"},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "circuitBreakerTransitionsTotal", Help: "Circuit breaker state transitions"},
		[]string{"component", "from", "to"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheHitsTotal", Help: "Report cache hits"},
	)
	CacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheMissesTotal", Help: "Report cache misses"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cacheErrorsTotal", Help: "Cache backend errors by operation"},
		[]string{"operation"},
	)
	StaleCacheServesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "staleCacheServesTotal", Help: "Stale reports served after upstream failure"},
	)
	CacheStampedeDetectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheStampedeDetectedTotal", Help: "Concurrent cache misses on the same key"},
	)
	RequestCoalescingHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "requestCoalescingHitsTotal", Help: "Requests served by another caller's upstream fetch"},
	)
	CacheWarmingTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheWarmingTotal", Help: "Cache warming runs"},
	)
	CacheWarmingErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "cacheWarmingErrorsTotal", Help: "Cache warming runs with at least one failed city"},
	)
	CacheWarmingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cacheWarmingDurationSeconds",
			Help:    "Cache warming duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 30},
		},
	)
	WeatherQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "weatherQueriesTotal", Help: "Total number of weather report lookups"},
		[]string{"units"},
	)
	SearchHistorySize = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "searchHistorySize", Help: "Cities currently held in the search history"},
	)
	SearchHistoryWriteErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "searchHistoryWriteErrorsTotal", Help: "Failed search history writes"},
	)
	LoginAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "loginAttemptsTotal", Help: "Login attempts by result"},
		[]string{"result"},
	)
	ContactOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "contactOperationsTotal", Help: "Contact book operations by operation and result"},
		[]string{"operation", "result"},
	)
	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dbQueryDurationSeconds",
			Help:    "SQL statement latency in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"operation"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "rateLimitDeniedTotal", Help: "Total number of requests denied by rate limiter (429)"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIRetriesTotal, WeatherAPIErrorsTotal,
		CircuitBreakerState, CircuitBreakerTransitionsTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal, StaleCacheServesTotal,
		CacheStampedeDetectedTotal, RequestCoalescingHitsTotal,
		CacheWarmingTotal, CacheWarmingErrorsTotal, CacheWarmingDurationSeconds,
		WeatherQueriesTotal, SearchHistorySize, SearchHistoryWriteErrorsTotal,
		LoginAttemptsTotal, ContactOperationsTotal, DBQueryDuration,
		RateLimitDeniedTotal,
	)
}

// RecordCircuitBreakerTransition records a state change and updates the state gauge.
// States are passed as their String() form to avoid importing circuitbreaker here.
func RecordCircuitBreakerTransition(component, from, to string) {
	CircuitBreakerTransitionsTotal.WithLabelValues(component, from, to).Inc()
	CircuitBreakerState.WithLabelValues(component).Set(circuitBreakerStateValue(to))
}

func circuitBreakerStateValue(state string) float64 {
	switch state {
	case "open":
		return 1
	case "half_open":
		return 2
	default:
		return 0
	}
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
