package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "giftwish_http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftwish_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "giftwish_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	loginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftwish_login_attempts_total",
			Help: "Login code verifications by outcome.",
		},
		[]string{"outcome"},
	)

	refreshRotations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftwish_refresh_rotations_total",
			Help: "Refresh token rotations by outcome.",
		},
		[]string{"outcome"},
	)
)

// Init registers the service metrics with the default registry. Call once.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
		loginAttempts, refreshRotations)
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CountLogin records one login verification outcome ("ok", "invalid_code",
// "expired_code", "error").
func CountLogin(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// CountRefresh records one refresh rotation outcome ("ok", "unauthorized").
func CountRefresh(outcome string) {
	refreshRotations.WithLabelValues(outcome).Inc()
}

// Instrument measures request rate, latency and in-flight count. pattern
// should be the route pattern, not the raw URL, to keep label cardinality
// bounded.
func Instrument(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		httpInFlight.Dec()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
