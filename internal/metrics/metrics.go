// Package metrics expone la instrumentación Prometheus del journal.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OperationsTotal cuenta las operaciones del journal por resultado.
	OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journalbot_operations_total",
		Help: "Total journal operations by outcome",
	}, []string{"operation", "status"})

	// AlertsEmitted cuenta las alertas de riesgo emitidas.
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journalbot_alerts_emitted_total",
		Help: "Risk alerts emitted by kind and severity",
	}, []string{"kind", "severity"})

	// HTTPRequestsTotal cuenta los requests HTTP por método, ruta y status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journalbot_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration mide la duración de los requests.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "journalbot_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// RateLimited cuenta los requests rechazados por el rate limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journalbot_rate_limited_total",
		Help: "Requests rejected by the per-user rate limiter",
	})
)

// Handler devuelve el handler HTTP de Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware registra métricas por request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter captura el status code de la respuesta.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
