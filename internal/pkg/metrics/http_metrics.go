package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPMetrics coleta contadores e latência das requisições HTTP.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	status   *prometheus.CounterVec
	gatherer prometheus.Gatherer
}

// NewHTTPMetrics registra as métricas em reg. Em produção, reg é um prometheus.NewRegistry().
func NewHTTPMetrics(reg *prometheus.Registry) *HTTPMetrics {
	m := &HTTPMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "almoxarifado",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "almoxarifado",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "almoxarifado",
			Name:      "http_status_category_total",
			Help:      "Total number of responses by status category (2xx, 4xx, 5xx)",
		}, []string{"category"}),
		gatherer: reg,
	}
	reg.MustRegister(m.requests, m.duration, m.status)
	return m
}

// Middleware registra as métricas usando o padrão de rota do chi, evitando explosão de labels por id.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		m.status.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
	})
}

// Handler expõe as métricas no formato do Prometheus.
func (m *HTTPMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
