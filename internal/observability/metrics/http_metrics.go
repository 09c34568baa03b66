package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics tracks request volume and latency per route.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors with the default registry.
func NewHTTPMetrics(cfg Config) (*HTTPMetrics, error) {
	return newHTTPMetrics(prometheus.DefaultRegisterer, cfg)
}

func newHTTPMetrics(registerer prometheus.Registerer, cfg Config) (*HTTPMetrics, error) {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "dormmenu"
	}
	constLabels := prometheus.Labels{"service": serviceName}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "dormmenu_http_requests_total",
		Help:        "HTTP requests by method, route and status code.",
		ConstLabels: constLabels,
	}, []string{"method", "route", "status_code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "dormmenu_http_request_duration_seconds",
		Help:        "HTTP request latency by method and route.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: constLabels,
	}, []string{"method", "route"})

	for _, collector := range []prometheus.Collector{requests, duration} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &HTTPMetrics{requests: requests, duration: duration}, nil
}

// GinMiddleware observes every request after the handler chain completes.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		method := c.Request.Method
		m.requests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
