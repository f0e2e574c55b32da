// Package metrics exposes request and upstream counters to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	upstreamTotal   *prometheus.CounterVec
	cacheHits       prometheus.Counter
}

func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Tracks the number of HTTP requests.",
		}, []string{"method", "route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Tracks the latencies for HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		upstreamTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "places_upstream_requests_total",
			Help: "Nearby search calls by upstream status.",
		}, []string{"status"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "places_cache_hits_total",
			Help: "Nearby searches served from cache.",
		}),
	}
	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.requestsTotal,
		r.requestDuration,
		r.upstreamTotal,
		r.cacheHits,
	)
	return r
}

// UpstreamRequest and CacheHit satisfy places.Recorder.
func (r *Registry) UpstreamRequest(status string) {
	r.upstreamTotal.WithLabelValues(status).Inc()
}

func (r *Registry) CacheHit() {
	r.cacheHits.Inc()
}

func (r *Registry) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (r *Registry) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
}
