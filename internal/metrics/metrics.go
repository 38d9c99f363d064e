// Package metrics exposes the portal's Prometheus collectors and the side server that serves them.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"mobcash_portal/internal/wizard"
)

// Recorder holds the portal collectors
type Recorder struct {
	outcomes *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "flow_outcomes_total",
			Help:      "Deposit, withdrawal and bonus flow outcomes.",
		}, []string{"kind", "outcome"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Name:      "http_requests_total",
			Help:      "Portal HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "portal",
			Name:      "http_request_duration_seconds",
			Help:      "Portal HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(r.outcomes, r.requests, r.latency)
	return r
}

// Observe counts a flow outcome
func (r *Recorder) Observe(_ context.Context, e wizard.Event) {
	r.outcomes.WithLabelValues(e.Kind, e.Outcome).Inc()
}

// Middleware records every request under its route template
func (r *Recorder) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		r.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		r.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
