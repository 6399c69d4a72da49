package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	TestSessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testhub_sessions_started_total",
			Help: "Test sessions started, by test type",
		},
		[]string{"type"},
	)

	TestSessionsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testhub_sessions_completed_total",
			Help: "Test sessions finalized, by test type",
		},
		[]string{"type"},
	)

	GradingFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "testhub_grading_failures_total",
			Help: "Answer submissions that failed because the judge was unavailable",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(TestSessionsStarted)
	prometheus.MustRegister(TestSessionsCompleted)
	prometheus.MustRegister(GradingFailures)
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
