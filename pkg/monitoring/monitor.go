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

	EvaluationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_evaluations_total",
			Help: "Answer evaluations by strategy and result",
		},
		[]string{"strategy", "result"},
	)

	ReviewCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grading_reviews_total",
			Help: "Review submissions by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	AIFailoverCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "grading_ai_failovers_total",
			Help: "AI scoring calls that failed over to human review",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestCounter)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(EvaluationCounter)
	prometheus.MustRegister(ReviewCounter)
	prometheus.MustRegister(AIFailoverCounter)
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
