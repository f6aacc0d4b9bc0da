// Package metrics exposes Prometheus collectors for the HTTP layer and the
// quiz and certificate workflow.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lms"

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	QuizSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_submissions_total",
			Help:      "Graded quiz submissions by outcome",
		},
		[]string{"passed"},
	)

	CertificateDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "certificate_decisions_total",
			Help:      "Certificate request transitions by resulting status",
		},
		[]string{"status"},
	)

	EmailDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "email_deliveries_total",
			Help:      "Notification send attempts by result and failure cause",
		},
		[]string{"result", "cause"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter, RequestDuration, QuizSubmissions, CertificateDecisions, EmailDeliveries)
	})
}

// ObserveSubmission counts a graded attempt.
func ObserveSubmission(passed bool) {
	QuizSubmissions.WithLabelValues(strconv.FormatBool(passed)).Inc()
}

// ObserveDecision counts a certificate request transition.
func ObserveDecision(status string) {
	CertificateDecisions.WithLabelValues(status).Inc()
}

// ObserveEmail counts a send attempt. cause is empty on success.
func ObserveEmail(sent bool, cause string) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	EmailDeliveries.WithLabelValues(result, cause).Inc()
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		RequestCounter.WithLabelValues(
			c.Request.Method,
			endpoint,
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			endpoint,
		).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the Prometheus exposition format.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
