package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth flow labels
const (
	FlowLogin          = "login"
	FlowRefresh        = "refresh"
	FlowLogout         = "logout"
	FlowPasswordChange = "password_change"
	FlowResetRequest   = "password_reset_request"
	FlowReset          = "password_reset"
	FlowRegister       = "register_professor"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeError   = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Auth metrics
	AuthOperationsTotal *prometheus.CounterVec
	RevocationChecks    *prometheus.CounterVec

	// Housekeeping metrics
	CleanupRowsTotal *prometheus.CounterVec
	CleanupRunsTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academichub_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "academichub_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		AuthOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academichub_auth_operations_total",
				Help: "Total number of auth flow invocations by outcome",
			},
			[]string{"flow", "outcome"},
		),
		RevocationChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academichub_revocation_checks_total",
				Help: "Revocation lookups by source",
			},
			[]string{"source", "revoked"},
		),
		CleanupRowsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academichub_cleanup_rows_total",
				Help: "Rows removed by scheduled housekeeping",
			},
			[]string{"table"},
		),
		CleanupRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "academichub_cleanup_runs_total",
				Help: "Scheduled housekeeping runs by status",
			},
			[]string{"status"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.AuthOperationsTotal,
		m.RevocationChecks,
		m.CleanupRowsTotal,
		m.CleanupRunsTotal,
	)

	return m
}

// The Observe helpers are nil-safe so components can run without metrics.

func (m *Metrics) ObserveAuth(flow, outcome string) {
	if m == nil {
		return
	}
	m.AuthOperationsTotal.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) ObserveRevocationCheck(source string, revoked bool) {
	if m == nil {
		return
	}
	m.RevocationChecks.WithLabelValues(source, strconv.FormatBool(revoked)).Inc()
}

func (m *Metrics) ObserveCleanup(table string, rows int64) {
	if m == nil {
		return
	}
	m.CleanupRowsTotal.WithLabelValues(table).Add(float64(rows))
}

func (m *Metrics) ObserveCleanupRun(status string) {
	if m == nil {
		return
	}
	m.CleanupRunsTotal.WithLabelValues(status).Inc()
}

// GinMiddleware instruments HTTP requests; the route template is used as the path label
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
