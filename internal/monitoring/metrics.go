package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ingestion metrics
	EvaluationsIngested *prometheus.CounterVec
	WebhookReplies      *prometheus.CounterVec

	// SMS metrics
	SMSSent *prometheus.CounterVec

	// Badge metrics
	BadgeOverrides  *prometheus.CounterVec
	BadgesAwarded   prometheus.Gauge
	HostsRegistered prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
	DBQueryDuration     *prometheus.HistogramVec
}

var metrics *Metrics

// Init initializes all Prometheus metrics
func Init() *Metrics {
	if metrics != nil {
		return metrics
	}

	metrics = &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		// Ingestion metrics
		EvaluationsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_ingested_total",
				Help: "Total number of inbound evaluations by outcome",
			},
			[]string{"outcome"},
		),
		WebhookReplies: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_replies_total",
				Help: "Total number of webhook replies by kind",
			},
			[]string{"kind"},
		),

		// SMS metrics
		SMSSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sms_sent_total",
				Help: "Total number of outbound SMS by status",
			},
			[]string{"status"},
		),

		// Badge metrics
		BadgeOverrides: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "badge_overrides_total",
				Help: "Total number of badge override changes",
			},
			[]string{"override"},
		),
		BadgesAwarded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "badges_awarded",
				Help: "Number of hosts currently holding the badge",
			},
		),
		HostsRegistered: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "hosts_registered_total",
				Help: "Total number of hosts registered",
			},
		),

		// Rate limiting metrics
		RateLimitHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"scope"},
		),

		// Database metrics
		DBConnectionsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "db_query_duration_seconds",
				Help:    "Database query duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_type"},
		),
	}

	return metrics
}

// Get returns the global metrics instance
func Get() *Metrics {
	if metrics == nil {
		return Init()
	}
	return metrics
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// MetricsMiddleware is a Gin middleware for collecting HTTP metrics
func MetricsMiddleware() gin.HandlerFunc {
	m := Get()
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// RecordIngestion records the outcome of one inbound evaluation
func RecordIngestion(outcome string) {
	Get().EvaluationsIngested.WithLabelValues(outcome).Inc()
}

// RecordWebhookReply records an outbound webhook reply
func RecordWebhookReply(kind string) {
	Get().WebhookReplies.WithLabelValues(kind).Inc()
}

// RecordSMSSent records an outbound SMS attempt
func RecordSMSSent(status string) {
	Get().SMSSent.WithLabelValues(status).Inc()
}

// RecordBadgeOverride records a badge override change
func RecordBadgeOverride(override string) {
	Get().BadgeOverrides.WithLabelValues(override).Inc()
}

// SetBadgesAwarded sets the current number of badge holders
func SetBadgesAwarded(count int) {
	Get().BadgesAwarded.Set(float64(count))
}

// RecordHostRegistered records a host registration
func RecordHostRegistered() {
	Get().HostsRegistered.Inc()
}

// RecordRateLimitHit records a rate limit hit
func RecordRateLimitHit(scope string) {
	Get().RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(queryType string, duration time.Duration) {
	Get().DBQueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
}

// SetDBConnections sets database connection metrics
func SetDBConnections(active, idle int) {
	Get().DBConnectionsActive.Set(float64(active))
	Get().DBConnectionsIdle.Set(float64(idle))
}
