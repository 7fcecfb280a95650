package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every custom metric the application exports
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Auth Metrics
	RegistrationsTotal *prometheus.CounterVec
	LoginAttemptsTotal *prometheus.CounterVec

	// Post Metrics
	PostOperationsTotal *prometheus.CounterVec

	// Database Metrics
	DBConnectionsOpen          prometheus.Gauge
	DBConnectionsInUse         prometheus.Gauge
	DBRequestConnectionsOpened prometheus.Counter

	// Cache (Redis) Metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Queue (RabbitMQ) Metrics
	QueueMessagesPublished *prometheus.CounterVec
	QueueMessagesConsumed  *prometheus.CounterVec
	EventsProcessedTotal   *prometheus.CounterVec
	EventsFailedTotal      *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics on the given registerer
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP Metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by blog section",
			},
			[]string{"section", "method", "endpoint", "status"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"section", "method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		// Auth Metrics
		RegistrationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_registrations_total",
				Help: "Total number of registration attempts",
			},
			[]string{"result"}, // success, invalid, duplicate, error
		),

		LoginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_attempts_total",
				Help: "Total number of login attempts",
			},
			[]string{"result"}, // success, unknown_user, bad_password, error
		),

		// Post Metrics
		PostOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "blog_post_operations_total",
				Help: "Total number of post mutations",
			},
			[]string{"operation"}, // create, update, delete
		),

		// Database Metrics
		DBConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_open",
				Help: "Number of open database connections",
			},
		),

		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "db_connections_in_use",
				Help: "Number of database connections currently in use",
			},
		),

		DBRequestConnectionsOpened: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "db_request_connections_opened_total",
				Help: "Total number of request-scoped connections acquired from the pool",
			},
		),

		// Cache Metrics
		CacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"key_type"},
		),

		CacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"key_type"},
		),

		// Queue Metrics
		QueueMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_published_total",
				Help: "Total number of messages published to the queue",
			},
			[]string{"queue_name"},
		),

		QueueMessagesConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "queue_messages_consumed_total",
				Help: "Total number of messages consumed from the queue",
			},
			[]string{"queue_name"},
		),

		EventsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_processed_total",
				Help: "Total number of domain events recorded by workers",
			},
			[]string{"event_type", "status"}, // status: success, failed
		),

		EventsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_failed_total",
				Help: "Total number of domain events that failed processing",
			},
			[]string{"event_type", "error_type"},
		),
	}
}

// GlobalMetrics is registered on the default registry at startup so that
// every package, including tests, can record without extra wiring
var GlobalMetrics = NewMetrics(prometheus.DefaultRegisterer)
