package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus instruments on a private registry
// so tests can create as many instances as they like.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal    prometheus.Counter
	QueryFailures   prometheus.Counter
	QueryDuration   prometheus.Histogram
	ToolExecutions  *prometheus.CounterVec
	CoursesIngested prometheus.Counter
	ChunksIngested  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tutor_queries_total",
			Help: "Completed query requests.",
		}),
		QueryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tutor_query_failures_total",
			Help: "Queries that ended in a terminating error.",
		}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutor_query_duration_seconds",
			Help:    "End-to-end query latency.",
			Buckets: prometheus.DefBuckets,
		}),
		ToolExecutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tutor_tool_executions_total",
			Help: "Tool executions by tool name.",
		}, []string{"tool"}),
		CoursesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tutor_courses_ingested_total",
			Help: "Courses added to the catalog index.",
		}),
		ChunksIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tutor_chunks_ingested_total",
			Help: "Chunks added to the content index.",
		}),
	}
	m.registry.MustRegister(
		m.QueriesTotal,
		m.QueryFailures,
		m.QueryDuration,
		m.ToolExecutions,
		m.CoursesIngested,
		m.ChunksIngested,
	)
	return m
}

// Handler serves the registry for the /metrics route.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
