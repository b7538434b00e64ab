// Package observability exposes Prometheus instrumentation for the ingest and
// query paths.
package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "vitalsync_"

	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests   *prometheus.CounterVec
	subsystemTotal   *prometheus.CounterVec
	subsystemLatency *prometheus.HistogramVec
	recordsWritten   *prometheus.CounterVec
	queryRequests    *prometheus.CounterVec
)

// Init registers all collectors with the default registry. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total ingest requests by endpoint and HTTP status",
			},
			[]string{"endpoint", "status"},
		)
		subsystemTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_subsystem_total",
				Help: "Total ingest subsystem runs by subsystem and result",
			},
			[]string{"subsystem", "result"},
		)
		subsystemLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_subsystem_latency_seconds",
				Help:    "Ingest subsystem latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"subsystem", "result"},
		)
		recordsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_written_total",
				Help: "Total records committed by record type",
			},
			[]string{"type"},
		)
		queryRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "query_requests_total",
				Help: "Total query service calls by query and result",
			},
			[]string{"query", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			subsystemTotal,
			subsystemLatency,
			recordsWritten,
			queryRequests,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveIngestRequest counts one ingest HTTP request.
func ObserveIngestRequest(endpoint string, status int) {
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	}
}

// ObserveSubsystem records one subsystem run.
func ObserveSubsystem(subsystem string, success bool, duration time.Duration) {
	result := ResultSuccess
	if !success {
		result = ResultError
	}
	if subsystemTotal != nil {
		subsystemTotal.WithLabelValues(subsystem, result).Inc()
	}
	if subsystemLatency != nil {
		subsystemLatency.WithLabelValues(subsystem, result).Observe(duration.Seconds())
	}
}

// AddRecords counts committed records of one type (metric, workout, route).
func AddRecords(recordType string, n int) {
	if n <= 0 {
		return
	}
	if recordsWritten != nil {
		recordsWritten.WithLabelValues(recordType).Add(float64(n))
	}
}

// ObserveQuery counts one query service call.
func ObserveQuery(query string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	if queryRequests != nil {
		queryRequests.WithLabelValues(query, result).Inc()
	}
}
