package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter exports metrics to Prometheus format.
type PrometheusExporter struct {
	collector *Collector
	gatherer  prometheus.Gatherer

	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	cacheHitRate     prometheus.Gauge
	cacheKeys        prometheus.Gauge
	cacheMemoryBytes prometheus.Gauge
	ledgerMutations  *prometheus.CounterVec
	grpcRequests     *prometheus.CounterVec
	grpcDuration     *prometheus.HistogramVec
	grpcErrors       *prometheus.CounterVec
}

// NewPrometheusExporter registers the service metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid duplicate registration.
func NewPrometheusExporter(reg *prometheus.Registry, collector *Collector) *PrometheusExporter {
	factory := promauto.With(reg)

	return &PrometheusExporter{
		collector: collector,
		gatherer:  reg,
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrate_cache_hits_total",
				Help: "Total number of record cache hits",
			},
			[]string{"record"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrate_cache_misses_total",
				Help: "Total number of record cache misses",
			},
			[]string{"record"},
		),
		cacheHitRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "filmrate_cache_hit_rate",
			Help: "Current record cache hit rate (0.0 to 1.0)",
		}),
		cacheKeys: factory.NewGauge(prometheus.GaugeOpts{
			Name: "filmrate_cache_keys_current",
			Help: "Current number of keys in the in-process record cache",
		}),
		cacheMemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "filmrate_cache_memory_bytes",
			Help: "Current memory usage of the in-process record cache in bytes",
		}),
		ledgerMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrate_ledger_mutations_total",
				Help: "Total number of relation ledger rows inserted or deleted",
			},
			[]string{"kind", "operation"},
		),
		grpcRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrate_grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method"},
		),
		grpcDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "filmrate_grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"method"},
		),
		grpcErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "filmrate_grpc_errors_total",
				Help: "Total number of gRPC errors by status code",
			},
			[]string{"method", "code"},
		),
	}
}

// Handler serves the registered metrics over HTTP
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{})
}

// Update refreshes gauge metrics from the collector.
// Counters are updated as events happen, so only gauges are set here.
func (e *PrometheusExporter) Update() {
	cacheMetrics := e.collector.GetCacheMetrics()
	e.cacheHitRate.Set(cacheMetrics.HitRate)
	e.cacheKeys.Set(float64(cacheMetrics.KeysCurrent))
	e.cacheMemoryBytes.Set(float64(cacheMetrics.MemoryBytes))
}

func (e *PrometheusExporter) RecordRequest(method string) {
	e.grpcRequests.WithLabelValues(method).Inc()
}

func (e *PrometheusExporter) RecordDuration(method string, durationSeconds float64) {
	e.grpcDuration.WithLabelValues(method).Observe(durationSeconds)
}

func (e *PrometheusExporter) RecordError(method, code string) {
	e.grpcErrors.WithLabelValues(method, code).Inc()
}

func (e *PrometheusExporter) RecordCacheHit(recordType string) {
	e.cacheHits.WithLabelValues(recordType).Inc()
}

func (e *PrometheusExporter) RecordCacheMiss(recordType string) {
	e.cacheMisses.WithLabelValues(recordType).Inc()
}

func (e *PrometheusExporter) RecordMutation(kind, operation string, rows int) {
	e.ledgerMutations.WithLabelValues(kind, operation).Add(float64(rows))
}
