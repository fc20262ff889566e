package metrics

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor returns a gRPC interceptor that records metrics for each request.
func UnaryServerInterceptor(collector *Collector, exporter *PrometheusExporter) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		start := time.Now()
		method := info.FullMethod

		collector.RecordRequest(method)
		if exporter != nil {
			exporter.RecordRequest(method)
		}

		resp, err := handler(ctx, req)

		duration := time.Since(start).Seconds()
		collector.RecordDuration(method, duration)
		if exporter != nil {
			exporter.RecordDuration(method, duration)
		}

		if err != nil {
			collector.RecordError(method)
			if exporter != nil {
				exporter.RecordError(method, status.Code(err).String())
			}
		}

		return resp, err
	}
}

// Recorder fans ledger and cache observations out to the collector and,
// when present, the Prometheus exporter
type Recorder struct {
	Collector *Collector
	Exporter  *PrometheusExporter
}

func (r *Recorder) RecordMutation(kind, operation string, rows int) {
	r.Collector.RecordMutation(kind, operation, rows)
	if r.Exporter != nil {
		r.Exporter.RecordMutation(kind, operation, rows)
	}
}

func (r *Recorder) RecordCacheHit(recordType string) {
	if r.Exporter != nil {
		r.Exporter.RecordCacheHit(recordType)
	}
}

func (r *Recorder) RecordCacheMiss(recordType string) {
	if r.Exporter != nil {
		r.Exporter.RecordCacheMiss(recordType)
	}
}
