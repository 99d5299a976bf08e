// Package metrics collects monitoring metrics from the aggregation cycle.
//
// It uses a channel-based event pipeline to asynchronously collect:
//   - Probe outcomes and latencies per instance (P50, P95, P99)
//   - Traffic sample outcomes per instance (known vs unknown counts)
//   - Cycle durations, availability and total active users
//   - Instance health transitions
//
// The collector runs in a dedicated goroutine. Emit never blocks: when the
// buffer is full the event is dropped, so a slow collector can never delay a
// cycle.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.Event{
//		Type:      metrics.EventProbeCompleted,
//		Instance:  "backend-1",
//		Duration:  12 * time.Millisecond,
//		Reachable: true,
//		Healthy:   true,
//	})
//
//	summary := collector.Summary()
//
// Every collector owns a Prometheus registry, exposed by PrometheusHandler.
package metrics
