// Package prometheus exposes edgegate decision counters through
// client_golang.
//
// [Collector] reads [edgegate.Engine.MetricsSnapshot] on each scrape and
// emits edgegate_*_total counters plus the edgegate_decision_latency_seconds
// histogram when latency histograms are enabled.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry. Callers choose the registry.
//   - Mutate engine state.
package prometheus
