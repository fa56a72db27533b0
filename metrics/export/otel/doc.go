// Package otel publishes edgegate decision counters as OpenTelemetry
// observable instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter. Decision
// latency is a cumulative bucket gauge keyed by an "le" attribute plus a
// sample count gauge. A single callback reads
// [edgegate.Engine.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
