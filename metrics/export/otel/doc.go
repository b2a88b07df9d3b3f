// Package otel binds goAuthSync counters to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per counter and, for
// the API latency histogram, an Int64ObservableGauge of cumulative bucket
// counts labelled by "le". A single callback reads
// [goAuthSync.Synchronizer.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate synchronizer state.
package otel
