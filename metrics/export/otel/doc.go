// Package otel registers tokenauth engine metrics as OpenTelemetry observable
// instruments on a caller supplied Meter.
//
// Counters map to Int64ObservableCounter. The authenticate latency histogram
// is published as one cumulative Int64ObservableGauge per bucket plus a count.
package otel
