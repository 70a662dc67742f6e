// Package otel registers authcore engine metrics as OpenTelemetry observable
// instruments on a caller-supplied meter.
//
// Counters become Int64ObservableCounters. The login latency histogram is exposed as one
// cumulative gauge per bucket plus a count gauge, since the metric API has no observable
// histogram.
package otel
